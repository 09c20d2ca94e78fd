package models

import (
	"fmt"
	"strings"
	"time"
)

// AuthState is the persisted, process-wide authentication mode
type AuthState string

const (
	AuthLoggedIn  AuthState = "logged_in"
	AuthGuest     AuthState = "guest"
	AuthLoggedOut AuthState = "logged_out"
)

// IsValid reports whether s is one of the three known states
func (s AuthState) IsValid() bool {
	switch s {
	case AuthLoggedIn, AuthGuest, AuthLoggedOut:
		return true
	}
	return false
}

// ParseAuthState parses a persisted auth state tag
func ParseAuthState(raw string) (AuthState, error) {
	state := AuthState(strings.ToLower(strings.TrimSpace(raw)))
	if !state.IsValid() {
		return AuthLoggedOut, fmt.Errorf("unknown auth state %q", raw)
	}
	return state, nil
}

// Credentials carry what the remote source needs to identify the session
type Credentials struct {
	State AuthState
	Token string
}

// HasToken reports whether a session token is available
func (c Credentials) HasToken() bool {
	return c.Token != ""
}

// AuthChange describes a single auth state transition
type AuthChange struct {
	From AuthState `json:"from"`
	To   AuthState `json:"to"`
	At   time.Time `json:"at"`
}
