package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"parentcompanion/internal/models"
	"parentcompanion/internal/security"
)

var (
	ErrNoProfile      = errors.New("no local profile")
	ErrChildNotFound  = errors.New("child profile not found")
	ErrDuplicateChild = errors.New("child profile already exists")
)

// Storage keys. Profile, auth state and token are persisted independently.
const (
	KeyProfile      = "current_user_profile"
	KeyAuthState    = "auth_state"
	KeySessionToken = "session_token"
	KeyInstallation = "installation_id"
)

// ProfileStore holds the single cached UserProfile plus the auth state and
// session token for this installation. Reads never fail: unreadable values
// are logged and reported as absent.
type ProfileStore struct {
	kv     KeyValue
	sealer security.Sealer
	mu     sync.Mutex
}

// NewProfileStore creates a profile store; a nil sealer stores tokens unsealed
func NewProfileStore(kv KeyValue, sealer security.Sealer) *ProfileStore {
	if sealer == nil {
		sealer = security.NopSealer{}
	}
	return &ProfileStore{kv: kv, sealer: sealer}
}

// Get returns the cached profile, or false when absent or unreadable
func (s *ProfileStore) Get(ctx context.Context) (*models.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx)
}

// Put replaces the cached profile in full
func (s *ProfileStore) Put(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil || profile.ID == "" {
		return errors.New("cannot store a profile without an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(ctx, profile)
}

// Clear removes the cached profile
func (s *ProfileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, KeyProfile); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	return nil
}

// GetActiveChild resolves the active child pointer of the cached profile
func (s *ProfileStore) GetActiveChild(ctx context.Context) (*models.ChildProfile, bool) {
	profile, ok := s.Get(ctx)
	if !ok {
		return nil, false
	}
	child, dangling := profile.ActiveChild()
	if dangling {
		log.Printf("Local profile %s: active child %q does not match any child profile", profile.ID, *profile.ActiveChildID)
		return nil, false
	}
	return child, child != nil
}

// SetActiveChild points the profile at an existing child. Unknown ids
// return ErrChildNotFound and leave the stored profile untouched.
func (s *ProfileStore) SetActiveChild(ctx context.Context, childID string) error {
	return s.update(ctx, func(p *models.UserProfile) error {
		if !p.HasChild(childID) {
			return ErrChildNotFound
		}
		p.ActiveChildID = &childID
		return nil
	})
}

// RemoveChild deletes a child and clears the active pointer if it referenced it
func (s *ProfileStore) RemoveChild(ctx context.Context, childID string) error {
	return s.update(ctx, func(p *models.UserProfile) error {
		if !p.RemoveChild(childID) {
			return ErrChildNotFound
		}
		return nil
	})
}

// AddChild appends a child, assigning an id when none is given. The new
// child becomes active when no child is currently active.
func (s *ProfileStore) AddChild(ctx context.Context, child models.ChildProfile) (*models.ChildProfile, error) {
	if child.ID == "" {
		child.ID = security.GenerateID()
	}
	err := s.update(ctx, func(p *models.UserProfile) error {
		if p.HasChild(child.ID) {
			return ErrDuplicateChild
		}
		p.ChildProfiles = append(p.ChildProfiles, child)
		if current, _ := p.ActiveChild(); current == nil {
			id := child.ID
			p.ActiveChildID = &id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &child, nil
}

// UpdateChild replaces the child with the same id, keeping its position
func (s *ProfileStore) UpdateChild(ctx context.Context, child models.ChildProfile) error {
	return s.update(ctx, func(p *models.UserProfile) error {
		existing, ok := p.ChildByID(child.ID)
		if !ok {
			return ErrChildNotFound
		}
		*existing = child
		return nil
	})
}

// AuthState returns the persisted auth state, defaulting to logged out
func (s *ProfileStore) AuthState(ctx context.Context) models.AuthState {
	raw, ok, err := s.kv.Get(ctx, KeyAuthState)
	if err != nil {
		log.Printf("Local read failure for %s: %v", KeyAuthState, err)
		return models.AuthLoggedOut
	}
	if !ok {
		return models.AuthLoggedOut
	}
	state, err := models.ParseAuthState(raw)
	if err != nil {
		log.Printf("Local read failure for %s: %v", KeyAuthState, err)
	}
	return state
}

// SetAuthState persists the auth state. Logging out also drops the session token.
func (s *ProfileStore) SetAuthState(ctx context.Context, state models.AuthState) error {
	if !state.IsValid() {
		return fmt.Errorf("invalid auth state %q", state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, KeyAuthState, string(state)); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}
	if state == models.AuthLoggedOut {
		if err := s.kv.Delete(ctx, KeySessionToken); err != nil {
			return fmt.Errorf("failed to clear session token: %w", err)
		}
	}
	return nil
}

// SessionToken returns the unsealed session token, if any
func (s *ProfileStore) SessionToken(ctx context.Context) (string, bool) {
	sealed, ok, err := s.kv.Get(ctx, KeySessionToken)
	if err != nil {
		log.Printf("Local read failure for %s: %v", KeySessionToken, err)
		return "", false
	}
	if !ok || sealed == "" {
		return "", false
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		log.Printf("Local read failure for %s: %v", KeySessionToken, err)
		return "", false
	}
	return token, true
}

// SetSessionToken seals and stores the session token
func (s *ProfileStore) SetSessionToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("failed to seal session token: %w", err)
	}
	if err := s.kv.Set(ctx, KeySessionToken, sealed); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// ClearSessionToken removes the stored session token
func (s *ProfileStore) ClearSessionToken(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeySessionToken); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// InstallationID returns the id of this installation, creating it on first use
func (s *ProfileStore) InstallationID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok, err := s.kv.Get(ctx, KeyInstallation)
	if err != nil {
		return "", fmt.Errorf("failed to read installation id: %w", err)
	}
	if ok && security.IsValidID(id) {
		return id, nil
	}
	id = security.GenerateID()
	if err := s.kv.Set(ctx, KeyInstallation, id); err != nil {
		return "", fmt.Errorf("failed to save installation id: %w", err)
	}
	return id, nil
}

func (s *ProfileStore) update(ctx context.Context, mutate func(p *models.UserProfile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.getLocked(ctx)
	if !ok {
		return ErrNoProfile
	}
	if err := mutate(profile); err != nil {
		return err
	}
	return s.putLocked(ctx, profile)
}

func (s *ProfileStore) getLocked(ctx context.Context) (*models.UserProfile, bool) {
	raw, ok, err := s.kv.Get(ctx, KeyProfile)
	if err != nil {
		log.Printf("Local read failure for %s: %v", KeyProfile, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var profile models.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		log.Printf("Local read failure for %s: corrupt value: %v", KeyProfile, err)
		return nil, false
	}
	if profile.ID == "" {
		log.Printf("Local read failure for %s: profile has no id", KeyProfile)
		return nil, false
	}
	return &profile, true
}

func (s *ProfileStore) putLocked(ctx context.Context, profile *models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.kv.Set(ctx, KeyProfile, string(data)); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
