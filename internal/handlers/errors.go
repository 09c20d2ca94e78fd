package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"parentcompanion/internal/remote"
	"parentcompanion/internal/session"
	"parentcompanion/internal/store"
	"parentcompanion/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondWithServiceError maps domain errors onto HTTP statuses
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, store.ErrNoProfile):
		respondWithError(w, http.StatusNotFound, ErrNoProfile, "", nil)
	case errors.Is(err, store.ErrChildNotFound):
		respondWithError(w, http.StatusNotFound, ErrChildNotFound, "", nil)
	case errors.Is(err, store.ErrDuplicateChild):
		respondWithError(w, http.StatusConflict, ErrDuplicateChild, "", nil)
	case errors.Is(err, session.ErrInvalidToken):
		respondWithError(w, http.StatusBadRequest, ErrInvalidToken, "", nil)
	case errors.Is(err, session.ErrTokenExpired):
		respondWithError(w, http.StatusUnauthorized, ErrTokenExpired, "", nil)
	case errors.Is(err, session.ErrSessionChanged):
		respondWithError(w, http.StatusConflict, ErrSessionChanged, logMsg, err)
	case errors.Is(err, remote.ErrNotFound):
		respondWithError(w, http.StatusNotFound, ErrRemoteNotFound, logMsg, err)
	case errors.Is(err, remote.ErrUnavailable):
		respondWithError(w, http.StatusBadGateway, ErrRemoteUnavailable, logMsg, err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
