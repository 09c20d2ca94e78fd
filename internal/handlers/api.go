package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parentcompanion/internal/models"
	"parentcompanion/internal/routing"
	"parentcompanion/internal/security"
	"parentcompanion/internal/service"
	"parentcompanion/internal/session"
)

const maxBodyBytes = 64 << 10

// APIHandler serves the local API used by the app shell
type APIHandler struct {
	session  *session.Manager
	resolver *session.Resolver
	profiles *service.ProfileService
	launch   session.Resolution
}

// NewAPIHandler creates the API handler. launch is the resolution computed
// once when the process started.
func NewAPIHandler(sm *session.Manager, resolver *session.Resolver, profiles *service.ProfileService, launch session.Resolution) *APIHandler {
	return &APIHandler{
		session:  sm,
		resolver: resolver,
		profiles: profiles,
		launch:   launch,
	}
}

// NewRouter registers the API routes and middleware stack. limiter guards
// the routes that call the remote backend; nil disables it.
func NewRouter(h *APIHandler, limiter *security.RateLimiter) http.Handler {
	remoteLimit := func(next http.Handler) http.Handler { return next }
	if limiter != nil {
		remoteLimit = RateLimit(limiter)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover)
	r.Use(Logging)

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/launch", h.Launch)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.With(remoteLimit).Post("/sync", h.SyncProfile)
			r.Get("/active-child", h.GetActiveChild)
			r.Put("/active-child", h.SetActiveChild)
			r.Post("/children", h.AddChild)
			r.Put("/children/{childID}", h.UpdateChild)
			r.Delete("/children/{childID}", h.RemoveChild)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/", h.GetAuth)
			r.With(remoteLimit).Post("/login", h.LogIn)
			r.Post("/guest", h.ContinueAsGuest)
			r.Post("/logout", h.LogOut)
		})
	})
	return r
}

type launchResponse struct {
	Destination    routing.Destination `json:"destination"`
	Origin         session.Origin      `json:"origin"`
	Profile        *models.UserProfile `json:"profile"`
	RefreshPending bool                `json:"refresh_pending"`
}

type activeChildRequest struct {
	ChildID string `json:"child_id"`
}

type activeChildResponse struct {
	ActiveChild *models.ChildProfile `json:"active_child"`
}

type loginRequest struct {
	Token string `json:"token"`
}

type authResponse struct {
	State    models.AuthState    `json:"state"`
	HasToken bool                `json:"has_token"`
	Profile  *models.UserProfile `json:"profile,omitempty"`
}

func (h *APIHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Launch returns the destination chosen at startup
func (h *APIHandler) Launch(w http.ResponseWriter, r *http.Request) {
	pending := false
	if task := h.launch.Refresh; task != nil {
		select {
		case <-task.Done():
		default:
			pending = true
		}
	}
	respondWithJSON(w, http.StatusOK, launchResponse{
		Destination:    routing.SelectInitialDestination(h.launch.Profile),
		Origin:         h.launch.Origin,
		Profile:        h.launch.Profile,
		RefreshPending: pending,
	})
}

func (h *APIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Profile(r.Context())
	if err != nil {
		respondWithServiceError(w, "Error loading profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// SyncProfile pulls the profile from the backend and replaces the local copy
func (h *APIHandler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.resolver.Sync(r.Context())
	if err != nil {
		respondWithServiceError(w, "Error syncing profile", err)
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *APIHandler) GetActiveChild(w http.ResponseWriter, r *http.Request) {
	child, err := h.profiles.ActiveChild(r.Context())
	if err != nil {
		respondWithServiceError(w, "Error loading active child", err)
		return
	}
	respondWithJSON(w, http.StatusOK, activeChildResponse{ActiveChild: child})
}

func (h *APIHandler) SetActiveChild(w http.ResponseWriter, r *http.Request) {
	var req activeChildRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	child, err := h.profiles.SetActiveChild(r.Context(), req.ChildID)
	if err != nil {
		respondWithServiceError(w, "Error setting active child", err)
		return
	}
	respondWithJSON(w, http.StatusOK, activeChildResponse{ActiveChild: child})
}

func (h *APIHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	var req service.ChildInput
	if !decodeJSON(w, r, &req) {
		return
	}
	child, err := h.profiles.AddChild(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, "Error adding child", err)
		return
	}
	log.Printf("Child profile %s added", child.ID)
	respondWithJSON(w, http.StatusCreated, child)
}

func (h *APIHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	var req service.ChildInput
	if !decodeJSON(w, r, &req) {
		return
	}
	child, err := h.profiles.UpdateChild(r.Context(), chi.URLParam(r, "childID"), req)
	if err != nil {
		respondWithServiceError(w, "Error updating child", err)
		return
	}
	respondWithJSON(w, http.StatusOK, child)
}

func (h *APIHandler) RemoveChild(w http.ResponseWriter, r *http.Request) {
	childID := chi.URLParam(r, "childID")
	if err := h.profiles.RemoveChild(r.Context(), childID); err != nil {
		respondWithServiceError(w, "Error removing child", err)
		return
	}
	log.Printf("Child profile %s removed", childID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetAuth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.authState(r))
}

// LogIn stores the session token and pulls the profile for it. A failed
// pull does not undo the login.
func (h *APIHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.session.LogIn(r.Context(), req.Token); err != nil {
		respondWithServiceError(w, "Error logging in", err)
		return
	}

	resp := h.authState(r)
	if profile, err := h.resolver.Sync(r.Context()); err != nil {
		log.Printf("Profile sync after login failed: %v", err)
	} else {
		resp.Profile = profile
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) ContinueAsGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ContinueAsGuest(r.Context()); err != nil {
		respondWithServiceError(w, "Error switching to guest mode", err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.authState(r))
}

func (h *APIHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	if err := h.session.LogOut(r.Context()); err != nil {
		respondWithServiceError(w, "Error logging out", err)
		return
	}
	respondWithJSON(w, http.StatusOK, h.authState(r))
}

func (h *APIHandler) authState(r *http.Request) authResponse {
	creds := h.session.Credentials(r.Context())
	return authResponse{State: creds.State, HasToken: creds.HasToken()}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	return true
}
