package service

import (
	"context"
	"fmt"
	"strings"

	"parentcompanion/internal/models"
	"parentcompanion/internal/store"
	"parentcompanion/internal/validation"
)

// ChildInput is the editable part of a child profile
type ChildInput struct {
	Name         string   `json:"name"`
	Age          *int     `json:"age,omitempty"`
	AgeGroup     string   `json:"age_group,omitempty"`
	Temperament  []string `json:"temperament,omitempty"`
	CurrentFocus []string `json:"current_focus,omitempty"`
}

// ProfileService handles validated edits of the cached profile
type ProfileService struct {
	store *store.ProfileStore
}

// NewProfileService creates a new profile service
func NewProfileService(ps *store.ProfileStore) *ProfileService {
	return &ProfileService{store: ps}
}

// Profile returns the cached profile or store.ErrNoProfile
func (s *ProfileService) Profile(ctx context.Context) (*models.UserProfile, error) {
	profile, ok := s.store.Get(ctx)
	if !ok {
		return nil, store.ErrNoProfile
	}
	return profile, nil
}

// ActiveChild returns the active child, or nil when none is selected
func (s *ProfileService) ActiveChild(ctx context.Context) (*models.ChildProfile, error) {
	if _, ok := s.store.Get(ctx); !ok {
		return nil, store.ErrNoProfile
	}
	child, _ := s.store.GetActiveChild(ctx)
	return child, nil
}

// AddChild validates and appends a new child profile
func (s *ProfileService) AddChild(ctx context.Context, in ChildInput) (*models.ChildProfile, error) {
	child, err := buildChild("", in)
	if err != nil {
		return nil, err
	}
	created, err := s.store.AddChild(ctx, child)
	if err != nil {
		return nil, fmt.Errorf("failed to add child: %w", err)
	}
	return created, nil
}

// UpdateChild validates and replaces an existing child profile
func (s *ProfileService) UpdateChild(ctx context.Context, childID string, in ChildInput) (*models.ChildProfile, error) {
	child, err := buildChild(childID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateChild(ctx, child); err != nil {
		return nil, fmt.Errorf("failed to update child: %w", err)
	}
	return &child, nil
}

// RemoveChild deletes a child profile
func (s *ProfileService) RemoveChild(ctx context.Context, childID string) error {
	if err := s.store.RemoveChild(ctx, childID); err != nil {
		return fmt.Errorf("failed to remove child: %w", err)
	}
	return nil
}

// SetActiveChild selects the child the app is focused on
func (s *ProfileService) SetActiveChild(ctx context.Context, childID string) (*models.ChildProfile, error) {
	childID = strings.TrimSpace(childID)
	if childID == "" {
		return nil, validation.ValidationError{Field: "child_id", Message: "child id is required"}
	}
	if err := s.store.SetActiveChild(ctx, childID); err != nil {
		return nil, fmt.Errorf("failed to set active child: %w", err)
	}
	child, _ := s.store.GetActiveChild(ctx)
	return child, nil
}

func buildChild(id string, in ChildInput) (models.ChildProfile, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateName(name); err != nil {
		return models.ChildProfile{}, err
	}
	if err := validation.ValidateAge(in.Age); err != nil {
		return models.ChildProfile{}, err
	}
	ageGroup := strings.TrimSpace(in.AgeGroup)
	if err := validation.ValidateAgeGroup(ageGroup); err != nil {
		return models.ChildProfile{}, err
	}
	temperament, err := validation.NormalizeTags("temperament", in.Temperament)
	if err != nil {
		return models.ChildProfile{}, err
	}
	focus, err := validation.NormalizeTags("current_focus", in.CurrentFocus)
	if err != nil {
		return models.ChildProfile{}, err
	}

	return models.ChildProfile{
		ID:           id,
		Name:         name,
		Age:          in.Age,
		AgeGroup:     ageGroup,
		Temperament:  temperament,
		CurrentFocus: focus,
	}, nil
}
