package remote

import (
	"encoding/json"
	"errors"
	"log"
	"strings"

	"parentcompanion/internal/models"
)

// wireProfile accepts the canonical field names and the legacy ones the
// backend still emits. Canonical names win when both are present.
type wireProfile struct {
	ID string `json:"id"`

	Name       *string `json:"name"`
	ParentName *string `json:"parent_name"`
	ClientName *string `json:"client_name"`

	Email string `json:"email"`

	PhoneNumber      *string `json:"phone_number"`
	PhoneNumberCamel *string `json:"phoneNumber"`
	Phone            *string `json:"phone"`

	ChildProfiles      []wireChild `json:"child_profiles"`
	ChildProfilesCamel []wireChild `json:"childProfiles"`

	ActiveChildID      *string `json:"active_child_id"`
	ActiveChildIDCamel *string `json:"activeChildId"`

	ScreenerData      json.RawMessage `json:"screener_data"`
	ScreenerDataCamel json.RawMessage `json:"screenerData"`
}

type wireChild struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Age               *int     `json:"age"`
	AgeGroup          *string  `json:"age_group"`
	AgeGroupCamel     *string  `json:"ageGroup"`
	Temperament       []string `json:"temperament"`
	CurrentFocus      []string `json:"current_focus"`
	CurrentFocusCamel []string `json:"currentFocus"`
}

// DecodeProfile parses a profile document in either the canonical or the
// legacy field naming.
func DecodeProfile(data []byte) (*models.UserProfile, error) {
	var w wireProfile
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return w.toModel()
}

func (w wireProfile) toModel() (*models.UserProfile, error) {
	if strings.TrimSpace(w.ID) == "" {
		return nil, errors.New("profile has no id")
	}

	p := &models.UserProfile{
		ID:           w.ID,
		Name:         deref(firstString(w.Name, w.ParentName, w.ClientName)),
		Email:        w.Email,
		PhoneNumber:  nonEmpty(firstString(w.PhoneNumber, w.PhoneNumberCamel, w.Phone)),
		ScreenerData: firstRaw(w.ScreenerData, w.ScreenerDataCamel),
	}

	children := w.ChildProfiles
	if children == nil {
		children = w.ChildProfilesCamel
	}
	for _, c := range children {
		if c.ID == "" {
			log.Printf("Remote profile %s: skipping child without id", w.ID)
			continue
		}
		if p.HasChild(c.ID) {
			log.Printf("Remote profile %s: skipping duplicate child %s", w.ID, c.ID)
			continue
		}
		p.ChildProfiles = append(p.ChildProfiles, c.toModel())
	}

	if active := nonEmpty(firstString(w.ActiveChildID, w.ActiveChildIDCamel)); active != nil {
		if p.HasChild(*active) {
			p.ActiveChildID = active
		} else {
			log.Printf("Remote profile %s: dropping active child %q with no matching child profile", w.ID, *active)
		}
	}
	return p, nil
}

func (c wireChild) toModel() models.ChildProfile {
	focus := c.CurrentFocus
	if focus == nil {
		focus = c.CurrentFocusCamel
	}
	return models.ChildProfile{
		ID:           c.ID,
		Name:         c.Name,
		Age:          c.Age,
		AgeGroup:     deref(firstString(c.AgeGroup, c.AgeGroupCamel)),
		Temperament:  c.Temperament,
		CurrentFocus: focus,
	}
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
