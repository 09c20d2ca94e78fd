package models

import (
	"encoding/json"
	"slices"
)

// ChildProfile represents one child managed by a parent account
type ChildProfile struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Age          *int     `json:"age,omitempty"`
	AgeGroup     string   `json:"age_group,omitempty"`
	Temperament  []string `json:"temperament,omitempty"`
	CurrentFocus []string `json:"current_focus,omitempty"`
}

// UserProfile is the "current user" record cached on the device.
// The remote backend owns the authoritative copy.
type UserProfile struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	PhoneNumber   *string         `json:"phone_number,omitempty"`
	ChildProfiles []ChildProfile  `json:"child_profiles"`
	ActiveChildID *string         `json:"active_child_id,omitempty"`
	ScreenerData  json.RawMessage `json:"screener_data,omitempty"`
}

// ChildByID returns the child with the given id
func (p *UserProfile) ChildByID(id string) (*ChildProfile, bool) {
	idx := p.childIndex(id)
	if idx < 0 {
		return nil, false
	}
	return &p.ChildProfiles[idx], true
}

// HasChild reports whether a child with the given id exists
func (p *UserProfile) HasChild(id string) bool {
	return p.childIndex(id) >= 0
}

// ActiveChild resolves ActiveChildID against ChildProfiles.
// dangling is true when the pointer is set but matches no child.
func (p *UserProfile) ActiveChild() (child *ChildProfile, dangling bool) {
	if p.ActiveChildID == nil {
		return nil, false
	}
	child, ok := p.ChildByID(*p.ActiveChildID)
	if !ok {
		return nil, true
	}
	return child, false
}

// RemoveChild drops the child with the given id, clearing the active pointer
// when it referenced that child. Returns false if no such child exists.
func (p *UserProfile) RemoveChild(id string) bool {
	idx := p.childIndex(id)
	if idx < 0 {
		return false
	}
	p.ChildProfiles = slices.Delete(p.ChildProfiles, idx, idx+1)
	if p.ActiveChildID != nil && *p.ActiveChildID == id {
		p.ActiveChildID = nil
	}
	return true
}

// Clone returns a deep copy of the profile
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	if p.PhoneNumber != nil {
		phone := *p.PhoneNumber
		out.PhoneNumber = &phone
	}
	if p.ActiveChildID != nil {
		active := *p.ActiveChildID
		out.ActiveChildID = &active
	}
	if p.ScreenerData != nil {
		out.ScreenerData = slices.Clone(p.ScreenerData)
	}
	if p.ChildProfiles != nil {
		out.ChildProfiles = make([]ChildProfile, len(p.ChildProfiles))
		for i, child := range p.ChildProfiles {
			out.ChildProfiles[i] = child.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the child profile
func (c ChildProfile) Clone() ChildProfile {
	out := c
	if c.Age != nil {
		age := *c.Age
		out.Age = &age
	}
	out.Temperament = slices.Clone(c.Temperament)
	out.CurrentFocus = slices.Clone(c.CurrentFocus)
	return out
}

func (p *UserProfile) childIndex(id string) int {
	return slices.IndexFunc(p.ChildProfiles, func(c ChildProfile) bool {
		return c.ID == id
	})
}
