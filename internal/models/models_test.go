package models

import (
	"testing"
)

func strPtr(s string) *string { return &s }

func TestUserProfileActiveChild(t *testing.T) {
	tests := []struct {
		name         string
		activeID     *string
		wantChild    string
		wantDangling bool
	}{
		{
			name:     "no active child",
			activeID: nil,
		},
		{
			name:      "active child present",
			activeID:  strPtr("b"),
			wantChild: "Bea",
		},
		{
			name:         "dangling reference",
			activeID:     strPtr("ghost"),
			wantDangling: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := UserProfile{
				ID: "u1",
				ChildProfiles: []ChildProfile{
					{ID: "a", Name: "Ari"},
					{ID: "b", Name: "Bea"},
				},
				ActiveChildID: tt.activeID,
			}
			child, dangling := profile.ActiveChild()
			if dangling != tt.wantDangling {
				t.Errorf("ActiveChild() dangling = %v, want %v", dangling, tt.wantDangling)
			}
			got := ""
			if child != nil {
				got = child.Name
			}
			if got != tt.wantChild {
				t.Errorf("ActiveChild() = %q, want %q", got, tt.wantChild)
			}
		})
	}
}

func TestUserProfileRemoveChild(t *testing.T) {
	profile := UserProfile{
		ChildProfiles: []ChildProfile{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		ActiveChildID: strPtr("b"),
	}

	if profile.RemoveChild("missing") {
		t.Fatal("RemoveChild(missing) should return false")
	}
	if !profile.RemoveChild("b") {
		t.Fatal("RemoveChild(b) should return true")
	}
	if profile.ActiveChildID != nil {
		t.Errorf("expected active child to be cleared, got %q", *profile.ActiveChildID)
	}
	if len(profile.ChildProfiles) != 2 || profile.ChildProfiles[0].ID != "a" || profile.ChildProfiles[1].ID != "c" {
		t.Errorf("unexpected remaining children: %+v", profile.ChildProfiles)
	}

	profile.ActiveChildID = strPtr("a")
	profile.RemoveChild("c")
	if profile.ActiveChildID == nil || *profile.ActiveChildID != "a" {
		t.Error("removing a non-active child must keep the active pointer")
	}
}

func TestUserProfileCloneIsDeep(t *testing.T) {
	age := 6
	original := &UserProfile{
		ID:            "u1",
		PhoneNumber:   strPtr("555"),
		ChildProfiles: []ChildProfile{{ID: "a", Age: &age, Temperament: []string{"shy"}}},
		ActiveChildID: strPtr("a"),
		ScreenerData:  []byte(`{"role":"mother"}`),
	}

	clone := original.Clone()
	*clone.PhoneNumber = "777"
	*clone.ChildProfiles[0].Age = 9
	clone.ChildProfiles[0].Temperament[0] = "bold"
	*clone.ActiveChildID = "z"
	clone.ScreenerData[2] = 'X'

	if *original.PhoneNumber != "555" {
		t.Error("phone number shared between clone and original")
	}
	if *original.ChildProfiles[0].Age != 6 {
		t.Error("child age shared between clone and original")
	}
	if original.ChildProfiles[0].Temperament[0] != "shy" {
		t.Error("temperament shared between clone and original")
	}
	if *original.ActiveChildID != "a" {
		t.Error("active child id shared between clone and original")
	}
	if string(original.ScreenerData) != `{"role":"mother"}` {
		t.Error("screener data shared between clone and original")
	}

	var nilProfile *UserProfile
	if nilProfile.Clone() != nil {
		t.Error("Clone() of nil profile should be nil")
	}
}

func TestParseAuthState(t *testing.T) {
	tests := []struct {
		raw     string
		want    AuthState
		wantErr bool
	}{
		{raw: "logged_in", want: AuthLoggedIn},
		{raw: " GUEST ", want: AuthGuest},
		{raw: "logged_out", want: AuthLoggedOut},
		{raw: "", want: AuthLoggedOut, wantErr: true},
		{raw: "admin", want: AuthLoggedOut, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAuthState(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAuthState(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAuthState(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
