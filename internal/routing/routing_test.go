package routing

import (
	"testing"

	"parentcompanion/internal/models"
)

func TestSelectInitialDestination(t *testing.T) {
	active := "a"
	tests := []struct {
		name    string
		profile *models.UserProfile
		want    Destination
	}{
		{"no profile", nil, DestinationOnboarding},
		{"profile without children", &models.UserProfile{ID: "u"}, DestinationMain},
		{"profile with empty children", &models.UserProfile{ID: "u", ChildProfiles: []models.ChildProfile{}}, DestinationMain},
		{"guest with onboarding data", &models.UserProfile{
			ID:           "guest-1",
			ScreenerData: []byte(`{"answers":[1,2]}`),
		}, DestinationMain},
		{"profile with active child", &models.UserProfile{
			ID:            "u",
			ChildProfiles: []models.ChildProfile{{ID: "a"}},
			ActiveChildID: &active,
		}, DestinationMain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectInitialDestination(tt.profile); got != tt.want {
				t.Errorf("SelectInitialDestination() = %v, want %v", got, tt.want)
			}
		})
	}
}
