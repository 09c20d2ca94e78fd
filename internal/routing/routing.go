package routing

import "parentcompanion/internal/models"

// Destination is a top-level screen of the app
type Destination string

const (
	DestinationOnboarding Destination = "onboarding"
	DestinationMain       Destination = "main"
)

// SelectInitialDestination picks the launch screen. Any profile, even one
// without children, goes to main; only a missing profile goes to onboarding.
func SelectInitialDestination(profile *models.UserProfile) Destination {
	if profile == nil {
		return DestinationOnboarding
	}
	return DestinationMain
}
