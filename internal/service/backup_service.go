package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"parentcompanion/internal/models"
	"parentcompanion/internal/remote"
	"parentcompanion/internal/store"
	"parentcompanion/internal/validation"
)

const backupVersion = "1.0"

var ErrLocalStateExists = errors.New("a local profile already exists; import with clear to replace it")

// BackupData is the exported local state. The session token is never included.
type BackupData struct {
	Version        string           `json:"version"`
	ExportedAt     time.Time        `json:"exported_at"`
	InstallationID string           `json:"installation_id"`
	AuthState      models.AuthState `json:"auth_state"`
	Profile        json.RawMessage  `json:"profile,omitempty"`
}

// BackupService handles export and restore of the local profile state
type BackupService struct {
	store *store.ProfileStore
}

// NewBackupService creates a new backup service
func NewBackupService(ps *store.ProfileStore) *BackupService {
	return &BackupService{store: ps}
}

// Export writes a backup of the local state to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	log.Println("Starting local state export...")

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	log.Printf("Local state exported successfully to %s", outputPath)
	return nil
}

// ExportToWriter writes a backup of the local state to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	installationID, err := s.store.InstallationID(ctx)
	if err != nil {
		return err
	}
	backup := &BackupData{
		Version:        backupVersion,
		ExportedAt:     time.Now().UTC(),
		InstallationID: installationID,
		AuthState:      s.store.AuthState(ctx),
	}
	if profile, ok := s.store.Get(ctx); ok {
		raw, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		backup.Profile = raw
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import restores the local state from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, clearExisting bool) error {
	log.Printf("Starting local state import from %s...", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	if err := s.ImportFromReader(ctx, file, clearExisting); err != nil {
		return err
	}
	log.Println("Local state import completed successfully")
	return nil
}

// ImportFromReader restores the local state from r. Without clearExisting an
// existing profile is never overwritten. A logged_in state is restored as
// logged_out because backups carry no session token.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clearExisting bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	var profile *models.UserProfile
	if len(backup.Profile) > 0 && string(backup.Profile) != "null" {
		decoded, err := remote.DecodeProfile(backup.Profile)
		if err != nil {
			return fmt.Errorf("invalid profile in backup: %w", err)
		}
		if decoded.Email != "" {
			if err := validation.ValidateEmail(decoded.Email); err != nil {
				return fmt.Errorf("invalid profile in backup: %w", err)
			}
		}
		if decoded.PhoneNumber != nil {
			if err := validation.ValidatePhone(*decoded.PhoneNumber); err != nil {
				return fmt.Errorf("invalid profile in backup: %w", err)
			}
		}
		profile = decoded
	}

	state := backup.AuthState
	if state == "" {
		state = models.AuthLoggedOut
	}
	if !state.IsValid() {
		return fmt.Errorf("invalid auth state %q in backup", state)
	}
	if state == models.AuthLoggedIn {
		log.Println("Backup was taken while logged in; restoring as logged out")
		state = models.AuthLoggedOut
	}

	if _, exists := s.store.Get(ctx); exists && !clearExisting {
		return ErrLocalStateExists
	}
	if clearExisting {
		if err := s.store.Clear(ctx); err != nil {
			return err
		}
	}

	if profile != nil {
		if err := s.store.Put(ctx, profile); err != nil {
			return fmt.Errorf("failed to restore profile: %w", err)
		}
	}
	if err := s.store.SetAuthState(ctx, state); err != nil {
		return fmt.Errorf("failed to restore auth state: %w", err)
	}
	// Restored state is never logged_in, so no token may outlive the import
	if err := s.store.ClearSessionToken(ctx); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}

	children := 0
	if profile != nil {
		children = len(profile.ChildProfiles)
	}
	log.Printf("Imported: profile=%t, %d children, auth state %s", profile != nil, children, state)
	return nil
}
