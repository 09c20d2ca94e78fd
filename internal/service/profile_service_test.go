package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"parentcompanion/internal/models"
	"parentcompanion/internal/store"
	"parentcompanion/internal/validation"
)

func newTestStore(t *testing.T) *store.ProfileStore {
	t.Helper()
	kv, err := store.NewJSONStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	return store.NewProfileStore(kv, nil)
}

func TestProfileServiceChildLifecycle(t *testing.T) {
	ps := newTestStore(t)
	svc := NewProfileService(ps)
	ctx := context.Background()

	if _, err := svc.AddChild(ctx, ChildInput{Name: "Ari"}); !errors.Is(err, store.ErrNoProfile) {
		t.Fatalf("AddChild() without profile error = %v, want ErrNoProfile", err)
	}
	if err := ps.Put(ctx, &models.UserProfile{ID: "user-1", Name: "Dana"}); err != nil {
		t.Fatal(err)
	}

	age := 4
	ari, err := svc.AddChild(ctx, ChildInput{
		Name:        "  Ari ",
		Age:         &age,
		AgeGroup:    "3-5",
		Temperament: []string{"Shy", "shy ", "Curious"},
	})
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if ari.Name != "Ari" || !slices.Equal(ari.Temperament, []string{"shy", "curious"}) {
		t.Errorf("AddChild() did not normalize input: %+v", ari)
	}
	if active, _ := svc.ActiveChild(ctx); active == nil || active.ID != ari.ID {
		t.Errorf("first child should be active, got %+v", active)
	}

	bea, err := svc.AddChild(ctx, ChildInput{Name: "Bea"})
	if err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}
	if _, err := svc.SetActiveChild(ctx, bea.ID); err != nil {
		t.Fatalf("SetActiveChild() error = %v", err)
	}

	updated, err := svc.UpdateChild(ctx, bea.ID, ChildInput{Name: "Beatrice", CurrentFocus: []string{"Sleep"}})
	if err != nil {
		t.Fatalf("UpdateChild() error = %v", err)
	}
	if updated.ID != bea.ID || updated.CurrentFocus[0] != "sleep" {
		t.Errorf("UpdateChild() = %+v", updated)
	}

	if err := svc.RemoveChild(ctx, bea.ID); err != nil {
		t.Fatalf("RemoveChild() error = %v", err)
	}
	active, err := svc.ActiveChild(ctx)
	if err != nil || active != nil {
		t.Errorf("ActiveChild() after removing the active child = %+v, %v; want none", active, err)
	}

	if _, err := svc.SetActiveChild(ctx, "nonexistent"); !errors.Is(err, store.ErrChildNotFound) {
		t.Errorf("SetActiveChild(nonexistent) error = %v, want ErrChildNotFound", err)
	}
	if err := svc.RemoveChild(ctx, "nonexistent"); !errors.Is(err, store.ErrChildNotFound) {
		t.Errorf("RemoveChild(nonexistent) error = %v, want ErrChildNotFound", err)
	}
}

func TestProfileServiceValidation(t *testing.T) {
	ps := newTestStore(t)
	svc := NewProfileService(ps)
	ctx := context.Background()
	if err := ps.Put(ctx, &models.UserProfile{ID: "user-1"}); err != nil {
		t.Fatal(err)
	}

	tooOld := 19
	tests := []struct {
		name  string
		input ChildInput
		field string
	}{
		{"missing name", ChildInput{}, "name"},
		{"short name", ChildInput{Name: "A"}, "name"},
		{"long name", ChildInput{Name: strings.Repeat("a", 51)}, "name"},
		{"age out of range", ChildInput{Name: "Ari", Age: &tooOld}, "age"},
		{"unknown age group", ChildInput{Name: "Ari", AgeGroup: "toddler"}, "age_group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddChild(ctx, tt.input)
			var verr validation.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("AddChild() error = %v, want ValidationError on %s", err, tt.field)
			}
		})
	}

	if _, err := svc.SetActiveChild(ctx, "  "); err == nil {
		t.Error("SetActiveChild(blank) should fail validation")
	}
	profile, _ := svc.Profile(ctx)
	if len(profile.ChildProfiles) != 0 {
		t.Errorf("invalid input must not be stored: %+v", profile.ChildProfiles)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newTestStore(t)
	phone := "555"
	active := "a"
	if err := source.Put(ctx, &models.UserProfile{
		ID:            "user-1",
		Name:          "Dana",
		Email:         "dana@example.com",
		PhoneNumber:   &phone,
		ChildProfiles: []models.ChildProfile{{ID: "a", Name: "Ari"}},
		ActiveChildID: &active,
	}); err != nil {
		t.Fatal(err)
	}
	if err := source.SetSessionToken(ctx, "secret-token"); err != nil {
		t.Fatal(err)
	}
	if err := source.SetAuthState(ctx, models.AuthLoggedIn); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := NewBackupService(source).ExportToWriter(ctx, &buf); err != nil {
		t.Fatalf("ExportToWriter() error = %v", err)
	}
	if strings.Contains(buf.String(), "secret-token") {
		t.Fatal("backup must not contain the session token")
	}

	target := newTestStore(t)
	if err := NewBackupService(target).ImportFromReader(ctx, bytes.NewReader(buf.Bytes()), false); err != nil {
		t.Fatalf("ImportFromReader() error = %v", err)
	}
	got, ok := target.Get(ctx)
	if !ok || got.ID != "user-1" || *got.PhoneNumber != "555" || *got.ActiveChildID != "a" {
		t.Errorf("imported profile = %+v", got)
	}
	if state := target.AuthState(ctx); state != models.AuthLoggedOut {
		t.Errorf("imported auth state = %v, want logged_out", state)
	}

	err := NewBackupService(target).ImportFromReader(ctx, bytes.NewReader(buf.Bytes()), false)
	if !errors.Is(err, ErrLocalStateExists) {
		t.Errorf("second import error = %v, want ErrLocalStateExists", err)
	}
	if err := NewBackupService(target).ImportFromReader(ctx, bytes.NewReader(buf.Bytes()), true); err != nil {
		t.Errorf("import with clear error = %v", err)
	}
}

func TestBackupImportRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := NewBackupService(newTestStore(t))

	for name, doc := range map[string]string{
		"not json":       "nope",
		"wrong version":  `{"version":"9.9"}`,
		"bad auth state": `{"version":"1.0","auth_state":"admin"}`,
		"profile no id":  `{"version":"1.0","profile":{"name":"x"}}`,
		"bad email":      `{"version":"1.0","profile":{"id":"u","email":"not-an-email"}}`,
		"bad phone":      `{"version":"1.0","profile":{"id":"u","phone":"call me"}}`,
	} {
		if err := svc.ImportFromReader(ctx, strings.NewReader(doc), false); err == nil {
			t.Errorf("%s: ImportFromReader() should fail", name)
		}
	}

	legacy := `{"version":"1.0","auth_state":"guest","profile":{"id":"u","parent_name":"Dana","childProfiles":[{"id":"a","name":"Ari"}]}}`
	if err := svc.ImportFromReader(ctx, strings.NewReader(legacy), false); err != nil {
		t.Fatalf("legacy import error = %v", err)
	}
}

func TestBackupImportAsGuestDropsToken(t *testing.T) {
	ctx := context.Background()
	ps := newTestStore(t)
	if err := ps.SetSessionToken(ctx, "stale-token"); err != nil {
		t.Fatal(err)
	}

	doc := `{"version":"1.0","auth_state":"guest","profile":{"id":"u","name":"Dana"}}`
	if err := NewBackupService(ps).ImportFromReader(ctx, strings.NewReader(doc), false); err != nil {
		t.Fatalf("ImportFromReader() error = %v", err)
	}
	if state := ps.AuthState(ctx); state != models.AuthGuest {
		t.Errorf("auth state = %v, want guest", state)
	}
	if _, ok := ps.SessionToken(ctx); ok {
		t.Error("guest import must not keep a session token")
	}
}
