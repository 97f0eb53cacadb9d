package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
)

func seededUsers(t *testing.T) *repository.UserRepository {
	t.Helper()

	repo := repository.NewUserRepository(kv.NewMemoryStore(nil), repository.DefaultAllowList())
	if _, err := repo.SeedIfEmpty(context.Background()); err != nil {
		t.Fatalf("SeedIfEmpty: %v", err)
	}
	return repo
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(seededUsers(t), zerolog.Nop())

	tests := []struct {
		name       string
		identifier string
		password   string
		wantID     string
		wantRole   models.Role
	}{
		{name: "student by registration number", identifier: "UG20/COMS/1184", password: "password123", wantID: "UG20/COMS/1184", wantRole: models.RoleStudent},
		{name: "student by email", identifier: "aisha.bello@adustech.edu.ng", password: "password123", wantID: "UG20/COMS/1184", wantRole: models.RoleStudent},
		{name: "staff by staff id", identifier: "Staff/Adustech/1001", password: "password123", wantID: "Staff/Adustech/1001", wantRole: models.RoleStaff},
		{name: "staff by email", identifier: "staff.usman@adustech.edu.ng", password: "password123", wantID: "Staff/Adustech/1001", wantRole: models.RoleStaff},
		{name: "admin allow-list", identifier: "admin@adustech.edu.ng", password: "pass123", wantID: "ADM001", wantRole: models.RoleAdmin},
		{name: "driver allow-list", identifier: "DRV001", password: "driver123", wantID: "DRV001", wantRole: models.RoleDriver},
		{name: "wrong password", identifier: "UG20/COMS/1184", password: "password124"},
		{name: "wrong case identifier", identifier: "ug20/coms/1184", password: "password123"},
		{name: "wrong case password", identifier: "admin@adustech.edu.ng", password: "PASS123"},
		{name: "unknown identifier", identifier: "UG20/COMS/9999", password: "password123"},
		{name: "empty password", identifier: "UG20/COMS/1184", password: ""},
		{name: "empty identifier", identifier: "", password: "password123"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			user, err := svc.Authenticate(context.Background(), tt.identifier, tt.password)
			if err != nil {
				t.Fatalf("Authenticate returned error: %v", err)
			}
			if tt.wantID == "" {
				if user != nil {
					t.Fatalf("expected miss, got %s", user.ID)
				}
				return
			}
			if user == nil {
				t.Fatal("expected a match, got nil")
			}
			if user.ID != tt.wantID || user.Role() != tt.wantRole {
				t.Fatalf("got %s/%s, want %s/%s", user.ID, user.Role(), tt.wantID, tt.wantRole)
			}
			if user.Password != "" {
				t.Fatal("expected password to be stripped from the returned record")
			}
		})
	}
}

type failingStore struct {
	kv.Store
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, f.err
}

func TestAuthService_PropagatesStoreFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("store offline")
	repo := repository.NewUserRepository(failingStore{Store: kv.NewMemoryStore(nil), err: boom}, repository.DefaultAllowList())
	svc := NewAuthService(repo, zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "UG20/COMS/1184", "password123"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}

	// Allow-listed accounts never touch the store.
	user, err := svc.Authenticate(context.Background(), "admin@adustech.edu.ng", "pass123")
	if err != nil || user == nil {
		t.Fatalf("expected admin login to bypass the store, got %v, %v", user, err)
	}
}

func TestAuthService_RegisteredCounts(t *testing.T) {
	t.Parallel()

	empty := NewAuthService(repository.NewUserRepository(kv.NewMemoryStore(nil), repository.DefaultAllowList()), zerolog.Nop())
	counts, err := empty.RegisteredCounts(context.Background())
	if err != nil {
		t.Fatalf("RegisteredCounts: %v", err)
	}
	if counts.Students != 0 || counts.Staff != 0 {
		t.Fatalf("expected empty counts, got %#v", counts)
	}
	if !strings.Contains(counts.Message(), "0 students and 0 staff registered") {
		t.Fatalf("unexpected message %q", counts.Message())
	}

	seeded := NewAuthService(seededUsers(t), zerolog.Nop())
	counts, _ = seeded.RegisteredCounts(context.Background())
	if counts.Students != len(repository.SeedStudents()) || counts.Staff != len(repository.SeedStaff()) {
		t.Fatalf("unexpected seeded counts %#v", counts)
	}
}
