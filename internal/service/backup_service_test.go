package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/repository"
)

type memorySink struct {
	objects map[string][]byte
}

func (m *memorySink) PutSnapshot(_ context.Context, name string, data []byte) (string, error) {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[name] = data
	return "snapshots/" + name, nil
}

func TestBackupService_Upload(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	at := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	svc := NewBackupService(seededUsers(t), sink, func() time.Time { return at }, zerolog.Nop())

	location, err := svc.Upload(context.Background())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if location != "snapshots/accounts/20250301T023000Z.json" {
		t.Fatalf("unexpected location %q", location)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(sink.objects["accounts/20250301T023000Z.json"], &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Students) != len(repository.SeedStudents()) || len(snapshot.Staff) != len(repository.SeedStaff()) {
		t.Fatalf("unexpected snapshot sizes %d/%d", len(snapshot.Students), len(snapshot.Staff))
	}
	for i := 1; i < len(snapshot.Students); i++ {
		if strings.Compare(snapshot.Students[i-1].ID, snapshot.Students[i].ID) > 0 {
			t.Fatal("snapshot students not sorted by id")
		}
	}
	if strings.Contains(string(sink.objects["accounts/20250301T023000Z.json"]), `"password"`) {
		t.Fatal("snapshot carries passwords")
	}
}

func TestBackupService_TakeLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	users := seededUsers(t)
	snapshot, err := NewBackupService(users, nil, nil, zerolog.Nop()).Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	for _, record := range append(snapshot.Students, snapshot.Staff...) {
		if record.Password != "" {
			t.Fatalf("%s exported with a password", record.ID)
		}
	}
	if user, _ := NewAuthService(users, zerolog.Nop()).Authenticate(context.Background(), "UG20/COMS/1184", "password123"); user == nil {
		t.Fatal("stored password lost after a snapshot")
	}
}

func TestBackupService_Disabled(t *testing.T) {
	t.Parallel()

	svc := NewBackupService(seededUsers(t), nil, nil, zerolog.Nop())
	if svc.Enabled() {
		t.Fatal("expected backups to be disabled without a sink")
	}
	if _, err := svc.Upload(context.Background()); !errors.Is(err, ErrBackupDisabled) {
		t.Fatalf("expected ErrBackupDisabled, got %v", err)
	}
}
