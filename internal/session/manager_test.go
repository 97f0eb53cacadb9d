package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
)

func student() models.UserRecord {
	return repository.SeedStudents()[0]
}

func newManager(store kv.Store, now func() time.Time) *Manager {
	return NewManager(store, Options{Secret: "test-secret", TTL: time.Hour, Now: now}, zerolog.Nop())
}

func TestManager_LoginCurrentLogout(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore(nil)
	m := newManager(store, nil)
	ctx := context.Background()

	issued, err := m.Login(ctx, student())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if issued.Token == "" || issued.Snapshot.ID == "" {
		t.Fatalf("expected token and session id, got %#v", issued)
	}
	if issued.Snapshot.User.Password != "" {
		t.Fatal("session snapshot must not carry the password")
	}

	flag, err := store.Get(ctx, "session:"+issued.Snapshot.ID+":isLoggedIn")
	if err != nil || string(flag) != "true" {
		t.Fatalf("expected logged-in flag, got %q, %v", flag, err)
	}

	current, err := m.Authenticate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if current.User.ID != student().ID || !current.IsLoggedIn {
		t.Fatalf("unexpected session %#v", current)
	}

	if err := m.Logout(ctx, issued.Snapshot.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := m.Current(ctx, issued.Snapshot.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session after logout, got %v", err)
	}
	if err := m.Logout(ctx, issued.Snapshot.ID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestManager_FlagMustBeTrue(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore(nil)
	m := newManager(store, nil)
	ctx := context.Background()

	issued, err := m.Login(ctx, student())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := store.Set(ctx, "session:"+issued.Snapshot.ID+":isLoggedIn", []byte("false"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := m.Current(ctx, issued.Snapshot.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session, got %v", err)
	}

	if err := store.Delete(ctx, "session:"+issued.Snapshot.ID+":isLoggedIn"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Current(ctx, issued.Snapshot.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected no session without a flag, got %v", err)
	}
}

func TestManager_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	store := kv.NewMemoryStore(clock)
	m := newManager(store, clock)
	ctx := context.Background()

	issued, err := m.Login(ctx, student())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !issued.Snapshot.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", issued.Snapshot.ExpiresAt)
	}

	now = now.Add(time.Hour + time.Minute)
	if _, err := m.Current(ctx, issued.Snapshot.ID); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected session to expire, got %v", err)
	}
}

func TestManager_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore(nil)
	m := newManager(store, nil)
	other := NewManager(store, Options{Secret: "other-secret"}, zerolog.Nop())
	ctx := context.Background()

	issued, err := other.Login(ctx, student())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := m.Authenticate(ctx, issued.Token); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected token signed with another secret to fail, got %v", err)
	}
	if _, err := m.Authenticate(ctx, "garbage"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected garbage token to fail, got %v", err)
	}
}

func TestDashboardPath(t *testing.T) {
	t.Parallel()

	tests := map[models.Role]string{
		models.RoleStudent: "/student-dashboard",
		models.RoleStaff:   "/staff-dashboard",
		models.RoleAdmin:   "/admin-dashboard",
		models.RoleDriver:  "/driver-dashboard",
		models.RoleNone:    "/login",
		models.Role("x"):   "/login",
	}
	for role, want := range tests {
		if got := DashboardPath(role); got != want {
			t.Errorf("DashboardPath(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := DisplayName(models.UserRecord{ID: "DRV001", Name: "Sani Driver"}); got != "Sani Driver" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayName(models.UserRecord{ID: "DRV001"}); got != "DRV001" {
		t.Fatalf("got %q", got)
	}
}
