package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/ids"
	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/security"
)

var ErrNoSession = errors.New("no active session")

func loggedInKey(sessionID string) string { return "session:" + sessionID + ":isLoggedIn" }
func userDataKey(sessionID string) string { return "session:" + sessionID + ":userData" }

type Options struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// Manager records who is signed in on a client. Each session lives under two
// keys: a logged-in flag and the user snapshot.
type Manager struct {
	store kv.Store
	opts  Options
	log   zerolog.Logger
}

func NewManager(store kv.Store, opts Options, log zerolog.Logger) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{store: store, opts: opts, log: log}
}

type Issued struct {
	Snapshot models.SessionSnapshot
	Token    string
}

// Login stores a snapshot of user and returns the bearer token naming it.
func (m *Manager) Login(ctx context.Context, user models.UserRecord) (Issued, error) {
	now := m.opts.Now()
	snapshot := models.SessionSnapshot{
		ID:         ids.New(),
		IsLoggedIn: true,
		User:       user.Public(),
		LoggedInAt: now,
		ExpiresAt:  now.Add(m.opts.TTL),
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Issued{}, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, userDataKey(snapshot.ID), raw, m.opts.TTL); err != nil {
		return Issued{}, fmt.Errorf("store session: %w", err)
	}
	if err := m.store.Set(ctx, loggedInKey(snapshot.ID), []byte("true"), m.opts.TTL); err != nil {
		_ = m.store.Delete(ctx, userDataKey(snapshot.ID))
		return Issued{}, fmt.Errorf("store session flag: %w", err)
	}

	token, err := security.GenerateSessionToken(m.opts.Secret, snapshot.ID, user.ID, string(user.Role()), now, m.opts.TTL)
	if err != nil {
		_ = m.store.Delete(ctx, loggedInKey(snapshot.ID), userDataKey(snapshot.ID))
		return Issued{}, err
	}

	m.log.Info().
		Str("session_id", snapshot.ID).
		Str("user_id", user.ID).
		Msg("session started")
	return Issued{Snapshot: snapshot, Token: token}, nil
}

// Current returns the live session for sessionID. A missing flag, a flag
// other than "true", or missing user data all mean nobody is signed in.
func (m *Manager) Current(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	if sessionID == "" {
		return models.SessionSnapshot{}, ErrNoSession
	}

	flag, err := m.store.Get(ctx, loggedInKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return models.SessionSnapshot{}, ErrNoSession
		}
		return models.SessionSnapshot{}, err
	}
	if string(flag) != "true" {
		return models.SessionSnapshot{}, ErrNoSession
	}

	raw, err := m.store.Get(ctx, userDataKey(sessionID))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return models.SessionSnapshot{}, ErrNoSession
		}
		return models.SessionSnapshot{}, err
	}

	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("decode session: %w", err)
	}
	if !snapshot.ExpiresAt.IsZero() && m.opts.Now().After(snapshot.ExpiresAt) {
		return models.SessionSnapshot{}, ErrNoSession
	}
	return snapshot, nil
}

// Authenticate resolves a bearer token to its live session.
func (m *Manager) Authenticate(ctx context.Context, token string) (models.SessionSnapshot, error) {
	claims, err := security.ParseSessionToken(token, m.opts.Secret)
	if err != nil {
		return models.SessionSnapshot{}, ErrNoSession
	}
	snapshot, err := m.Current(ctx, claims.SessionID)
	if err != nil {
		return models.SessionSnapshot{}, err
	}
	if snapshot.User.ID != claims.UserID {
		return models.SessionSnapshot{}, ErrNoSession
	}
	return snapshot, nil
}

// Logout removes both session keys. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, loggedInKey(sessionID), userDataKey(sessionID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info().Str("session_id", sessionID).Msg("session ended")
	return nil
}

func (m *Manager) TTL() time.Duration {
	return m.opts.TTL
}
