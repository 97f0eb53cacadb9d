package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/ids"
	"campusbus/identity/internal/metrics"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/security"
)

var (
	ErrTokenMissing      = errors.New("no reset token provided")
	ErrTokenInvalid      = errors.New("invalid reset token")
	ErrTokenExpired      = errors.New("reset token expired")
	ErrTokenConsumed     = errors.New("reset token already used")
	ErrTargetUserMissing = errors.New("reset target no longer exists")
	ErrWeakPassword      = errors.New("password too short")
	ErrUnknownAccount    = errors.New("no account matches identifier")
)

const EventPasswordResetRequested = "password_reset_requested"

type TokenStore interface {
	Create(ctx context.Context, token models.ResetToken) error
	Get(ctx context.Context, tokenHash string) (models.ResetToken, error)
	MarkConsumed(ctx context.Context, tokenHash string, at time.Time) error
	Purge(ctx context.Context, now time.Time) (int, error)
}

// Notifier hands reset requests to whatever delivers the link.
type Notifier interface {
	Publish(ctx context.Context, values map[string]any) (string, error)
}

type ResetOptions struct {
	TTL               time.Duration
	MinPasswordLength int
	HashPasswords     bool
	Now               func() time.Time
}

type ResetService struct {
	users    UserStore
	tokens   TokenStore
	notifier Notifier
	opts     ResetOptions
	log      zerolog.Logger

	// serialises validate, password write and consumption
	mu sync.Mutex
}

func NewResetService(users UserStore, tokens TokenStore, notifier Notifier, opts ResetOptions, log zerolog.Logger) *ResetService {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ResetService{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Subject   models.UserRecord
}

// Issue starts a forgot-password flow for the staff or student account that
// identifier names.
func (s *ResetService) Issue(ctx context.Context, identifier string) (IssuedToken, error) {
	if identifier == "" {
		return IssuedToken{}, ErrUnknownAccount
	}

	subject, err := s.resolveSubject(ctx, identifier)
	if err != nil {
		return IssuedToken{}, err
	}

	raw, hash, err := security.GenerateResetToken(32)
	if err != nil {
		return IssuedToken{}, err
	}

	now := s.opts.Now()
	token := models.ResetToken{
		TokenHash:   hash,
		Subject:     identifier,
		SubjectID:   subject.ID,
		SubjectRole: subject.Role(),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.opts.TTL),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return IssuedToken{}, fmt.Errorf("store reset token: %w", err)
	}
	metrics.ResetTokensIssued.Inc()

	if s.notifier != nil {
		_, err := s.notifier.Publish(ctx, map[string]any{
			"id":        ids.New(),
			"type":      EventPasswordResetRequested,
			"userId":    subject.ID,
			"email":     subject.Email,
			"name":      subject.Name,
			"token":     raw,
			"expiresAt": token.ExpiresAt.Format(time.RFC3339),
		})
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", subject.ID).Msg("publish reset notification failed")
		}
	}

	s.log.Info().
		Str("user_id", subject.ID).
		Time("expires_at", token.ExpiresAt).
		Msg("reset token issued")

	return IssuedToken{Token: raw, ExpiresAt: token.ExpiresAt, Subject: subject.Public()}, nil
}

func (s *ResetService) resolveSubject(ctx context.Context, identifier string) (models.UserRecord, error) {
	for _, role := range []models.Role{models.RoleStaff, models.RoleStudent} {
		record, err := s.users.Lookup(ctx, role, identifier)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return models.UserRecord{}, err
		}
	}
	return models.UserRecord{}, ErrUnknownAccount
}

type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// Validate reports whether token could authorize a password change now.
func (s *ResetService) Validate(ctx context.Context, token string) ValidationResult {
	if _, err := s.check(ctx, token); err != nil {
		return ValidationResult{Error: s.Message(err), Err: err}
	}
	return ValidationResult{Valid: true}
}

func (s *ResetService) check(ctx context.Context, raw string) (models.ResetToken, error) {
	if raw == "" {
		return models.ResetToken{}, ErrTokenMissing
	}

	token, err := s.tokens.Get(ctx, security.HashResetToken(raw))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return models.ResetToken{}, ErrTokenInvalid
		}
		return models.ResetToken{}, fmt.Errorf("load reset token: %w", err)
	}
	if token.Expired(s.opts.Now()) {
		return token, ErrTokenExpired
	}
	if token.Consumed {
		return token, ErrTokenConsumed
	}
	return token, nil
}

type ResetResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// ResetPassword redeems token. The password write and the token consumption
// either both happen or neither does.
func (s *ResetService) ResetPassword(ctx context.Context, raw string, newPassword string) ResetResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.resetPassword(ctx, raw, newPassword)
	outcome := "success"
	if !result.Success {
		outcome = ErrorKind(result.Err)
	}
	metrics.PasswordResets.WithLabelValues(outcome).Inc()
	return result
}

func (s *ResetService) resetPassword(ctx context.Context, raw string, newPassword string) ResetResult {
	token, err := s.check(ctx, raw)
	if err != nil {
		return s.fail(err)
	}
	if len(newPassword) < s.opts.MinPasswordLength {
		return s.fail(ErrWeakPassword)
	}

	if _, err := s.users.Lookup(ctx, token.SubjectRole, token.SubjectID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.fail(ErrTargetUserMissing)
		}
		return s.fail(err)
	}

	stored := newPassword
	if s.opts.HashPasswords {
		if stored, err = security.HashPassword(newPassword); err != nil {
			return s.fail(err)
		}
	}

	previous, err := s.users.UpdatePassword(ctx, token.SubjectRole, token.SubjectID, stored)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.fail(ErrTargetUserMissing)
		}
		return s.fail(err)
	}

	if err := s.tokens.MarkConsumed(ctx, token.TokenHash, s.opts.Now()); err != nil {
		if _, rbErr := s.users.UpdatePassword(ctx, token.SubjectRole, token.SubjectID, previous); rbErr != nil {
			s.log.Error().Err(rbErr).Str("user_id", token.SubjectID).Msg("password rollback failed")
		}
		return s.fail(fmt.Errorf("consume reset token: %w", err))
	}

	s.log.Info().Str("user_id", token.SubjectID).Msg("password reset")
	return ResetResult{Success: true, Message: "Your password has been reset. You can now sign in with your new password."}
}

func (s *ResetService) fail(err error) ResetResult {
	if ErrorKind(err) == "unexpected" {
		s.log.Error().Err(err).Msg("password reset failed")
	}
	return ResetResult{Message: s.Message(err), Err: err}
}

// PurgeExpired drops tokens past their expiry.
func (s *ResetService) PurgeExpired(ctx context.Context) (int, error) {
	return s.tokens.Purge(ctx, s.opts.Now())
}

// Message maps reset errors to the sentence shown to the user.
func (s *ResetService) Message(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "No reset token provided"
	case errors.Is(err, ErrTokenInvalid):
		return "Invalid token"
	case errors.Is(err, ErrTokenExpired):
		return fmt.Sprintf("This reset link has expired. Reset links are valid for %s; request a new one.", humanWindow(s.opts.TTL))
	case errors.Is(err, ErrTokenConsumed):
		return "This reset link has already been used. Request a new one if you still need to change your password."
	case errors.Is(err, ErrTargetUserMissing):
		return "The account linked to this reset request no longer exists."
	case errors.Is(err, ErrWeakPassword):
		return fmt.Sprintf("Password must be at least %d characters.", s.opts.MinPasswordLength)
	}
	return "Something went wrong while resetting your password. Please try again."
}

func humanWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
