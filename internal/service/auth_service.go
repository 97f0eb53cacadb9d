package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/metrics"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/security"
)

// Authenticator resolves an identifier and password to an account. A miss
// is reported as a nil record with a nil error.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier string, password string) (*models.UserRecord, error)
}

type UserStore interface {
	Lookup(ctx context.Context, role models.Role, key string) (models.UserRecord, error)
	CountUnique(ctx context.Context, role models.Role) (int, error)
	UpdatePassword(ctx context.Context, role models.Role, id string, password string) (string, error)
	Insert(ctx context.Context, record models.UserRecord) error
	AllowList() repository.AllowList
}

type AuthService struct {
	users UserStore
	log   zerolog.Logger
}

var _ Authenticator = (*AuthService)(nil)

func NewAuthService(users UserStore, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		log:   log,
	}
}

// Authenticate checks the admin allow-list, then drivers, then staff, then
// students. The first account whose id or email equals identifier and whose
// password verifies wins.
func (s *AuthService) Authenticate(ctx context.Context, identifier string, password string) (*models.UserRecord, error) {
	if identifier == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("none", "rejected").Inc()
		return nil, nil
	}

	allow := s.users.AllowList()
	for _, role := range []models.Role{models.RoleAdmin, models.RoleDriver} {
		if record, ok := allow.Match(role, identifier); ok && security.VerifyPassword(record, password) {
			return s.matched(record), nil
		}
	}

	for _, role := range []models.Role{models.RoleStaff, models.RoleStudent} {
		record, err := s.users.Lookup(ctx, role, identifier)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				continue
			}
			metrics.LoginAttempts.WithLabelValues(string(role), "error").Inc()
			return nil, fmt.Errorf("lookup %s: %w", role, err)
		}
		if security.VerifyPassword(record, password) {
			return s.matched(record), nil
		}
	}

	metrics.LoginAttempts.WithLabelValues("none", "rejected").Inc()
	s.log.Info().Str("identifier", identifier).Msg("authentication rejected")
	return nil, nil
}

func (s *AuthService) matched(record models.UserRecord) *models.UserRecord {
	metrics.LoginAttempts.WithLabelValues(string(record.Role()), "accepted").Inc()
	s.log.Info().
		Str("user_id", record.ID).
		Str("role", string(record.Role())).
		Msg("authentication succeeded")
	public := record.Public()
	return &public
}

type RegisteredCounts struct {
	Students int `json:"students"`
	Staff    int `json:"staff"`
}

// Message renders the hint shown after a failed login.
func (c RegisteredCounts) Message() string {
	return fmt.Sprintf("Invalid credentials. %d students and %d staff registered.", c.Students, c.Staff)
}

func (s *AuthService) RegisteredCounts(ctx context.Context) (RegisteredCounts, error) {
	students, err := s.users.CountUnique(ctx, models.RoleStudent)
	if err != nil {
		return RegisteredCounts{}, err
	}
	staff, err := s.users.CountUnique(ctx, models.RoleStaff)
	if err != nil {
		return RegisteredCounts{}, err
	}

	metrics.RegisteredAccounts.WithLabelValues(string(models.RoleStudent)).Set(float64(students))
	metrics.RegisteredAccounts.WithLabelValues(string(models.RoleStaff)).Set(float64(staff))

	return RegisteredCounts{Students: students, Staff: staff}, nil
}
