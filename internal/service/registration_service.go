package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/identifier"
	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
	"campusbus/identity/internal/security"
)

var ErrReservedIdentifier = errors.New("identifier reserved for administrators")

type RegisterStudentInput struct {
	RegNumber     string `validate:"required,regnumber"`
	Email         string `validate:"required,email"`
	Name          string `validate:"required,min=2,max=120"`
	Password      string `validate:"required"`
	Course        string `validate:"required,max=120"`
	AdmissionYear int    `validate:"required,gte=1990,lte=2100"`
}

type RegisterStaffInput struct {
	StaffID    string `validate:"required,staffid"`
	Email      string `validate:"required,email"`
	Name       string `validate:"required,min=2,max=120"`
	Password   string `validate:"required"`
	Department string `validate:"required,max=120"`
}

type RegistrationService struct {
	users             UserStore
	validate          *validator.Validate
	classifier        *identifier.Classifier
	minPasswordLength int
	hashPasswords     bool
	log               zerolog.Logger
}

func NewRegistrationService(users UserStore, minPasswordLength int, hashPasswords bool, log zerolog.Logger) *RegistrationService {
	if minPasswordLength <= 0 {
		minPasswordLength = 6
	}
	return &RegistrationService{
		users:             users,
		validate:          NewValidator(),
		classifier:        identifier.New(nil, nil),
		minPasswordLength: minPasswordLength,
		hashPasswords:     hashPasswords,
		log:               log,
	}
}

// WithClassifier swaps the classifier used to spot reserved admin emails.
func (s *RegistrationService) WithClassifier(c *identifier.Classifier) *RegistrationService {
	if c != nil {
		s.classifier = c
	}
	return s
}

// NewValidator returns a validator that understands the campus identifier
// shapes as regnumber and staffid tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("regnumber", func(fl validator.FieldLevel) bool {
		return identifier.IsRegNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("staffid", func(fl validator.FieldLevel) bool {
		return identifier.IsStaffID(fl.Field().String())
	})
	return v
}

func (s *RegistrationService) RegisterStudent(ctx context.Context, input RegisterStudentInput) (models.UserRecord, error) {
	input.RegNumber = strings.TrimSpace(input.RegNumber)
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return models.UserRecord{}, err
	}

	return s.register(ctx, models.UserRecord{
		ID:       input.RegNumber,
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
		Profile: models.StudentProfile{
			RegNumber:     input.RegNumber,
			Course:        strings.TrimSpace(input.Course),
			AdmissionYear: input.AdmissionYear,
		},
	})
}

func (s *RegistrationService) RegisterStaff(ctx context.Context, input RegisterStaffInput) (models.UserRecord, error) {
	input.StaffID = strings.TrimSpace(input.StaffID)
	input.Email = strings.TrimSpace(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return models.UserRecord{}, err
	}

	return s.register(ctx, models.UserRecord{
		ID:       input.StaffID,
		Email:    input.Email,
		Name:     input.Name,
		Password: input.Password,
		Profile: models.StaffProfile{
			StaffID:    input.StaffID,
			Department: strings.TrimSpace(input.Department),
		},
	})
}

func (s *RegistrationService) register(ctx context.Context, record models.UserRecord) (models.UserRecord, error) {
	if len(record.Password) < s.minPasswordLength {
		return models.UserRecord{}, ErrWeakPassword
	}
	if s.classifier.DetectRole(record.Email) == models.RoleAdmin {
		return models.UserRecord{}, ErrReservedIdentifier
	}
	if err := s.ensureUnclaimed(ctx, record); err != nil {
		return models.UserRecord{}, err
	}

	if s.hashPasswords {
		hashed, err := security.HashPassword(record.Password)
		if err != nil {
			return models.UserRecord{}, err
		}
		record.Password = hashed
	}

	if err := s.users.Insert(ctx, record); err != nil {
		return models.UserRecord{}, err
	}

	s.log.Info().
		Str("user_id", record.ID).
		Str("role", string(record.Role())).
		Msg("account registered")
	return record.Public(), nil
}

// ensureUnclaimed keeps ids and emails unique across the allow-list and the
// other persisted collection. Insert enforces the same inside the target
// collection.
func (s *RegistrationService) ensureUnclaimed(ctx context.Context, record models.UserRecord) error {
	allow := s.users.AllowList()
	for _, role := range []models.Role{models.RoleAdmin, models.RoleDriver} {
		for _, key := range []string{record.ID, record.Email} {
			if _, ok := allow.Match(role, key); ok {
				return fmt.Errorf("%w: %s is already in use", repository.ErrDuplicateIdentifier, key)
			}
		}
	}

	for _, role := range []models.Role{models.RoleStaff, models.RoleStudent} {
		if role == record.Role() {
			continue
		}
		for _, key := range []string{record.ID, record.Email} {
			_, err := s.users.Lookup(ctx, role, key)
			if err == nil {
				return fmt.Errorf("%w: %s is already in use", repository.ErrDuplicateIdentifier, key)
			}
			if !errors.Is(err, repository.ErrUserNotFound) {
				return err
			}
		}
	}
	return nil
}
