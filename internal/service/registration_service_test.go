package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
)

func validStudent() RegisterStudentInput {
	return RegisterStudentInput{
		RegNumber:     "UG23/COMS/3001",
		Email:         "zainab.abdullahi@adustech.edu.ng",
		Name:          "Zainab Abdullahi",
		Password:      "secret99",
		Course:        "Computer Science",
		AdmissionYear: 2023,
	}
}

func validStaff() RegisterStaffInput {
	return RegisterStaffInput{
		StaffID:    "Staff/Adustech/1010",
		Email:      "staff.halima@adustech.edu.ng",
		Name:       "Halima Sani",
		Password:   "secret99",
		Department: "Transport",
	}
}

func TestRegistrationService_RegisterStudent(t *testing.T) {
	t.Parallel()

	users := seededUsers(t)
	svc := NewRegistrationService(users, 6, false, zerolog.Nop())
	auth := NewAuthService(users, zerolog.Nop())
	ctx := context.Background()

	record, err := svc.RegisterStudent(ctx, validStudent())
	if err != nil {
		t.Fatalf("RegisterStudent: %v", err)
	}
	if record.Password != "" || record.Role() != models.RoleStudent {
		t.Fatalf("unexpected record %#v", record)
	}

	for _, identifier := range []string{"UG23/COMS/3001", "zainab.abdullahi@adustech.edu.ng"} {
		if user, _ := auth.Authenticate(ctx, identifier, "secret99"); user == nil {
			t.Fatalf("new student cannot sign in with %s", identifier)
		}
	}

	counts, _ := auth.RegisteredCounts(ctx)
	if counts.Students != len(repository.SeedStudents())+1 {
		t.Fatalf("expected one more student, got %d", counts.Students)
	}
}

func TestRegistrationService_ExistingAccountIsNotReplaced(t *testing.T) {
	t.Parallel()

	users := seededUsers(t)
	svc := NewRegistrationService(users, 6, false, zerolog.Nop())
	auth := NewAuthService(users, zerolog.Nop())
	ctx := context.Background()

	input := validStudent()
	input.RegNumber = "UG20/COMS/1184"
	input.Email = "aisha.bello@adustech.edu.ng"
	input.Password = "hijacked1"

	if _, err := svc.RegisterStudent(ctx, input); !errors.Is(err, repository.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
	if user, _ := auth.Authenticate(ctx, "UG20/COMS/1184", "password123"); user == nil {
		t.Fatal("original password no longer accepted")
	}
	if user, _ := auth.Authenticate(ctx, "UG20/COMS/1184", "hijacked1"); user != nil {
		t.Fatal("registration replaced an existing account")
	}
}

func TestRegistrationService_RegisterStaffHashed(t *testing.T) {
	t.Parallel()

	users := seededUsers(t)
	svc := NewRegistrationService(users, 6, true, zerolog.Nop())
	ctx := context.Background()

	if _, err := svc.RegisterStaff(ctx, validStaff()); err != nil {
		t.Fatalf("RegisterStaff: %v", err)
	}
	stored, err := users.Lookup(ctx, models.RoleStaff, "staff.halima@adustech.edu.ng")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if stored.Password == "secret99" {
		t.Fatal("password stored in plaintext")
	}
	if user, _ := NewAuthService(users, zerolog.Nop()).Authenticate(ctx, "Staff/Adustech/1010", "secret99"); user == nil {
		t.Fatal("hashed staff password did not verify")
	}
}

func TestRegistrationService_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*RegisterStudentInput)
		wantErr error
		wantVal bool
	}{
		{name: "malformed reg number", mutate: func(in *RegisterStudentInput) { in.RegNumber = "12345" }, wantVal: true},
		{name: "malformed email", mutate: func(in *RegisterStudentInput) { in.Email = "zainab.adustech" }, wantVal: true},
		{name: "short password", mutate: func(in *RegisterStudentInput) { in.Password = "abc" }, wantErr: ErrWeakPassword},
		{name: "admin shaped email", mutate: func(in *RegisterStudentInput) { in.Email = "admin.transport@adustech.edu.ng" }, wantErr: ErrReservedIdentifier},
		{name: "existing student id", mutate: func(in *RegisterStudentInput) { in.RegNumber = "UG20/COMS/1184" }, wantErr: repository.ErrDuplicateIdentifier},
		{name: "existing student email", mutate: func(in *RegisterStudentInput) { in.Email = "aisha.bello@adustech.edu.ng" }, wantErr: repository.ErrDuplicateIdentifier},
		{name: "email owned by staff", mutate: func(in *RegisterStudentInput) { in.Email = "staff.usman@adustech.edu.ng" }, wantErr: repository.ErrDuplicateIdentifier},
		{name: "email owned by driver", mutate: func(in *RegisterStudentInput) { in.Email = "driver@adustech.edu.ng" }, wantErr: repository.ErrDuplicateIdentifier},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewRegistrationService(seededUsers(t), 6, false, zerolog.Nop())
			input := validStudent()
			tt.mutate(&input)

			_, err := svc.RegisterStudent(context.Background(), input)
			if err == nil {
				t.Fatal("expected registration to fail")
			}
			if tt.wantVal {
				var vErrs validator.ValidationErrors
				if !errors.As(err, &vErrs) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if ErrorKind(err) != "validation" {
					t.Fatalf("unexpected kind %q", ErrorKind(err))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistrationService_StaffIdShape(t *testing.T) {
	t.Parallel()

	svc := NewRegistrationService(seededUsers(t), 6, false, zerolog.Nop())
	input := validStaff()
	input.StaffID = "UG20/COMS/1184"

	var vErrs validator.ValidationErrors
	if _, err := svc.RegisterStaff(context.Background(), input); !errors.As(err, &vErrs) {
		t.Fatalf("expected validation error for a registration number as staff id, got %v", err)
	}
}
