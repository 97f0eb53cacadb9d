package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleNone    Role = ""
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
	RoleDriver  Role = "driver"
)

// Roles lists the closed set of classified roles.
var Roles = []Role{RoleStudent, RoleStaff, RoleAdmin, RoleDriver}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin, RoleDriver:
		return true
	}
	return false
}

func ParseRole(value string) (Role, error) {
	role := Role(value)
	if !role.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Profile carries the fields that only exist for one role. The unexported
// method keeps the set of variants closed to this package.
type Profile interface {
	Role() Role
	isProfile()
}

type StudentProfile struct {
	RegNumber     string `json:"regNumber"`
	Course        string `json:"course"`
	AdmissionYear int    `json:"admissionYear"`
}

type StaffProfile struct {
	StaffID    string `json:"staffId"`
	Department string `json:"department"`
}

type AdminProfile struct{}

type DriverProfile struct {
	LicenseNumber string `json:"licenseNumber,omitempty"`
	BusNumber     string `json:"busNumber,omitempty"`
}

func (StudentProfile) Role() Role { return RoleStudent }
func (StaffProfile) Role() Role   { return RoleStaff }
func (AdminProfile) Role() Role   { return RoleAdmin }
func (DriverProfile) Role() Role  { return RoleDriver }

func (StudentProfile) isProfile() {}
func (StaffProfile) isProfile()   {}
func (AdminProfile) isProfile()   {}
func (DriverProfile) isProfile()  {}

type UserRecord struct {
	ID       string
	Email    string
	Name     string
	Password string
	Profile  Profile
}

func (u UserRecord) Role() Role {
	if u.Profile == nil {
		return RoleNone
	}
	return u.Profile.Role()
}

func (u UserRecord) Student() (StudentProfile, bool) {
	p, ok := u.Profile.(StudentProfile)
	return p, ok
}

func (u UserRecord) Staff() (StaffProfile, bool) {
	p, ok := u.Profile.(StaffProfile)
	return p, ok
}

// Public returns a copy with the password cleared, suitable for snapshots
// handed back to callers.
func (u UserRecord) Public() UserRecord {
	u.Password = ""
	return u
}

type userEnvelope struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`

	RegNumber     string `json:"regNumber,omitempty"`
	Course        string `json:"course,omitempty"`
	AdmissionYear int    `json:"admissionYear,omitempty"`

	StaffID    string `json:"staffId,omitempty"`
	Department string `json:"department,omitempty"`

	LicenseNumber string `json:"licenseNumber,omitempty"`
	BusNumber     string `json:"busNumber,omitempty"`
}

func (u UserRecord) MarshalJSON() ([]byte, error) {
	env := userEnvelope{
		ID:       u.ID,
		Role:     u.Role(),
		Email:    u.Email,
		Name:     u.Name,
		Password: u.Password,
	}
	switch p := u.Profile.(type) {
	case StudentProfile:
		env.RegNumber = p.RegNumber
		env.Course = p.Course
		env.AdmissionYear = p.AdmissionYear
	case StaffProfile:
		env.StaffID = p.StaffID
		env.Department = p.Department
	case DriverProfile:
		env.LicenseNumber = p.LicenseNumber
		env.BusNumber = p.BusNumber
	case AdminProfile, nil:
	default:
		return nil, fmt.Errorf("marshal user %s: unsupported profile %T", u.ID, p)
	}
	return json.Marshal(env)
}

func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var env userEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	record := UserRecord{
		ID:       env.ID,
		Email:    env.Email,
		Name:     env.Name,
		Password: env.Password,
	}
	switch env.Role {
	case RoleStudent:
		record.Profile = StudentProfile{RegNumber: env.RegNumber, Course: env.Course, AdmissionYear: env.AdmissionYear}
	case RoleStaff:
		record.Profile = StaffProfile{StaffID: env.StaffID, Department: env.Department}
	case RoleAdmin:
		record.Profile = AdminProfile{}
	case RoleDriver:
		record.Profile = DriverProfile{LicenseNumber: env.LicenseNumber, BusNumber: env.BusNumber}
	default:
		return fmt.Errorf("unmarshal user %s: unknown role %q", env.ID, env.Role)
	}

	*u = record
	return nil
}

type SessionSnapshot struct {
	ID         string     `json:"id"`
	IsLoggedIn bool       `json:"isLoggedIn"`
	User       UserRecord `json:"user"`
	LoggedInAt time.Time  `json:"loggedInAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}
