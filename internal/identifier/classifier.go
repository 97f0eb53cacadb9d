// Package identifier maps the string a user types on the login form to the
// role it most likely belongs to. Classification is pure and cheap enough to
// run on every keystroke.
package identifier

import (
	"regexp"
	"strings"

	"campusbus/identity/internal/models"
)

var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	staffIDPattern   = regexp.MustCompile(`(?i)^staff/[a-z0-9]+/\d+$`)
	driverIDPattern  = regexp.MustCompile(`(?i)^(driver/[a-z0-9]+/\d+|drv\d+)$`)
	regNumberPattern = regexp.MustCompile(`(?i)^([a-z]{2,3}\d{2}|\d{2}[a-z]{2,3})/[a-z]{2,8}/\d{1,6}$`)

	DefaultAdminEmailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(super)?admin([._-]?[a-z0-9]+)*@`),
	}
	DefaultStaffEmailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^staff[a-z0-9._-]*@`),
		regexp.MustCompile(`(?i)@staff\.`),
	}
)

// Classifier applies the role rules in a fixed precedence: email, staff id,
// driver id, registration number. An email is checked against the admin
// patterns before the staff patterns and falls back to student.
type Classifier struct {
	AdminEmailPatterns []*regexp.Regexp
	StaffEmailPatterns []*regexp.Regexp
}

var defaultClassifier = New(nil, nil)

func New(adminPatterns, staffPatterns []*regexp.Regexp) *Classifier {
	if len(adminPatterns) == 0 {
		adminPatterns = DefaultAdminEmailPatterns
	}
	if len(staffPatterns) == 0 {
		staffPatterns = DefaultStaffEmailPatterns
	}
	return &Classifier{
		AdminEmailPatterns: adminPatterns,
		StaffEmailPatterns: staffPatterns,
	}
}

// CompilePatterns compiles configured expressions, skipping blank entries.
func CompilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

func DetectRole(identifier string) models.Role {
	return defaultClassifier.DetectRole(identifier)
}

func (c *Classifier) DetectRole(identifier string) models.Role {
	value := strings.TrimSpace(identifier)
	if value == "" {
		return models.RoleNone
	}

	if strings.Contains(value, "@") {
		if !emailPattern.MatchString(value) {
			return models.RoleNone
		}
		if matchAny(c.AdminEmailPatterns, value) {
			return models.RoleAdmin
		}
		if matchAny(c.StaffEmailPatterns, value) {
			return models.RoleStaff
		}
		return models.RoleStudent
	}

	switch {
	case staffIDPattern.MatchString(value):
		return models.RoleStaff
	case driverIDPattern.MatchString(value):
		return models.RoleDriver
	case regNumberPattern.MatchString(value):
		return models.RoleStudent
	}
	return models.RoleNone
}

func IsEmail(identifier string) bool {
	return emailPattern.MatchString(strings.TrimSpace(identifier))
}

func IsRegNumber(identifier string) bool {
	return regNumberPattern.MatchString(strings.TrimSpace(identifier))
}

func IsStaffID(identifier string) bool {
	return staffIDPattern.MatchString(strings.TrimSpace(identifier))
}

// Hint is the label shown next to the identifier field.
func Hint(role models.Role) string {
	switch role {
	case models.RoleStudent:
		return "Student registration number detected"
	case models.RoleStaff:
		return "Staff account detected"
	case models.RoleAdmin:
		return "Administrator account detected"
	case models.RoleDriver:
		return "Driver account detected"
	}
	return ""
}

func matchAny(patterns []*regexp.Regexp, value string) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
