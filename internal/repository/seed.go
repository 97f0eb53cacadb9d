package repository

import "campusbus/identity/internal/models"

// AllowList holds the fixed admin and driver accounts. They are compiled in
// and never persisted.
type AllowList struct {
	Admins  []models.UserRecord
	Drivers []models.UserRecord
}

func DefaultAllowList() AllowList {
	return AllowList{
		Admins: []models.UserRecord{
			{
				ID:       "ADM001",
				Email:    "admin@adustech.edu.ng",
				Name:     "Transport Administrator",
				Password: "pass123",
				Profile:  models.AdminProfile{},
			},
		},
		Drivers: []models.UserRecord{
			{
				ID:       "DRV001",
				Email:    "driver@adustech.edu.ng",
				Name:     "Ibrahim Garba",
				Password: "driver123",
				Profile:  models.DriverProfile{LicenseNumber: "KAN-4471-DL", BusNumber: "BUS-01"},
			},
			{
				ID:       "DRV002",
				Email:    "driver2@adustech.edu.ng",
				Name:     "Sani Abdullahi",
				Password: "driver123",
				Profile:  models.DriverProfile{LicenseNumber: "KAN-5520-DL", BusNumber: "BUS-02"},
			},
		},
	}
}

func (a AllowList) records(role models.Role) []models.UserRecord {
	switch role {
	case models.RoleAdmin:
		return a.Admins
	case models.RoleDriver:
		return a.Drivers
	}
	return nil
}

// Collection exposes the allow-list for role in the same shape as a
// persisted collection.
func (a AllowList) Collection(role models.Role) Collection {
	collection := newCollection()
	for _, record := range a.records(role) {
		collection.Records[record.ID] = record
		collection.EmailIndex[record.Email] = record.ID
	}
	return collection
}

// Match returns the allow-listed account whose id or email equals
// identifier exactly.
func (a AllowList) Match(role models.Role, identifier string) (models.UserRecord, bool) {
	for _, record := range a.records(role) {
		if record.ID == identifier || record.Email == identifier {
			return record, true
		}
	}
	return models.UserRecord{}, false
}

func SeedStudents() []models.UserRecord {
	return []models.UserRecord{
		{
			ID:       "UG20/COMS/1184",
			Email:    "aisha.bello@adustech.edu.ng",
			Name:     "Aisha Bello",
			Password: "password123",
			Profile:  models.StudentProfile{RegNumber: "UG20/COMS/1184", Course: "Computer Science", AdmissionYear: 2020},
		},
		{
			ID:       "UG21/SENG/1023",
			Email:    "musa.ibrahim@adustech.edu.ng",
			Name:     "Musa Ibrahim",
			Password: "password123",
			Profile:  models.StudentProfile{RegNumber: "UG21/SENG/1023", Course: "Software Engineering", AdmissionYear: 2021},
		},
		{
			ID:       "UG22/CYBS/2045",
			Email:    "fatima.yusuf@adustech.edu.ng",
			Name:     "Fatima Yusuf",
			Password: "password123",
			Profile:  models.StudentProfile{RegNumber: "UG22/CYBS/2045", Course: "Cyber Security", AdmissionYear: 2022},
		},
	}
}

func SeedStaff() []models.UserRecord {
	return []models.UserRecord{
		{
			ID:       "Staff/Adustech/1001",
			Email:    "staff.usman@adustech.edu.ng",
			Name:     "Dr. Usman Sani",
			Password: "password123",
			Profile:  models.StaffProfile{StaffID: "Staff/Adustech/1001", Department: "Computer Science"},
		},
		{
			ID:       "Staff/Adustech/1002",
			Email:    "staff.hauwa@adustech.edu.ng",
			Name:     "Hauwa Abubakar",
			Password: "password123",
			Profile:  models.StaffProfile{StaffID: "Staff/Adustech/1002", Department: "Works and Transport"},
		},
	}
}
