package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campusbus/identity/internal/models"
	"campusbus/identity/internal/repository"
)

var ErrBackupDisabled = errors.New("snapshot storage not configured")

type SnapshotSink interface {
	PutSnapshot(ctx context.Context, name string, data []byte) (string, error)
}

type CollectionReader interface {
	Collection(ctx context.Context, role models.Role) (repository.Collection, error)
}

type Snapshot struct {
	TakenAt  time.Time           `json:"takenAt"`
	Students []models.UserRecord `json:"students"`
	Staff    []models.UserRecord `json:"staff"`
}

type BackupService struct {
	users CollectionReader
	sink  SnapshotSink
	now   func() time.Time
	log   zerolog.Logger
}

// NewBackupService returns a service that exports the persisted
// collections. A nil sink disables uploads.
func NewBackupService(users CollectionReader, sink SnapshotSink, now func() time.Time, log zerolog.Logger) *BackupService {
	if now == nil {
		now = time.Now
	}
	return &BackupService{users: users, sink: sink, now: now, log: log}
}

func (s *BackupService) Enabled() bool {
	return s.sink != nil
}

// Take builds a snapshot of the student and staff collections. Passwords and
// password hashes are left out.
func (s *BackupService) Take(ctx context.Context) (Snapshot, error) {
	students, err := s.users.Collection(ctx, models.RoleStudent)
	if err != nil {
		return Snapshot{}, err
	}
	staff, err := s.users.Collection(ctx, models.RoleStaff)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		TakenAt:  s.now().UTC(),
		Students: publicRecords(students.Sorted()),
		Staff:    publicRecords(staff.Sorted()),
	}, nil
}

func publicRecords(records []models.UserRecord) []models.UserRecord {
	for i := range records {
		records[i] = records[i].Public()
	}
	return records
}

// Upload takes a snapshot and writes it to the sink, returning its location.
func (s *BackupService) Upload(ctx context.Context) (string, error) {
	if s.sink == nil {
		return "", ErrBackupDisabled
	}

	snapshot, err := s.Take(ctx)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("accounts/%s.json", snapshot.TakenAt.Format("20060102T150405Z"))
	location, err := s.sink.PutSnapshot(ctx, name, raw)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("location", location).
		Int("students", len(snapshot.Students)).
		Int("staff", len(snapshot.Staff)).
		Msg("account snapshot uploaded")
	return location, nil
}
