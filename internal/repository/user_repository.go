package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"campusbus/identity/internal/kv"
	"campusbus/identity/internal/models"
)

const (
	StudentCollectionKey = "registeredUsers"
	StaffCollectionKey   = "registeredStaff"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrReadOnlyCollection  = errors.New("collection is a fixed allow-list")
	ErrInvalidRecord       = errors.New("invalid user record")
)

// Collection is one persisted role collection. Records are keyed by id and
// EmailIndex maps every record's email to its id.
type Collection struct {
	Records    map[string]models.UserRecord `json:"records"`
	EmailIndex map[string]string            `json:"emailIndex"`
}

func newCollection() Collection {
	return Collection{
		Records:    make(map[string]models.UserRecord),
		EmailIndex: make(map[string]string),
	}
}

// Lookup resolves key as an id first and then as an email.
func (c Collection) Lookup(key string) (models.UserRecord, bool) {
	if record, ok := c.Records[key]; ok {
		return record, true
	}
	if id, ok := c.EmailIndex[key]; ok {
		record, ok := c.Records[id]
		return record, ok
	}
	return models.UserRecord{}, false
}

func (c Collection) Len() int {
	return len(c.Records)
}

// Sorted returns records ordered by id.
func (c Collection) Sorted() []models.UserRecord {
	out := make([]models.UserRecord, 0, len(c.Records))
	for _, record := range c.Records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type UserRepository struct {
	store     kv.Store
	allowList AllowList
	mu        sync.Mutex
}

func NewUserRepository(store kv.Store, allowList AllowList) *UserRepository {
	return &UserRepository{store: store, allowList: allowList}
}

func (r *UserRepository) AllowList() AllowList {
	return r.allowList
}

func collectionKey(role models.Role) (string, error) {
	switch role {
	case models.RoleStudent:
		return StudentCollectionKey, nil
	case models.RoleStaff:
		return StaffCollectionKey, nil
	case models.RoleAdmin, models.RoleDriver:
		return "", ErrReadOnlyCollection
	}
	return "", fmt.Errorf("unknown role %q", role)
}

// Collection returns the records held for role. Admin and driver resolve to
// the fixed allow-list.
func (r *UserRepository) Collection(ctx context.Context, role models.Role) (Collection, error) {
	switch role {
	case models.RoleAdmin, models.RoleDriver:
		return r.allowList.Collection(role), nil
	}
	return r.load(ctx, role)
}

func (r *UserRepository) load(ctx context.Context, role models.Role) (Collection, error) {
	key, err := collectionKey(role)
	if err != nil {
		return Collection{}, err
	}

	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return newCollection(), nil
		}
		return Collection{}, fmt.Errorf("load %s: %w", key, err)
	}

	collection := newCollection()
	if err := json.Unmarshal(raw, &collection); err != nil {
		return Collection{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if collection.Records == nil {
		collection.Records = make(map[string]models.UserRecord)
	}
	if collection.EmailIndex == nil {
		collection.EmailIndex = make(map[string]string)
	}
	return collection, nil
}

func (r *UserRepository) save(ctx context.Context, role models.Role, collection Collection) error {
	key, err := collectionKey(role)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, raw, 0); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Upsert writes record into its role's collection together with its email
// index entry. An existing record with the same id and email is replaced.
func (r *UserRepository) Upsert(ctx context.Context, record models.UserRecord) error {
	return r.write(ctx, record, true)
}

// Insert adds record only when neither its id nor its email is already
// known to the collection.
func (r *UserRepository) Insert(ctx context.Context, record models.UserRecord) error {
	return r.write(ctx, record, false)
}

func (r *UserRepository) write(ctx context.Context, record models.UserRecord, replace bool) error {
	if record.ID == "" || record.Email == "" {
		return fmt.Errorf("%w: id and email required", ErrInvalidRecord)
	}
	role := record.Role()

	r.mu.Lock()
	defer r.mu.Unlock()

	collection, err := r.load(ctx, role)
	if err != nil {
		return err
	}
	if err := conflicts(collection, record, replace); err != nil {
		return err
	}

	collection.Records[record.ID] = record
	collection.EmailIndex[record.Email] = record.ID

	return r.save(ctx, role, collection)
}

func conflicts(collection Collection, record models.UserRecord, replace bool) error {
	if existing, ok := collection.Records[record.ID]; ok && (!replace || existing.Email != record.Email) {
		return fmt.Errorf("%w: id %s is already registered", ErrDuplicateIdentifier, record.ID)
	}
	if ownerID, ok := collection.EmailIndex[record.Email]; ok && (!replace || ownerID != record.ID) {
		return fmt.Errorf("%w: email %s is already registered", ErrDuplicateIdentifier, record.Email)
	}
	// ids and emails share one lookup namespace
	if other, ok := collection.Records[record.Email]; ok && other.ID != record.ID {
		return fmt.Errorf("%w: email %s collides with an account id", ErrDuplicateIdentifier, record.Email)
	}
	if ownerID, ok := collection.EmailIndex[record.ID]; ok && ownerID != record.ID {
		return fmt.Errorf("%w: id %s collides with an account email", ErrDuplicateIdentifier, record.ID)
	}
	return nil
}

// Lookup resolves key (id or email) within role's collection.
func (r *UserRepository) Lookup(ctx context.Context, role models.Role, key string) (models.UserRecord, error) {
	collection, err := r.Collection(ctx, role)
	if err != nil {
		return models.UserRecord{}, err
	}
	record, ok := collection.Lookup(key)
	if !ok {
		return models.UserRecord{}, ErrUserNotFound
	}
	return record, nil
}

// UpdatePassword replaces the stored password and returns the previous one
// so callers can roll back.
func (r *UserRepository) UpdatePassword(ctx context.Context, role models.Role, id string, password string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	collection, err := r.load(ctx, role)
	if err != nil {
		return "", err
	}

	record, ok := collection.Records[id]
	if !ok {
		return "", ErrUserNotFound
	}
	previous := record.Password
	record.Password = password
	collection.Records[id] = record

	if err := r.save(ctx, role, collection); err != nil {
		return "", err
	}
	return previous, nil
}

func (r *UserRepository) Delete(ctx context.Context, role models.Role, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	collection, err := r.load(ctx, role)
	if err != nil {
		return err
	}

	record, ok := collection.Records[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(collection.Records, id)
	if collection.EmailIndex[record.Email] == id {
		delete(collection.EmailIndex, record.Email)
	}

	return r.save(ctx, role, collection)
}

// CountUnique returns the number of distinct account ids held for role.
func (r *UserRepository) CountUnique(ctx context.Context, role models.Role) (int, error) {
	collection, err := r.Collection(ctx, role)
	if err != nil {
		return 0, err
	}
	return collection.Len(), nil
}

// Clear returns the named collections (student and staff when none are
// given) to the empty state.
func (r *UserRepository) Clear(ctx context.Context, roles ...models.Role) error {
	if len(roles) == 0 {
		roles = []models.Role{models.RoleStudent, models.RoleStaff}
	}

	keys := make([]string, 0, len(roles))
	for _, role := range roles {
		key, err := collectionKey(role)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, keys...)
}

// SeedIfEmpty installs the demonstration dataset when both persisted
// collections are empty and reports how many accounts were added.
func (r *UserRepository) SeedIfEmpty(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load(ctx, models.RoleStudent)
	if err != nil {
		return 0, err
	}
	staff, err := r.load(ctx, models.RoleStaff)
	if err != nil {
		return 0, err
	}
	if students.Len() > 0 || staff.Len() > 0 {
		return 0, nil
	}

	added := 0
	for _, record := range SeedStudents() {
		students.Records[record.ID] = record
		students.EmailIndex[record.Email] = record.ID
		added++
	}
	for _, record := range SeedStaff() {
		staff.Records[record.ID] = record
		staff.EmailIndex[record.Email] = record.ID
		added++
	}

	if err := r.save(ctx, models.RoleStudent, students); err != nil {
		return 0, err
	}
	if err := r.save(ctx, models.RoleStaff, staff); err != nil {
		return 0, err
	}
	return added, nil
}

// CollectionReport describes one collection for debug views.
type CollectionReport struct {
	Key              string   `json:"key"`
	UniqueAccounts   int      `json:"uniqueAccounts"`
	LookupKeys       int      `json:"lookupKeys"`
	DanglingEmails   []string `json:"danglingEmails,omitempty"`
	UnindexedRecords []string `json:"unindexedRecords,omitempty"`
}

func (c CollectionReport) Consistent() bool {
	return len(c.DanglingEmails) == 0 && len(c.UnindexedRecords) == 0
}

type StoreReport struct {
	Students CollectionReport `json:"students"`
	Staff    CollectionReport `json:"staff"`
	Admins   int              `json:"admins"`
	Drivers  int              `json:"drivers"`
}

// Inspect summarises the persisted collections, including index entries
// that no longer point at a record and records missing their email entry.
func (r *UserRepository) Inspect(ctx context.Context) (StoreReport, error) {
	students, err := r.load(ctx, models.RoleStudent)
	if err != nil {
		return StoreReport{}, err
	}
	staff, err := r.load(ctx, models.RoleStaff)
	if err != nil {
		return StoreReport{}, err
	}

	return StoreReport{
		Students: describe(StudentCollectionKey, students),
		Staff:    describe(StaffCollectionKey, staff),
		Admins:   len(r.allowList.Admins),
		Drivers:  len(r.allowList.Drivers),
	}, nil
}

func describe(key string, c Collection) CollectionReport {
	report := CollectionReport{
		Key:            key,
		UniqueAccounts: len(c.Records),
		LookupKeys:     len(c.Records) + len(c.EmailIndex),
	}
	for email, id := range c.EmailIndex {
		if record, ok := c.Records[id]; !ok || record.Email != email {
			report.DanglingEmails = append(report.DanglingEmails, email)
		}
	}
	for id, record := range c.Records {
		if c.EmailIndex[record.Email] != id {
			report.UnindexedRecords = append(report.UnindexedRecords, id)
		}
	}
	sort.Strings(report.DanglingEmails)
	sort.Strings(report.UnindexedRecords)
	return report
}
