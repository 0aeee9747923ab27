package storage

import (
	"auth_gateway/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// MemoryStorage keeps users and resources in process memory. It backs the
// "memory" storage driver and the tests of the layers above storage.
type MemoryStorage struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[string]models.User
	resources map[int64]models.Resource
	usage     map[usageKey]int64
	nextID    int64
}

type usageKey struct {
	resourceID int64
	email      string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		now:       time.Now,
		users:     make(map[string]models.User),
		resources: make(map[int64]models.Resource),
		usage:     make(map[usageKey]int64),
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, email, password string) (uuid.UUID, error) {
	const op = "storage.memory.CreateUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[email]; ok {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}
	m.users[email] = models.User{ID: id, Email: email, Password: password, CreatedAt: m.now().UTC()}

	return id, nil
}

func (m *MemoryStorage) GetUserByCredentials(_ context.Context, email, password string) (models.User, error) {
	const op = "storage.memory.GetUserByCredentials"

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok || u.Password != password {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return u, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	const op = "storage.memory.GetUserByEmail"

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	return u, nil
}

func (m *MemoryStorage) ListEmails(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]string, 0, len(m.users))
	for email := range m.users {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	return emails, nil
}

func (m *MemoryStorage) SeedUser(ctx context.Context, email, password string) error {
	m.mu.RLock()
	_, ok := m.users[email]
	m.mu.RUnlock()
	if ok {
		return nil
	}

	if _, err := m.CreateUser(ctx, email, password); err != nil {
		return fmt.Errorf("storage.memory.SeedUser: %w", err)
	}

	return nil
}

func (m *MemoryStorage) CreateResource(_ context.Context, r models.NewResource) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.resources[m.nextID] = models.Resource{
		ID:              m.nextID,
		Name:            r.Name,
		Author:          r.Author,
		Annotation:      r.Annotation,
		Kind:            r.Kind,
		Purpose:         r.Purpose,
		OpenDate:        r.OpenDate,
		ExpiryDate:      r.ExpiryDate,
		UsageConditions: r.UsageConditions,
		URL:             r.URL,
		CreatedAt:       m.now().UTC(),
	}

	return m.nextID, nil
}

func (m *MemoryStorage) ListResources(context.Context) ([]models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})

	return list, nil
}

func (m *MemoryStorage) UpdateResource(_ context.Context, id int64, patch models.ResourcePatch) error {
	const op = "storage.memory.UpdateResource"

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resources[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
	}

	applied := 0
	for _, f := range models.UpdatableFields {
		value, ok := patch[f]
		if !ok {
			continue
		}
		applied++

		switch f {
		case models.FieldName:
			if value == nil {
				return fmt.Errorf("%s: name cannot be null", op)
			}
			r.Name = *value
		case models.FieldAuthor:
			r.Author = value
		case models.FieldAnnotation:
			r.Annotation = value
		case models.FieldKind:
			r.Kind = value
		case models.FieldPurpose:
			r.Purpose = value
		case models.FieldOpenDate:
			r.OpenDate = value
		case models.FieldExpiryDate:
			r.ExpiryDate = value
		case models.FieldUsageConditions:
			r.UsageConditions = value
		case models.FieldURL:
			r.URL = value
		}
	}
	if applied == 0 {
		return fmt.Errorf("%s: %w", op, errEmptyPatch)
	}

	m.resources[id] = r

	return nil
}

func (m *MemoryStorage) DeleteResource(_ context.Context, id int64) error {
	const op = "storage.memory.DeleteResource"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[id]; !ok {
		return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
	}
	delete(m.resources, id)

	for k := range m.usage {
		if k.resourceID == id {
			delete(m.usage, k)
		}
	}

	return nil
}

func (m *MemoryStorage) CountResources(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.resources)), nil
}

func (m *MemoryStorage) ListResourceIDs(context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.resources))
	for id := range m.resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func (m *MemoryStorage) RecordUsage(_ context.Context, resourceID int64, email string) error {
	const op = "storage.memory.RecordUsage"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resources[resourceID]; !ok {
		return fmt.Errorf("%s: %w", op, ErrResourceNotFound)
	}
	m.usage[usageKey{resourceID: resourceID, email: email}]++

	return nil
}

// Usage returns the usage counter of (resourceID, email).
func (m *MemoryStorage) Usage(resourceID int64, email string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.usage[usageKey{resourceID: resourceID, email: email}]
}

func (m *MemoryStorage) Close() {}
