package services

import (
	"context"
	"sync"
	"time"

	"github.com/clinicwise/clinic-backend/internal/cache"
	"github.com/clinicwise/clinic-backend/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.User, error)
	UsernameExistsFunc func(ctx context.Context, username string) (bool, error)
	EmailTakenFunc     func(ctx context.Context, email, excludeUserID string) (bool, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateAccountFunc  func(ctx context.Context, user *models.User) (*models.User, error)
	ListFunc           func(ctx context.Context, filter models.UserListFilter) ([]*models.User, int, error)
	SetActiveFunc      func(ctx context.Context, id string, active bool, actorID string) (*models.User, error)
	SetRoleFunc        func(ctx context.Context, id string, roleID *string, actorID string) (*models.User, error)
	SoftDeleteFunc     func(ctx context.Context, id, actorID string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.UsernameExistsFunc != nil {
		return m.UsernameExistsFunc(ctx, username)
	}
	return false, nil
}

func (m *MockUserRepository) EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	if m.EmailTakenFunc != nil {
		return m.EmailTakenFunc(ctx, email, excludeUserID)
	}
	return false, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateAccount(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) List(ctx context.Context, filter models.UserListFilter) ([]*models.User, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.User{}, 0, nil
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool, actorID string) (*models.User, error) {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active, actorID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetRole(ctx context.Context, id string, roleID *string, actorID string) (*models.User, error) {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, id, roleID, actorID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id, actorID string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, actorID)
	}
	return nil
}

// MockLoginAttemptRepository is an in-memory LoginAttemptRepository that
// follows the same state machine as the database implementation
type MockLoginAttemptRepository struct {
	mu       sync.Mutex
	attempts map[string]*models.FailedLoginAttempt

	CheckErr  error
	RecordErr error
	ClearErr  error
}

func NewMockLoginAttemptRepository() *MockLoginAttemptRepository {
	return &MockLoginAttemptRepository{attempts: make(map[string]*models.FailedLoginAttempt)}
}

func attemptKey(username, ipAddress string) string {
	return username + "|" + ipAddress
}

func (m *MockLoginAttemptRepository) Check(ctx context.Context, username, ipAddress string, threshold int, window time.Duration, now time.Time) (models.RateLimitDecision, error) {
	if m.CheckErr != nil {
		return models.RateLimitDecision{}, m.CheckErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeLocked(now.Add(-window), now)

	a, ok := m.attempts[attemptKey(username, ipAddress)]
	if !ok {
		return models.RateLimitDecision{Allowed: true}, nil
	}
	if a.BlockedAt(now) {
		return models.RateLimitDecision{Attempts: a.AttemptCount, BlockedUntil: a.BlockedUntil}, nil
	}
	if a.AttemptCount < threshold {
		return models.RateLimitDecision{Allowed: true, Attempts: a.AttemptCount}, nil
	}

	until := now.Add(window)
	a.IsBlocked = true
	a.BlockedUntil = &until
	return models.RateLimitDecision{Transitioned: true, Attempts: a.AttemptCount, BlockedUntil: &until}, nil
}

func (m *MockLoginAttemptRepository) RecordFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error) {
	if m.RecordErr != nil {
		return 0, m.RecordErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey(username, ipAddress)
	a, ok := m.attempts[key]
	if !ok {
		a = &models.FailedLoginAttempt{Username: username, IPAddress: ipAddress, FirstAttemptAt: now}
		m.attempts[key] = a
	}
	a.AttemptCount++
	a.LastAttemptAt = now
	return a.AttemptCount, nil
}

func (m *MockLoginAttemptRepository) Clear(ctx context.Context, username, ipAddress string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, attemptKey(username, ipAddress))
	return nil
}

func (m *MockLoginAttemptRepository) PurgeStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(cutoff, now), nil
}

func (m *MockLoginAttemptRepository) purgeLocked(cutoff, now time.Time) int64 {
	var n int64
	for key, a := range m.attempts {
		if a.LastAttemptAt.Before(cutoff) && (a.BlockedUntil == nil || !a.BlockedUntil.After(now)) {
			delete(m.attempts, key)
			n++
		}
	}
	return n
}

// Count returns the stored counter for the key, 0 when absent
func (m *MockLoginAttemptRepository) Count(username, ipAddress string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attempts[attemptKey(username, ipAddress)]; ok {
		return a.AttemptCount
	}
	return 0
}

// MockAuditLogRepository records created entries in memory
type MockAuditLogRepository struct {
	mu      sync.Mutex
	Entries []*models.AuthAuditLog

	CreateErr error
	ListFunc  func(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error)
}

func (m *MockAuditLogRepository) Create(ctx context.Context, log *models.AuthAuditLog) (*models.AuthAuditLog, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *log
	stored.CreatedAt = time.Now()
	m.Entries = append(m.Entries, &stored)
	return &stored, nil
}

func (m *MockAuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Entries, len(m.Entries), nil
}

// Actions returns the recorded actions in order
func (m *MockAuditLogRepository) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// Last returns the most recent entry
func (m *MockAuditLogRepository) Last() *models.AuthAuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// MockRoleRepository implements RoleRepository and RolePermissionReader for testing
type MockRoleRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.Role, error)
	ListFunc               func(ctx context.Context) ([]*models.Role, error)
	CreateFunc             func(ctx context.Context, name string, description *string) (*models.Role, error)
	ReplacePermissionsFunc func(ctx context.Context, roleID string, names []string) error
	ListPermissionsFunc    func(ctx context.Context) ([]*models.Permission, error)
	GetPermissionNamesFunc func(ctx context.Context, roleID string) ([]string, error)

	mu              sync.Mutex
	PermissionLoads int
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Role{}, nil
}

func (m *MockRoleRepository) Create(ctx context.Context, name string, description *string) (*models.Role, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, description)
	}
	return &models.Role{ID: "role-new", Name: name, Description: description, IsActive: true}, nil
}

func (m *MockRoleRepository) ReplacePermissions(ctx context.Context, roleID string, names []string) error {
	if m.ReplacePermissionsFunc != nil {
		return m.ReplacePermissionsFunc(ctx, roleID, names)
	}
	return nil
}

func (m *MockRoleRepository) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	if m.ListPermissionsFunc != nil {
		return m.ListPermissionsFunc(ctx)
	}
	return []*models.Permission{}, nil
}

func (m *MockRoleRepository) GetPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	m.mu.Lock()
	m.PermissionLoads++
	m.mu.Unlock()
	if m.GetPermissionNamesFunc != nil {
		return m.GetPermissionNamesFunc(ctx, roleID)
	}
	return nil, nil
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	GetByUserIDFunc func(ctx context.Context, userID string) (*models.UserProfile, error)
	UpsertFunc      func(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, profile)
	}
	stored := *profile
	stored.ID = "profile-1"
	return &stored, nil
}

// MockCategoryRepository implements CategoryRepository for testing
type MockCategoryRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Category, error)
	ListFunc       func(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error)
	CreateFunc     func(ctx context.Context, c *models.Category) (*models.Category, error)
	UpdateFunc     func(ctx context.Context, c *models.Category) (*models.Category, error)
	SoftDeleteFunc func(ctx context.Context, id, actorID string) error
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Category{}, 0, nil
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	stored := *c
	stored.ID = "cat-new"
	return &stored, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, c)
	}
	return c, nil
}

func (m *MockCategoryRepository) SoftDelete(ctx context.Context, id, actorID string) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, actorID)
	}
	return nil
}

// MockPermissionCache is an in-memory PermissionCache
type MockPermissionCache struct {
	mu      sync.Mutex
	entries map[string][]string

	GetErr      error
	Invalidated []string
}

func NewMockPermissionCache() *MockPermissionCache {
	return &MockPermissionCache{entries: make(map[string][]string)}
}

func (m *MockPermissionCache) Get(ctx context.Context, roleID string) (models.PermissionSet, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names, ok := m.entries[roleID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return models.NewPermissionSet(names...), nil
}

func (m *MockPermissionCache) Set(ctx context.Context, roleID string, permissions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[roleID] = append([]string(nil), permissions...)
	return nil
}

func (m *MockPermissionCache) Invalidate(ctx context.Context, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, roleID)
	m.Invalidated = append(m.Invalidated, roleID)
	return nil
}

// recordingNotifier captures lockout notices
type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
	err     error
}

func (n *recordingNotifier) NotifyLockout(ctx context.Context, email, username string, blockedUntil time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, email)
	return n.err
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notices...)
}

// NewTestUser creates an active test user with a bcrypt digest of password
func NewTestUser(id, username, passwordHash string) *models.User {
	now := time.Now()
	return &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
