package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithPrincipalContext attaches an authenticated caller holding perms
func WithPrincipalContext(req *http.Request, userID, username string, perms ...string) *http.Request {
	p := &auth.Principal{
		User:        &models.User{ID: userID, Username: username, IsActive: true},
		Permissions: models.NewPermissionSet(perms...),
	}
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc    func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	LogoutFunc   func(ctx context.Context, refreshToken, ipAddress, userAgent string) error
	RefreshFunc  func(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.TokenPair, error)
	RegisterFunc func(ctx context.Context, in services.RegisterInput) (*services.RegisteredUser, error)
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken, ipAddress, userAgent string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, refreshToken, ipAddress, userAgent)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.TokenPair, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrInvalidToken
	}
	return m.RefreshFunc(ctx, refreshToken, ipAddress, userAgent)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.RegisteredUser, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrUserExists
	}
	return m.RegisterFunc(ctx, in)
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	UpdateAccountFunc func(ctx context.Context, userID string, in services.UpdateAccountInput) (*services.UserResponse, error)
	GetProfileFunc    func(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfileFunc func(ctx context.Context, userID string, in services.ProfileInput) (*models.UserProfile, error)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, userID string, in services.UpdateAccountInput) (*services.UserResponse, error) {
	if m.UpdateAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateAccountFunc(ctx, userID, in)
}

func (m *MockAccountService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if m.GetProfileFunc == nil {
		return &models.UserProfile{ID: "profile-1", UserID: userID}, nil
	}
	return m.GetProfileFunc(ctx, userID)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.UserProfile, error) {
	if m.UpdateProfileFunc == nil {
		return &models.UserProfile{ID: "profile-1", UserID: userID, Phone: in.Phone, Gender: in.Gender}, nil
	}
	return m.UpdateProfileFunc(ctx, userID, in)
}

// MockUserAdminService implements UserAdminServiceInterface for testing
type MockUserAdminService struct {
	CreateUserFunc func(ctx context.Context, actorID string, in services.CreateUserInput) (*services.UserResponse, error)
	GetUserFunc    func(ctx context.Context, id string) (*services.UserResponse, error)
	ListUsersFunc  func(ctx context.Context, filter models.UserListFilter) ([]*services.UserResponse, int, error)
	SetStatusFunc  func(ctx context.Context, actorID, userID string, active bool) (*services.UserResponse, error)
	AssignRoleFunc func(ctx context.Context, actorID, userID string, roleID *string) (*services.UserResponse, error)
	DeleteUserFunc func(ctx context.Context, actorID, userID string) error
}

func (m *MockUserAdminService) CreateUser(ctx context.Context, actorID string, in services.CreateUserInput) (*services.UserResponse, error) {
	if m.CreateUserFunc == nil {
		return &services.UserResponse{ID: "user-new", Username: in.Username, IsActive: true}, nil
	}
	return m.CreateUserFunc(ctx, actorID, in)
}

func (m *MockUserAdminService) GetUser(ctx context.Context, id string) (*services.UserResponse, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, id)
}

func (m *MockUserAdminService) ListUsers(ctx context.Context, filter models.UserListFilter) ([]*services.UserResponse, int, error) {
	if m.ListUsersFunc == nil {
		return []*services.UserResponse{}, 0, nil
	}
	return m.ListUsersFunc(ctx, filter)
}

func (m *MockUserAdminService) SetStatus(ctx context.Context, actorID, userID string, active bool) (*services.UserResponse, error) {
	if m.SetStatusFunc == nil {
		return &services.UserResponse{ID: userID, IsActive: active}, nil
	}
	return m.SetStatusFunc(ctx, actorID, userID, active)
}

func (m *MockUserAdminService) AssignRole(ctx context.Context, actorID, userID string, roleID *string) (*services.UserResponse, error) {
	if m.AssignRoleFunc == nil {
		return &services.UserResponse{ID: userID}, nil
	}
	return m.AssignRoleFunc(ctx, actorID, userID, roleID)
}

func (m *MockUserAdminService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, actorID, userID)
}

// MockRoleService implements RoleServiceInterface for testing
type MockRoleService struct {
	ListRolesFunc       func(ctx context.Context) ([]*models.Role, error)
	CreateRoleFunc      func(ctx context.Context, actorID, name string, description *string) (*models.Role, error)
	SetPermissionsFunc  func(ctx context.Context, actorID, roleID string, names []string) (*models.Role, error)
	ListPermissionsFunc func(ctx context.Context) ([]*models.Permission, error)
}

func (m *MockRoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	if m.ListRolesFunc == nil {
		return []*models.Role{}, nil
	}
	return m.ListRolesFunc(ctx)
}

func (m *MockRoleService) CreateRole(ctx context.Context, actorID, name string, description *string) (*models.Role, error) {
	if m.CreateRoleFunc == nil {
		return &models.Role{ID: "role-new", Name: name, Description: description, IsActive: true}, nil
	}
	return m.CreateRoleFunc(ctx, actorID, name, description)
}

func (m *MockRoleService) SetPermissions(ctx context.Context, actorID, roleID string, names []string) (*models.Role, error) {
	if m.SetPermissionsFunc == nil {
		return &models.Role{ID: roleID, Permissions: names, IsActive: true}, nil
	}
	return m.SetPermissionsFunc(ctx, actorID, roleID, names)
}

func (m *MockRoleService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	if m.ListPermissionsFunc == nil {
		return []*models.Permission{}, nil
	}
	return m.ListPermissionsFunc(ctx)
}

// MockAuditService implements AuditServiceInterface for testing
type MockAuditService struct {
	ListFunc func(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error)
}

func (m *MockAuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error) {
	if m.ListFunc == nil {
		return []*models.AuthAuditLog{}, 0, nil
	}
	return m.ListFunc(ctx, filter)
}

// MockCategoryService implements CategoryServiceInterface for testing
type MockCategoryService struct {
	ListFunc   func(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error)
	GetFunc    func(ctx context.Context, id string) (*models.Category, error)
	CreateFunc func(ctx context.Context, actorID string, in services.CategoryInput) (*models.Category, error)
	UpdateFunc func(ctx context.Context, actorID, id string, in services.CategoryInput) (*models.Category, error)
	DeleteFunc func(ctx context.Context, actorID, id string) error
}

func (m *MockCategoryService) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error) {
	if m.ListFunc == nil {
		return []*models.Category{}, 0, nil
	}
	return m.ListFunc(ctx, filter)
}

func (m *MockCategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockCategoryService) Create(ctx context.Context, actorID string, in services.CategoryInput) (*models.Category, error) {
	if m.CreateFunc == nil {
		return &models.Category{ID: "cat-new", Name: in.Name, Code: in.Code, IsActive: true}, nil
	}
	return m.CreateFunc(ctx, actorID, in)
}

func (m *MockCategoryService) Update(ctx context.Context, actorID, id string, in services.CategoryInput) (*models.Category, error) {
	if m.UpdateFunc == nil {
		return &models.Category{ID: id, Name: in.Name, Code: in.Code, IsActive: true}, nil
	}
	return m.UpdateFunc(ctx, actorID, id, in)
}

func (m *MockCategoryService) Delete(ctx context.Context, actorID, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, actorID, id)
}
