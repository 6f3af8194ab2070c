package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/handlers"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

const (
	adminID  = "0b5c2f6e-8f0e-4a55-9f53-1b7d3f1f0a01"
	targetID = "6f1d9c0a-2b7e-4d8b-a3e5-4c2f8b9e7d12"
	roleID   = "a7e3c1d2-5f6b-4e8a-9c0d-1e2f3a4b5c6d"
)

func userRouter(h *handlers.UserHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/admin/users", h.CreateUser)
	r.Get("/admin/users", h.ListUsers)
	r.Get("/admin/users/{id}", h.GetUser)
	r.Patch("/admin/users/{id}/status", h.UpdateStatus)
	r.Put("/admin/users/{id}/role", h.AssignRole)
	r.Delete("/admin/users/{id}", h.DeleteUser)
	return r
}

func TestCreateUser(t *testing.T) {
	var gotActor string
	var gotInput services.CreateUserInput
	svc := &handlers.MockUserAdminService{
		CreateUserFunc: func(ctx context.Context, actorID string, in services.CreateUserInput) (*services.UserResponse, error) {
			gotActor, gotInput = actorID, in
			return &services.UserResponse{ID: targetID, Username: in.Username, IsActive: true}, nil
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	role := roleID
	req := handlers.WithPrincipalContext(handlers.NewTestRequest(t, "POST", "/admin/users", handlers.CreateUserRequest{
		Username: "drhouse",
		Password: "Secret123",
		RoleID:   &role,
	}), adminID, "root", models.PermissionAll)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.Equal(t, "drhouse", resp.Username)
	assert.Equal(t, adminID, gotActor)
	assert.Equal(t, roleID, *gotInput.RoleID)
}

func TestCreateUser_Rejections(t *testing.T) {
	badRole := "not-a-uuid"
	badEmail := "nope"
	tests := []struct {
		name       string
		body       handlers.CreateUserRequest
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"short password", handlers.CreateUserRequest{Username: "drhouse", Password: "123"}, nil, 422, "validation_error"},
		{"bad role id", handlers.CreateUserRequest{Username: "drhouse", Password: "Secret123", RoleID: &badRole}, nil, 422, "validation_error"},
		{"bad email", handlers.CreateUserRequest{Username: "drhouse", Password: "Secret123", Email: &badEmail}, nil, 422, "validation_error"},
		{"username taken", handlers.CreateUserRequest{Username: "drhouse", Password: "Secret123"}, models.ErrUserExists, 400, "bad_request"},
		{"email taken", handlers.CreateUserRequest{Username: "drhouse", Password: "Secret123"}, models.ErrEmailTaken, 400, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockUserAdminService{
				CreateUserFunc: func(ctx context.Context, actorID string, in services.CreateUserInput) (*services.UserResponse, error) {
					return nil, tt.serviceErr
				},
			}
			router := userRouter(handlers.NewUserHandler(svc, nil, nil))

			req := handlers.WithPrincipalContext(handlers.NewTestRequest(t, "POST", "/admin/users", tt.body), adminID, "root")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestListUsers(t *testing.T) {
	var got models.UserListFilter
	svc := &handlers.MockUserAdminService{
		ListUsersFunc: func(ctx context.Context, filter models.UserListFilter) ([]*services.UserResponse, int, error) {
			got = filter
			return []*services.UserResponse{{ID: targetID, Username: "drhouse"}}, 57, nil
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users?search=house&is_active=true&limit=500&offset=20", nil))

	var resp handlers.ListUsersResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 57, resp.Total)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, 20, resp.Offset)
	assert.Equal(t, "57", w.Header().Get("X-Total-Count"))

	assert.Equal(t, "house", got.Search)
	require.NotNil(t, got.IsActive)
	assert.True(t, *got.IsActive)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users?limit=abc", nil))
	handlers.AssertErrorResponse(t, w, 422, "validation_error")
}

func TestGetUser(t *testing.T) {
	svc := &handlers.MockUserAdminService{
		GetUserFunc: func(ctx context.Context, id string) (*services.UserResponse, error) {
			if id == targetID {
				return &services.UserResponse{ID: id, Username: "drhouse"}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users/"+targetID, nil))
	handlers.AssertJSONResponse(t, w, 200, nil)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users/"+roleID, nil))
	handlers.AssertErrorResponse(t, w, 404, "not_found")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users/42", nil))
	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestUpdateStatus(t *testing.T) {
	var gotActive *bool
	svc := &handlers.MockUserAdminService{
		SetStatusFunc: func(ctx context.Context, actorID, userID string, active bool) (*services.UserResponse, error) {
			if actorID == userID && !active {
				return nil, models.ErrBadRequest
			}
			gotActive = &active
			return &services.UserResponse{ID: userID, IsActive: active}, nil
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	off := false
	w := httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(
		handlers.NewTestRequest(t, "PATCH", "/admin/users/"+targetID+"/status", handlers.UpdateStatusRequest{IsActive: &off}),
		adminID, "root"))
	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	require.NotNil(t, gotActive)
	assert.False(t, *gotActive)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(
		handlers.NewTestRequest(t, "PATCH", "/admin/users/"+adminID+"/status", handlers.UpdateStatusRequest{IsActive: &off}),
		adminID, "root"))
	handlers.AssertErrorResponse(t, w, 400, "bad_request")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(
		handlers.NewTestRequest(t, "PATCH", "/admin/users/"+targetID+"/status", map[string]any{}),
		adminID, "root"))
	handlers.AssertErrorResponse(t, w, 422, "validation_error")
}

func TestAssignRole(t *testing.T) {
	var got *string
	calls := 0
	svc := &handlers.MockUserAdminService{
		AssignRoleFunc: func(ctx context.Context, actorID, userID string, roleID *string) (*services.UserResponse, error) {
			calls++
			got = roleID
			return &services.UserResponse{ID: userID}, nil
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(
		handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID+"/role", map[string]any{"role_id": roleID}),
		adminID, "root"))
	handlers.AssertJSONResponse(t, w, 200, nil)
	require.NotNil(t, got)
	assert.Equal(t, roleID, *got)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(
		handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID+"/role", map[string]any{"role_id": nil}),
		adminID, "root"))
	handlers.AssertJSONResponse(t, w, 200, nil)
	assert.Nil(t, got, "null clears the role")
	assert.Equal(t, 2, calls)
}

func TestAssignRole_BadRequestMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "storage detail is not echoed", err: fmt.Errorf("%w: users_role_id_fkey", models.ErrBadRequest), message: "Invalid request"},
		{name: "client message is kept", err: models.NewBadRequest("role does not exist"), message: "role does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockUserAdminService{
				AssignRoleFunc: func(ctx context.Context, actorID, userID string, roleID *string) (*services.UserResponse, error) {
					return nil, tt.err
				},
			}
			router := userRouter(handlers.NewUserHandler(svc, nil, nil))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, handlers.WithPrincipalContext(
				handlers.NewTestRequest(t, "PUT", "/admin/users/"+targetID+"/role", map[string]any{"role_id": roleID}),
				adminID, "root"))

			require.Equal(t, 400, w.Code)
			assert.NotContains(t, w.Body.String(), "users_role_id_fkey")

			var resp pkghttp.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "bad_request", resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	deleted := ""
	svc := &handlers.MockUserAdminService{
		DeleteUserFunc: func(ctx context.Context, actorID, userID string) error {
			deleted = userID
			return nil
		},
	}
	router := userRouter(handlers.NewUserHandler(svc, nil, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, handlers.WithPrincipalContext(httptest.NewRequest("DELETE", "/admin/users/"+targetID, nil), adminID, "root"))
	assert.Equal(t, 204, w.Code)
	assert.Equal(t, targetID, deleted)
}
