package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// writeServiceError maps service sentinel errors to responses. Anything
// unrecognised is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteValidationError(w, "Request validation failed",
			map[string]string{"confirm_password": "passwords do not match"})
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteValidationError(w, err.Error(), nil)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid username or password")
	case errors.Is(err, models.ErrInvalidToken), errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid or expired token")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteBadRequest(w, "Account is inactive")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrUserExists):
		pkghttp.WriteBadRequest(w, "Username already exists")
	case errors.Is(err, models.ErrEmailTaken):
		pkghttp.WriteBadRequest(w, "Email already in use")
	case errors.Is(err, models.ErrBadRequest):
		var public *models.BadRequestError
		if errors.As(err, &public) {
			pkghttp.WriteBadRequest(w, public.Message)
			return
		}
		if logger != nil {
			logger.WarnContext(r.Context(), "rejected request",
				slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "forbidden")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	default:
		if logger != nil && !errors.Is(err, models.ErrInternalServer) {
			logger.ErrorContext(r.Context(), "unhandled service error",
				slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// pathID reads a UUID path parameter, writing a 400 when it is malformed
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid "+name)
		return "", false
	}
	return id.String(), true
}
