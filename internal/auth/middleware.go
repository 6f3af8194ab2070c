package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// PrincipalResolver turns a bearer token into an authenticated principal.
// It fails with models.ErrInvalidToken, models.ErrUnauthorized or
// models.ErrAccountInactive.
type PrincipalResolver interface {
	Resolve(ctx context.Context, accessToken string) (*Principal, error)
}

// DenialObserver is notified whenever the guard rejects a request
type DenialObserver func(reason string)

// Guard enforces authentication and authorization on protected routes
type Guard struct {
	resolver PrincipalResolver
	logger   *slog.Logger
	observe  DenialObserver
}

// NewGuard creates a guard. observe may be nil.
func NewGuard(resolver PrincipalResolver, logger *slog.Logger, observe DenialObserver) *Guard {
	if observe == nil {
		observe = func(string) {}
	}
	return &Guard{resolver: resolver, logger: logger, observe: observe}
}

// Authenticate resolves the bearer token and stores the principal in the
// request context. Nothing downstream runs unless resolution succeeds.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			g.observe("missing_token")
			pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
			return
		}

		principal, err := g.resolver.Resolve(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrInvalidToken):
				g.observe("invalid_token")
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
			case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrNotFound):
				g.observe("unknown_user")
				pkghttp.WriteUnauthorized(w, "user not found")
			case errors.Is(err, models.ErrAccountInactive):
				g.observe("inactive")
				pkghttp.WriteBadRequest(w, "account is inactive")
			default:
				g.logger.Error("failed to resolve principal", slog.Any("error", err))
				pkghttp.WriteInternalError(w, "internal server error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequirePermission admits callers holding the permission
func (g *Guard) RequirePermission(name string) func(http.Handler) http.Handler {
	return g.require(func(p *Principal) bool { return p.HasPermission(name) }, "missing permission "+name)
}

// RequireAnyPermission admits callers holding at least one of the permissions
func (g *Guard) RequireAnyPermission(names ...string) func(http.Handler) http.Handler {
	return g.require(func(p *Principal) bool {
		for _, name := range names {
			if p.HasPermission(name) {
				return true
			}
		}
		return false
	}, "missing permission")
}

// RequireRole admits callers whose role is name
func (g *Guard) RequireRole(name string) func(http.Handler) http.Handler {
	return g.require(func(p *Principal) bool { return p.HasRole(name) }, "requires role "+name)
}

func (g *Guard) require(allowed func(*Principal) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := GetPrincipal(r)
			if principal == nil {
				g.observe("missing_token")
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			if !allowed(principal) {
				g.observe("forbidden")
				pkghttp.WriteForbidden(w, message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
