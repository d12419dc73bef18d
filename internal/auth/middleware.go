package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/repository"
)

// Middleware authenticates requests with a bearer token and loads the user
// row so downstream services see current roles, not just token claims.
type Middleware struct {
	issuer   *TokenIssuer
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

// NewMiddleware creates an authentication middleware
func NewMiddleware(issuer *TokenIssuer, userRepo *repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{
		issuer:   issuer,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Authenticate validates the Authorization header and injects UserContext.
// Requests without a valid token are rejected with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.issuer.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			unauthorized(w, "invalid or expired token")
			return
		}

		userCtx := &UserContext{
			UserID:      claims.Subject,
			DisplayName: claims.DisplayName,
			Email:       claims.Email,
		}

		// Roles come from the database when the user row exists; the token
		// roles are only a fallback for service accounts.
		user, err := m.userRepo.GetByID(r.Context(), claims.Subject)
		if err == nil && user != nil {
			if !user.IsActive {
				unauthorized(w, "user is deactivated")
				return
			}
			userCtx.DisplayName = user.DisplayName
			userCtx.Email = user.Email
			userCtx.Roles = user.RoleTypes()
		} else {
			for _, role := range claims.Roles {
				rt := domain.UserRoleType(role)
				if rt.IsValid() {
					userCtx.Roles = append(userCtx.Roles, rt)
				}
			}
		}

		ctx := WithUserContext(r.Context(), userCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles rejects requests whose user lacks all of the given roles
func (m *Middleware) RequireRoles(roles ...domain.UserRoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				unauthorized(w, "not authenticated")
				return
			}
			if !userCtx.HasAnyRole(roles...) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(domain.APIError{
					Type:   domain.ErrorTypeForbidden,
					Title:  "Forbidden",
					Status: http.StatusForbidden,
					Detail: "insufficient role for this operation",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
	})
}
