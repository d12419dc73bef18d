package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/auth"
)

type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// Me returns the authenticated user's identity and effective roles
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":    userCtx.UserID,
		"name":  userCtx.DisplayName,
		"email": userCtx.Email,
		"roles": userCtx.RolesAsStrings(),
	})
}
