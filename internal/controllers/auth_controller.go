package controllers

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/RealZimboGuy/graphflow/internal/util"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

const apiKeyUser = "api-key"

// AuthController guards routes with a single shared API key. Only its
// bcrypt hash is held; an empty hash disables the check.
type AuthController struct {
	apiKeyHash []byte
}

func NewAuthController(apiKeyHash string) *AuthController {
	return &AuthController{apiKeyHash: []byte(apiKeyHash)}
}

// HashAPIKey produces the value to configure as GFLOW_API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (ac *AuthController) Enabled() bool {
	return ac != nil && len(ac.apiKeyHash) > 0
}

func (ac *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !ac.Enabled() {
			next(w, r)
			return
		}
		// Supported: X-API-Key header, or api_key query parameter for
		// websocket clients that cannot set headers
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey != "" && bcrypt.CompareHashAndPassword(ac.apiKeyHash, []byte(apiKey)) == nil {
			ctx := context.WithValue(r.Context(), core.CtxKeyUsername, apiKeyUser)
			next(w, r.WithContext(ctx))
			return
		}
		util.WriteJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
	}
}
