package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/depotroute/depotroute/internal/api/models"
	"github.com/depotroute/depotroute/internal/api/response"
	"github.com/depotroute/depotroute/internal/auth"
)

// TokenRequest is the request body for issuing an access token.
type TokenRequest struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
}

// TokenResponse is the response for a successful token issuance.
type TokenResponse struct {
	AccessToken string           `json:"accessToken"`
	TokenType   string           `json:"tokenType"`
	ExpiresAt   models.Timestamp `json:"expiresAt"`
}

// AuthHandler handles token issuance for dispatch clients.
type AuthHandler struct {
	jwt     *auth.JWTService
	clients map[string]string
}

// NewAuthHandler creates a new AuthHandler. clients maps client ids to
// their shared secrets.
func NewAuthHandler(jwt *auth.JWTService, clients map[string]string) *AuthHandler {
	return &AuthHandler{jwt: jwt, clients: clients}
}

// IssueToken handles POST /v1/auth/token - exchange client credentials for a JWT.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var input TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.ClientID == "" || input.ClientSecret == "" {
		response.BadRequest(w, r, "clientId and clientSecret are required", []models.FieldError{
			{Field: "clientId", Message: "required"},
			{Field: "clientSecret", Message: "required"},
		})
		return
	}

	secret, ok := h.clients[input.ClientID]
	if !ok || subtle.ConstantTimeCompare([]byte(secret), []byte(input.ClientSecret)) != 1 {
		response.Unauthorized(w, r, "invalid client credentials")
		return
	}

	token, expiresAt, err := h.jwt.GenerateAccessToken(input.ClientID)
	if err != nil {
		response.InternalError(w, r, "failed to issue access token")
		return
	}

	response.JSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   models.Timestamp(expiresAt),
	})
}
