package handler

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	jwtinfra "github.com/otp-relay/internal/infrastructure/jwt"
	"github.com/otp-relay/internal/pkg/validate"
)

// AuthHandler issues admin tokens. The API has a single operator identity;
// the bcrypt hash of its password comes from configuration.
type AuthHandler struct {
	passwordHash string
	jwt          *jwtinfra.Provider
}

func NewAuthHandler(passwordHash string, jwt *jwtinfra.Provider) *AuthHandler {
	return &AuthHandler{passwordHash: passwordHash, jwt: jwt}
}

type loginRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.passwordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "admin login disabled")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.jwt.Sign("admin", "admin")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Bearer: token})
}
