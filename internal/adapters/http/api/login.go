package api

import (
	"errors"
	"net/http"

	"github.com/okian/festboard/internal/adapters/http/auth"
)

// LoginHandler exchanges admin credentials for a bearer token.
type LoginHandler struct {
	authn Authenticator
}

// NewLoginHandler creates a new login handler.
func NewLoginHandler(authn Authenticator) *LoginHandler {
	return &LoginHandler{authn: authn}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	tok, err := h.authn.Login(r.Context(), clientAddr(r), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, tok)
	case errors.Is(err, auth.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeFailure(w, WrapKind(op, ErrRateLimited, err))
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrDisabled):
		writeFailure(w, WrapKind(op, ErrUnauthorized, err))
	default:
		writeFailure(w, Wrap(op, err))
	}
}
