package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/model"
)

// CredentialVerifier checks a username and password pair.
type CredentialVerifier interface {
	Verify(username, password string) (*auth.AuthInfo, error)
}

// AuthHandler issues and revokes bearer tokens.
type AuthHandler struct {
	verifier CredentialVerifier
	tokens   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(verifier CredentialVerifier, tokens *auth.TokenIssuer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterRoutes registers the auth routes with the router.
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
}

// Login handles POST /auth/login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.verifier.Verify(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, h.logger, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	token, expiresAt := h.tokens.Issue(info)
	h.logger.Info("login succeeded", zap.String("username", info.Subject))

	writeJSON(w, h.logger, http.StatusOK, model.LoginResponse{
		Token:       token,
		Username:    info.Subject,
		Permissions: info.Permissions,
		ExpiresAt:   expiresAt,
	})
}

// Logout handles POST /auth/logout requests by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.BearerToken(r); ok {
		h.tokens.Revoke(token)
	}
	writeJSON(w, h.logger, http.StatusNoContent, nil)
}
