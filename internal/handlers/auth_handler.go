package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/careportal/internal/accounts"
	"github.com/shaibs3/careportal/internal/apperror"
	"github.com/shaibs3/careportal/internal/auth"
	"go.uber.org/zap"
)

// AuthHandler serves registration, login and password reset
type AuthHandler struct {
	accounts    *accounts.Service
	tokens      *auth.TokenManager
	cookies     *auth.CookieCodec
	requireAuth Middleware
	logger      *zap.Logger
}

func NewAuthHandler(svc *accounts.Service, tokens *auth.TokenManager, cookies *auth.CookieCodec, requireAuth Middleware) *AuthHandler {
	return &AuthHandler{
		accounts:    svc,
		tokens:      tokens,
		cookies:     cookies,
		requireAuth: requireAuth,
		logger:      zap.NewNop(),
	}
}

// RegisterRoutes registers the routes for this handler
func (h *AuthHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("auth_handler")

	router.HandleFunc(apiPrefix+"/register", h.handleRegister).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/login", h.handleLogin).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/logout", h.handleLogout).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/forgot-password", h.handleForgotPassword).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/reset-password", h.handleResetPassword).Methods(http.MethodPost)
	router.Handle(apiPrefix+"/me", h.requireAuth(http.HandlerFunc(h.handleMe))).Methods(http.MethodGet)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	id, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"userId":  id,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	account, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	token, err := h.tokens.Generate(account.ID, account.Email)
	if err != nil {
		writeError(w, h.logger, r, apperror.Internal(err))
		return
	}
	if err := h.cookies.Set(w, token); err != nil {
		writeError(w, h.logger, r, apperror.Internal(err))
		return
	}

	h.logger.Info("user logged in", zap.Int64("user_id", account.ID))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"userId":  account.ID,
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	profile, err := h.accounts.Profile(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if err := h.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset email sent.")
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful.")
}
