package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/stockbook/internal/auth"
	"github.com/sakif/stockbook/internal/model"
	"github.com/sakif/stockbook/internal/service"
)

// UserHandler serves registration and login.
type UserHandler struct {
	users    *service.UserService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler. tokenTTL sets the lifetime of the
// token cookie written on login.
func NewUserHandler(users *service.UserService, tokenTTL time.Duration, logger *slog.Logger) *UserHandler {
	if tokenTTL <= 0 {
		tokenTTL = auth.DefaultTokenTTL
	}
	return &UserHandler{users: users, tokenTTL: tokenTTL, logger: logger}
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
	Token   string           `json:"token,omitempty"`
}

type hintResponse struct {
	Message string `json:"message"`
	Note    string `json:"note"`
}

// HTTP: GET /api/register
func (h *UserHandler) HandleRegisterInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hintResponse{
		Message: "Use POST /api/register to create an account",
		Note:    `Send JSON: {"username": "...", "password": "...", "confirmPassword": "..."}`,
	})
}

// HTTP: GET /api/login
func (h *UserHandler) HandleLoginInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hintResponse{
		Message: "Use POST /api/login to sign in",
		Note:    `Send JSON: {"username": "...", "password": "..."}`,
	})
}

// HTTP: POST /api/register
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.users.Register(r.Context(), req.Username, req.Password, req.ConfirmPassword); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Success: true, Message: "registration successful"})
}

// HandleLogin checks credentials. When a token is issued it is returned in
// the body and also set as an HttpOnly cookie for browser clients.
//
// HTTP: POST /api/login
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if res.Token != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.TokenCookieName,
			Value:    res.Token,
			Path:     "/",
			MaxAge:   int(h.tokenTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "login successful",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /api/logout
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "logged out"})
}
