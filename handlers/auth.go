package handlers

import (
	"errors"
	"net/http"

	"github.com/Ceasar-x/sschool/metrics"
	"github.com/Ceasar-x/sschool/models"
	"github.com/Ceasar-x/sschool/service"
	"github.com/Ceasar-x/sschool/store"
)

type AuthHandler struct {
	Users    UserStore
	Hasher   *service.Hasher
	Tokens   *service.TokenIssuer
	Notifier service.Notifier
	Metrics  metrics.Recorder
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Register creates an account. Role "admin" yields an admin; anything else a
// student.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.normalize()
	if err := validateRequest(&req, signupMessages); err != nil {
		writeError(w, err)
		return
	}

	role := models.RoleStudent
	if req.Role == string(models.RoleAdmin) {
		role = models.RoleAdmin
	}
	user := req.user(role)
	if err := createAccount(r.Context(), h.Users, h.Hasher, user, req.Password); err != nil {
		writeFailure(w, "register", err, "Server error during registration")
		return
	}

	h.record(metrics.AuthRegister)
	writeJSON(w, http.StatusCreated, userResponse{Message: "User registered successfully", User: user})
	notify(h.Notifier, service.WelcomeNotification(user))
}

// Login verifies credentials and issues a 24h token. Unknown email and wrong
// password give the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(&req, tagMessages{"required": "Email and password are required"}); err != nil {
		writeError(w, err)
		return
	}

	invalid := &models.APIError{Kind: models.KindUnauthenticated, Message: "Invalid credentials"}
	user, err := h.Users.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		h.record(metrics.AuthLoginFailure)
		writeError(w, invalid)
		return
	}
	if err != nil {
		writeInternal(w, "login", err, "Server error during login")
		return
	}
	if !h.Hasher.Verify(req.Password, user.Password) {
		h.record(metrics.AuthLoginFailure)
		writeError(w, invalid)
		return
	}

	token, err := h.Tokens.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		writeInternal(w, "login: issue token", err, "Server error during login")
		return
	}

	h.record(metrics.AuthLoginSuccess)
	safe := user.Sanitized()
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", Token: token, User: &safe})
}

func (h *AuthHandler) record(event string) {
	if h.Metrics != nil {
		h.Metrics.RecordAuthEvent(event)
	}
}
