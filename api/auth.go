package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/leads/internal/auth"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

type AuthHandler struct {
	errorResponder
	users  repository.UserRepo
	issuer *auth.Issuer
	cookie config.CookiePolicy
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(users repository.UserRepo, issuer *auth.Issuer, cookie config.CookiePolicy, detail bool) *AuthHandler {
	return &AuthHandler{errorResponder: errorResponder{detail: detail}, users: users, issuer: issuer, cookie: cookie}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user"`
	Token   string       `json:"token,omitempty"`
}

func (req *registerRequest) normalize() {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
}

func (req *registerRequest) validate() []string {
	var errs []string
	switch {
	case req.Email == "":
		errs = append(errs, "Email is required")
	case !models.ValidEmail(req.Email):
		errs = append(errs, "Please enter a valid email")
	}
	switch {
	case req.Password == "":
		errs = append(errs, "Password is required")
	case len(req.Password) < auth.MinPasswordLength:
		errs = append(errs, "Password must be at least 6 characters")
	}
	if req.FirstName == "" {
		errs = append(errs, "First name is required")
	}
	if req.LastName == "" {
		errs = append(errs, "Last name is required")
	}
	return errs
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.normalize()
	if errs := req.validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: errs})
		return
	}

	ctx := r.Context()

	if _, err := h.users.GetUserByEmail(ctx, req.Email); err == nil {
		writeMessage(w, http.StatusConflict, "User with this email already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.serverError(w, r, "lookup user", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.serverError(w, r, "hash password", err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := h.users.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeMessage(w, http.StatusConflict, "User with this email already exists")
			return
		}
		h.serverError(w, r, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{Message: "User created successfully", User: &user})
}

// Login checks the credentials and sets the session cookie. The token is
// also returned in the body for clients that send it as a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.serverError(w, r, "lookup user", err)
		return
	}
	// same answer for an unknown email and a wrong password
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, expires, err := h.issuer.Issue(user.ID)
	if err != nil {
		h.serverError(w, r, "issue token", err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, expires))
	writeJSON(w, http.StatusOK, userResponse{Message: "Login successful", User: user, Token: token})
}

// Logout clears the session cookie with the attributes it was set with, or
// browsers keep it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	c := h.sessionCookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Expires:  expires,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	}
}
