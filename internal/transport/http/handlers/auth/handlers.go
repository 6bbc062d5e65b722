package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/auth"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
)

type Handler struct {
	Service *auth.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *auth.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(10, time.Minute)).Post("/login", h.handleLogin)
		r.Get("/me", h.handleMe)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/users", h.handleCreateUser)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "email and password are required", reqID)
		return
	}

	token, user, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		slog.Error("login failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "login failed", reqID)
		return
	}

	api.Success(w, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       user.ID,
			"roleId":   user.RoleID,
			"roleName": user.RoleName,
		},
	}, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	perms, err := h.Service.Store.PermissionsForRole(r.Context(), user.RoleID)
	if err != nil {
		slog.Error("permission lookup failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "lookup failed", reqID)
		return
	}

	api.Success(w, map[string]any{
		"id":          user.UserID,
		"roleId":      user.RoleID,
		"roleName":    user.RoleName,
		"permissions": perms,
	}, reqID)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleName string `json:"roleName"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || len(payload.Password) < 8 {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "email and a password of at least 8 characters are required", reqID)
		return
	}
	if payload.RoleName == "" {
		payload.RoleName = auth.RoleEmployee
	}

	id, err := h.Service.CreateUser(r.Context(), payload.Email, payload.Password, payload.RoleName)
	if err != nil {
		slog.Error("user create failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not create user", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id, "email": payload.Email, "roleName": payload.RoleName}, reqID)
}
