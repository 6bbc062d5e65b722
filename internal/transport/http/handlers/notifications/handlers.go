package notificationshandler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/notifications"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
	"hcm/internal/transport/http/shared"
)

type Handler struct {
	Service *notifications.Service
}

func NewHandler(service *notifications.Service) *Handler {
	return &Handler{Service: service}
}

// Notifications are always scoped to the authenticated user, so no
// permission gate beyond authentication itself.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/count", h.handleCount)
		r.Post("/{notificationID}/read", h.handleMarkRead)
		r.Post("/read-all", h.handleMarkAllRead)
	})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return user.UserID, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Service.List(r.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		slog.Error("notification list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not list notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	count, err := h.Service.Count(r.Context(), userID, unreadOnly)
	if err != nil {
		slog.Error("notification count failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not count notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]int{"count": count}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.MarkRead(r.Context(), userID, chi.URLParam(r, "notificationID")); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "notification not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"read": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.MarkAllRead(r.Context(), userID); err != nil {
		slog.Error("notification mark-all failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not mark notifications", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"read": true}, middleware.GetRequestID(r.Context()))
}
