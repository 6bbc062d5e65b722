package audithandler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/audit"
	"hcm/internal/domain/auth"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
	"hcm/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *audit.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/audit", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		ActorID:    q.Get("actorId"),
	}
	includeDetails, _ := strconv.ParseBool(q.Get("details"))

	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Error("audit count failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not count audit events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"events": events,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, middleware.GetRequestID(r.Context()))
}
