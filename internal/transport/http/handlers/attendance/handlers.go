package attendancehandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/attendance"
	"hcm/internal/domain/audit"
	"hcm/internal/domain/auth"
	"hcm/internal/domain/core"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
	"hcm/internal/transport/http/shared"
)

type Handler struct {
	Service *attendance.Service
	Core    *core.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *attendance.Service, coreSvc *core.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Core: coreSvc, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/check-in", h.handleCheckIn)
		r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/check-out", h.handleCheckOut)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/records", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/records/{employeeID}/{date}", h.handleGetRecord)
		r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/summary/{employeeID}", h.handleMonthlySummary)
		r.With(middleware.RequirePermission(auth.PermAttendanceAdmin, h.Perms)).Put("/records", h.handleAdminUpsert)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		api.Fail(w, http.StatusConflict, "already_checked_in", "already checked in today", reqID)
	case errors.Is(err, attendance.ErrNoCheckInToday):
		api.Fail(w, http.StatusConflict, "no_check_in", "no check-in recorded for today", reqID)
	case errors.Is(err, attendance.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown attendance status", reqID)
	case errors.Is(err, attendance.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", reqID)
	default:
		slog.Error("attendance operation failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", reqID)
	}
}

// selfEmployeeID resolves the caller's employee record. Stamping is
// always self-service; there is no on-behalf check-in.
func (h *Handler) selfEmployeeID(ctx context.Context, w http.ResponseWriter) (string, bool) {
	user, ok := middleware.GetUser(ctx)
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(ctx))
		return "", false
	}
	employeeID, err := h.Core.EmployeeIDByUserID(ctx, user.UserID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "no employee record for user", middleware.GetRequestID(ctx))
		return "", false
	}
	return employeeID, true
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.selfEmployeeID(r.Context(), w)
	if !ok {
		return
	}
	rec, err := h.Service.CheckIn(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.selfEmployeeID(r.Context(), w)
	if !ok {
		return
	}
	rec, err := h.Service.CheckOut(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	employeeID := strings.TrimSpace(q.Get("employeeId"))

	// Employees only see their own sheet; managers see their reports'.
	if user.RoleName != auth.RoleHR {
		selfID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusNotFound, "not_found", "no employee record for user", middleware.GetRequestID(r.Context()))
			return
		}
		switch {
		case employeeID == "" || employeeID == selfID:
			employeeID = selfID
		case user.RoleName == auth.RoleManager:
			manages, err := h.Core.IsManagerOf(r.Context(), selfID, employeeID)
			if err != nil || !manages {
				api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
				return
			}
		default:
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
			return
		}
	}

	var from, to time.Time
	if raw := q.Get("from"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
			return
		}
		from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := shared.ParseDate(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
			return
		}
		to = parsed
	}

	records, total, err := h.Service.List(r.Context(), employeeID, from, to, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"records": records,
		"total":   total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	date, err := shared.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD", middleware.GetRequestID(r.Context()))
		return
	}
	rec, err := h.Service.RecordFor(r.Context(), chi.URLParam(r, "employeeID"), date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, rec, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	month, _ := strconv.Atoi(q.Get("month"))
	if year < 2000 || month < 1 || month > 12 {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "year and month query parameters are required", middleware.GetRequestID(r.Context()))
		return
	}

	sum, err := h.Service.MonthlySummary(r.Context(), chi.URLParam(r, "employeeID"), year, time.Month(month))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, sum, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdminUpsert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EmployeeID   string  `json:"employeeId"`
		WorkDate     string  `json:"workDate"`
		CheckIn      *string `json:"checkIn"`
		CheckOut     *string `json:"checkOut"`
		BreakMinutes int     `json:"breakMinutes"`
		Status       string  `json:"status"`
		Note         string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	workDate, _ := v.Date("workDate", payload.WorkDate)
	v.Required("status", payload.Status, "status is required")
	if payload.BreakMinutes < 0 {
		v.Add("breakMinutes", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	rec := attendance.AttendanceRecord{
		EmployeeID:   payload.EmployeeID,
		WorkDate:     workDate,
		BreakMinutes: payload.BreakMinutes,
		Status:       payload.Status,
		Note:         payload.Note,
	}
	if payload.CheckIn != nil {
		stamp, err := time.Parse(time.RFC3339, *payload.CheckIn)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "checkIn must be RFC3339", middleware.GetRequestID(r.Context()))
			return
		}
		rec.CheckIn = &stamp
	}
	if payload.CheckOut != nil {
		stamp, err := time.Parse(time.RFC3339, *payload.CheckOut)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_date", "checkOut must be RFC3339", middleware.GetRequestID(r.Context()))
			return
		}
		rec.CheckOut = &stamp
	}

	saved, err := h.Service.AdminUpsert(r.Context(), rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if h.Audit != nil {
		actorID := ""
		if user, ok := middleware.GetUser(r.Context()); ok {
			actorID = user.UserID
		}
		if err := h.Audit.Record(r.Context(), actorID, "attendance.record.upsert", "attendance_record", saved.ID,
			middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, saved); err != nil {
			slog.Warn("audit record failed", "action", "attendance.record.upsert", "err", err)
		}
	}
	api.Success(w, saved, middleware.GetRequestID(r.Context()))
}
