package reportshandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/auth"
	"hcm/internal/domain/reports"
	"hcm/internal/platform/jobs"
	"hcm/internal/platform/metrics"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
)

type Handler struct {
	Service   *reports.Service
	Perms     middleware.PermissionStore
	Jobs      *jobs.Service
	Collector *metrics.Collector
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore, jobsSvc *jobs.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Jobs: jobsSvc, Collector: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/overview", h.handleOverview)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/leave-balances", h.handleBalanceSummary)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/leave-balances.csv", h.handleBalanceSummaryCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/attendance", h.handleMonthlyAttendance)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/attendance.csv", h.handleMonthlyAttendanceCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/attendance.pdf", h.handleMonthlyAttendancePDF)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/jobs", h.handleListJobRuns)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/metrics", h.handleMetrics)
	})
}

func (h *Handler) yearParam(r *http.Request) int {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	if year < 2000 {
		year = time.Now().Year()
	}
	return year
}

func (h *Handler) periodParams(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year := h.yearParam(r)
	month, _ := strconv.Atoi(r.URL.Query().Get("month"))
	if month < 1 || month > 12 {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be between 1 and 12", middleware.GetRequestID(r.Context()))
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.Overview(r.Context())
	if err != nil {
		slog.Error("overview report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, overview, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalanceSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.BalanceSummary(r.Context(), h.yearParam(r), r.URL.Query().Get("employeeId"))
	if err != nil {
		slog.Error("balance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleBalanceSummaryCSV(w http.ResponseWriter, r *http.Request) {
	year := h.yearParam(r)
	rows, err := h.Service.BalanceSummary(r.Context(), year, r.URL.Query().Get("employeeId"))
	if err != nil {
		slog.Error("balance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	data, err := reports.BalanceSummaryCSV(rows)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leave-balances-%d.csv", year))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleMonthlyAttendance(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.MonthlyAttendance(r.Context(), year, month)
	if err != nil {
		slog.Error("attendance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMonthlyAttendanceCSV(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.MonthlyAttendance(r.Context(), year, month)
	if err != nil {
		slog.Error("attendance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	data, err := reports.MonthlyAttendanceCSV(rows)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%d-%02d.csv", year, int(month)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleMonthlyAttendancePDF(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.periodParams(w, r)
	if !ok {
		return
	}
	rows, err := h.Service.MonthlyAttendance(r.Context(), year, month)
	if err != nil {
		slog.Error("attendance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	data, err := reports.MonthlyAttendancePDF(rows, year, month)
	if err != nil {
		slog.Error("attendance pdf failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "report failed", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%d-%02d.pdf", year, int(month)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleListJobRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	runs, err := h.Jobs.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("job runs list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Collector == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "metrics disabled", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, h.Collector.Snapshot(), middleware.GetRequestID(r.Context()))
}
