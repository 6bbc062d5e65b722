package leavehandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/audit"
	"hcm/internal/domain/auth"
	"hcm/internal/domain/core"
	"hcm/internal/domain/leave"
	"hcm/internal/domain/notifications"
	"hcm/internal/platform/jobs"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
	"hcm/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Core    *core.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
	Idem    *middleware.IdempotencyStore
}

func NewHandler(service *leave.Service, coreSvc *core.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, jobsSvc *jobs.Service, idem *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Core: coreSvc, Perms: perms, Notify: notify, Audit: auditSvc, Jobs: jobsSvc, Idem: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/types", h.handleListTypes)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/types", h.handleCreateType)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Put("/types/{leaveTypeID}", h.handleUpdateType)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/policies", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/policies", h.handleCreatePolicy)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/holidays", h.handleListHolidays)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/holidays", h.handleCreateHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Delete("/holidays/{holidayID}", h.handleDeleteHoliday)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/balances", h.handleListBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/initialize", h.handleInitializeBalances)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/carry-forward", h.handleCarryForward)
		r.With(middleware.RequirePermission(auth.PermLeaveAdmin, h.Perms)).Post("/balances/encash", h.handleEncash)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests", h.handleListRequests)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/preview", h.handlePreviewRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/requests/{requestID}/withdraw", h.handleWithdrawRequest)
	})
}

// fail maps domain errors onto the HTTP taxonomy: bad input 400, policy
// refusals 422, lost races 409, broken ledger invariants 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	var insufficient *leave.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		api.Fail(w, http.StatusConflict, "insufficient_balance", insufficient.Error(), reqID)
	case errors.Is(err, leave.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_dates", "end date must be on or after start date", reqID)
	case errors.Is(err, leave.ErrReasonRequired):
		api.Fail(w, http.StatusBadRequest, "reason_required", "a rejection reason is required", reqID)
	case errors.Is(err, leave.ErrNoChargeableDays):
		api.Fail(w, http.StatusUnprocessableEntity, "no_chargeable_days", "the requested range contains no chargeable days", reqID)
	case errors.Is(err, leave.ErrNotEligibleYet):
		api.Fail(w, http.StatusUnprocessableEntity, "not_eligible", "employee has not completed the probation period", reqID)
	case errors.Is(err, leave.ErrNotApplicable):
		api.Fail(w, http.StatusUnprocessableEntity, "not_applicable", "leave type is not applicable to this employee", reqID)
	case errors.Is(err, leave.ErrExceedsConsecutiveLimit):
		api.Fail(w, http.StatusUnprocessableEntity, "exceeds_consecutive_limit", "request exceeds the maximum consecutive days", reqID)
	case errors.Is(err, leave.ErrTooFarInAdvance):
		api.Fail(w, http.StatusUnprocessableEntity, "too_far_in_advance", "start date is beyond the allowed advance window", reqID)
	case errors.Is(err, leave.ErrEncashmentNotAllowed):
		api.Fail(w, http.StatusUnprocessableEntity, "encashment_not_allowed", "leave type does not allow encashment", reqID)
	case errors.Is(err, leave.ErrBalanceNotFound):
		api.Fail(w, http.StatusNotFound, "balance_not_found", "leave balance not initialized for this year", reqID)
	case errors.Is(err, leave.ErrRequestNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", reqID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", "request is not in a state that allows this action", reqID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
	case errors.Is(err, leave.ErrLedgerInvariant):
		slog.Error("leave ledger invariant violated", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "ledger_invariant", "internal accounting error", reqID)
	default:
		slog.Error("leave operation failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "operation failed", reqID)
	}
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.Store.ListTypes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var payload leave.LeaveType
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("code", payload.Code, "code is required")
	v.Enum("applicableGender", payload.ApplicableGender,
		[]string{leave.GenderAll, leave.GenderMale, leave.GenderFemale}, "must be all, male or female")
	if payload.AnnualAllocation < 0 {
		v.Add("annualAllocation", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.Store.CreateType(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payload.ID = id
	api.Created(w, payload, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	var payload leave.LeaveType
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.ID = chi.URLParam(r, "leaveTypeID")

	existing, err := h.Service.Store.TypeByID(r.Context(), payload.ID)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "leave type not found", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Enum("applicableGender", payload.ApplicableGender,
		[]string{leave.GenderAll, leave.GenderMale, leave.GenderFemale}, "must be all, male or female")
	if payload.AnnualAllocation < 0 {
		v.Add("annualAllocation", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.Store.UpdateType(r.Context(), payload); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "leave.type.update", "leave_type", payload.ID, existing, payload)

	updated, err := h.Service.Store.TypeByID(r.Context(), payload.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.Store.ListPolicies(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload leave.LeavePolicy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	v.Enum("accrualPeriod", payload.AccrualPeriod,
		[]string{leave.AccrualMonthly, leave.AccrualQuarterly, leave.AccrualYearly}, "must be monthly, quarterly or yearly")
	v.Enum("accrualAnchor", payload.AccrualAnchor,
		[]string{leave.AnchorHireDate, leave.AnchorCalendarYear, leave.AnchorFiscalYear}, "must be hire_date, calendar_year or fiscal_year")
	if payload.MaxAdvanceDays < 0 {
		v.Add("maxAdvanceDays", "must not be negative")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.Store.CreatePolicy(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	payload.ID = id
	api.Created(w, payload, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Service.Store.ListHolidays(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name             string `json:"name"`
		Date             string `json:"date"`
		Recurring        bool   `json:"recurring"`
		Type             string `json:"type"`
		ApplicableGender string `json:"applicableGender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	date, _ := v.Date("date", payload.Date)
	v.Enum("type", payload.Type,
		[]string{leave.HolidayNational, leave.HolidayReligious, leave.HolidayCompany, leave.HolidayOptional},
		"must be national, religious, company or optional")
	v.Enum("applicableGender", payload.ApplicableGender,
		[]string{leave.GenderAll, leave.GenderMale, leave.GenderFemale}, "must be all, male or female")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	holiday := leave.Holiday{
		Name:             payload.Name,
		Date:             date,
		Recurring:        payload.Recurring,
		Type:             payload.Type,
		ApplicableGender: payload.ApplicableGender,
	}
	id, err := h.Service.Store.CreateHoliday(r.Context(), holiday)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	holiday.ID = id
	api.Created(w, holiday, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID")); err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "holiday not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]bool{"deleted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))

	// Employees only see their own ledger; managers see their reports'.
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
				h.fail(w, r, leave.ErrForbidden)
				return
			}
		default:
			h.fail(w, r, leave.ErrForbidden)
			return
		}
	}

	balances, err := h.Service.ListBalances(r.Context(), employeeID, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, balances, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EmployeeID  string  `json:"employeeId"`
		LeaveTypeID string  `json:"leaveTypeId"`
		Year        int     `json:"year"`
		Delta       float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	if payload.Year < 2000 {
		v.Add("year", "must be a four-digit year")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.Store.AdjustBalance(r.Context(), payload.EmployeeID, payload.LeaveTypeID, payload.Year, payload.Delta); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "leave.balance.adjust", "leave_balance", payload.EmployeeID, nil, payload)
	api.Success(w, map[string]bool{"adjusted": true}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleInitializeBalances(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Year int `json:"year"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Year < 2000 {
		api.Fail(w, http.StatusBadRequest, "invalid_year", "year must be a four-digit year", middleware.GetRequestID(r.Context()))
		return
	}

	details, err := h.Jobs.RunNow(r.Context(), jobs.JobBalanceInit, func(ctx context.Context) (any, error) {
		created, err := h.Service.InitializeYear(ctx, payload.Year)
		return map[string]any{"year": payload.Year, "created": created}, err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "leave.balance.initialize", "leave_balance", "", nil, details)
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCarryForward(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FromYear int `json:"fromYear"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.FromYear < 2000 {
		api.Fail(w, http.StatusBadRequest, "invalid_year", "fromYear must be a four-digit year", middleware.GetRequestID(r.Context()))
		return
	}

	details, err := h.Jobs.RunNow(r.Context(), jobs.JobCarryForward, func(ctx context.Context) (any, error) {
		credited, err := h.Service.CarryForward(ctx, payload.FromYear)
		return map[string]any{"fromYear": payload.FromYear, "credited": credited}, err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "leave.balance.carry_forward", "leave_balance", "", nil, details)
	api.Success(w, details, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEncash(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EmployeeID  string  `json:"employeeId"`
		LeaveTypeID string  `json:"leaveTypeId"`
		Year        int     `json:"year"`
		Days        float64 `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	if payload.Days <= 0 {
		v.Add("days", "must be positive")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.Encash(r.Context(), payload.EmployeeID, payload.LeaveTypeID, payload.Year, payload.Days); err != nil {
		h.fail(w, r, err)
		return
	}
	h.audit(r, "leave.balance.encash", "leave_balance", payload.EmployeeID, nil, payload)

	balance, err := h.Service.BalanceFor(r.Context(), payload.EmployeeID, payload.LeaveTypeID, payload.Year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, balance, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)
	status := strings.TrimSpace(q.Get("status"))
	employeeID := strings.TrimSpace(q.Get("employeeId"))
	managerEmployeeID := ""

	// Employees see their own requests; managers additionally see their
	// reports' requests; HR sees everything.
	if user.RoleName != auth.RoleHR {
		selfID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusNotFound, "not_found", "no employee record for user", middleware.GetRequestID(r.Context()))
			return
		}
		switch {
		case user.RoleName == auth.RoleEmployee:
			employeeID = selfID
		case employeeID == "":
			managerEmployeeID = selfID
		default:
			manages, err := h.Core.IsManagerOf(r.Context(), selfID, employeeID)
			if err != nil || !manages {
				h.fail(w, r, leave.ErrForbidden)
				return
			}
		}
	}

	requests, total, err := h.Service.ListRequests(r.Context(), employeeID, managerEmployeeID, status, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"requests": requests,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.RequestByID(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.authorizeView(r.Context(), user, req.EmployeeID); err != nil {
		h.fail(w, r, err)
		return
	}

	events, err := h.Service.History(r.Context(), req.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"request": req, "events": events}, middleware.GetRequestID(r.Context()))
}

// authorizeView gates a single-request read the same way decisions are
// gated: owner, reporting-line manager or HR.
func (h *Handler) authorizeView(ctx context.Context, user auth.UserContext, employeeID string) error {
	if user.RoleName == auth.RoleHR {
		return nil
	}
	selfID, err := h.Core.EmployeeIDByUserID(ctx, user.UserID)
	if err != nil {
		return leave.ErrForbidden
	}
	if selfID == employeeID {
		return nil
	}
	if user.RoleName == auth.RoleManager {
		manages, err := h.Core.IsManagerOf(ctx, selfID, employeeID)
		if err == nil && manages {
			return nil
		}
	}
	return leave.ErrForbidden
}

type createRequestPayload struct {
	EmployeeID         string `json:"employeeId"`
	LeaveTypeID        string `json:"leaveTypeId"`
	StartDate          string `json:"startDate"`
	EndDate            string `json:"endDate"`
	Reason             string `json:"reason"`
	Emergency          bool   `json:"emergency"`
	HandoverNotes      string `json:"handoverNotes"`
	ContactDuringLeave string `json:"contactDuringLeave"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read request body", reqID)
		return
	}

	// Replay protection: the same Idempotency-Key with the same body
	// returns the stored response instead of reserving twice.
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Idem != nil {
		cached, found, err := h.Idem.Check(r.Context(), user.UserID, "POST /leave/requests", idemKey, middleware.RequestHash(body))
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", reqID)
			return
		}
		if err == nil && found {
			api.Success(w, json.RawMessage(cached), reqID)
			return
		}
	}

	var payload createRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return
	}

	employeeID := payload.EmployeeID
	selfID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil && employeeID == "" {
		api.Fail(w, http.StatusNotFound, "not_found", "no employee record for user", reqID)
		return
	}
	if employeeID == "" {
		employeeID = selfID
	}
	// Filing on behalf of someone else is an HR-only action.
	if employeeID != selfID && user.RoleName != auth.RoleHR {
		h.fail(w, r, leave.ErrForbidden)
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), leave.CreateRequestInput{
		EmployeeID:         employeeID,
		LeaveTypeID:        payload.LeaveTypeID,
		StartDate:          start,
		EndDate:            end,
		Reason:             payload.Reason,
		Emergency:          payload.Emergency,
		HandoverNotes:      payload.HandoverNotes,
		ContactDuringLeave: payload.ContactDuringLeave,
		ActorID:            user.UserID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if idemKey != "" && h.Idem != nil {
		response, marshalErr := json.Marshal(created)
		if marshalErr == nil {
			if err := h.Idem.Save(r.Context(), user.UserID, "POST /leave/requests", idemKey, middleware.RequestHash(body), response); err != nil {
				slog.Warn("idempotency save failed", "requestId", reqID, "err", err)
			}
		}
	}

	h.audit(r, "leave.request.create", "leave_request", created.ID, nil, created)
	h.notifyManager(r, created)
	api.Created(w, created, reqID)
}

func (h *Handler) handlePreviewRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("leaveTypeId", payload.LeaveTypeID, "leaveTypeId is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return
	}

	employeeID := payload.EmployeeID
	if employeeID == "" {
		selfID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusNotFound, "not_found", "no employee record for user", reqID)
			return
		}
		employeeID = selfID
	}

	days, err := h.Service.PreviewDays(r.Context(), employeeID, payload.LeaveTypeID, start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"totalDays": days}, reqID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	req, err := h.Service.Approve(r.Context(), chi.URLParam(r, "requestID"), user.UserID, user.RoleName)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.audit(r, "leave.request.approve", "leave_request", req.ID, nil, req)
	h.notifyEmployee(r, req, notifications.TypeLeaveApproved, "Leave request approved",
		fmt.Sprintf("Your leave request for %d day(s) starting %s was approved.", req.TotalDays, req.StartDate.Format("2006-01-02")))
	api.Success(w, req, reqID)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	req, err := h.Service.Reject(r.Context(), chi.URLParam(r, "requestID"), user.UserID, user.RoleName, payload.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.audit(r, "leave.request.reject", "leave_request", req.ID, nil, req)
	h.notifyEmployee(r, req, notifications.TypeLeaveRejected, "Leave request rejected",
		fmt.Sprintf("Your leave request starting %s was rejected: %s", req.StartDate.Format("2006-01-02"), payload.Reason))
	api.Success(w, req, reqID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	req, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "requestID"), user.UserID, user.RoleName)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.audit(r, "leave.request.cancel", "leave_request", req.ID, nil, req)
	h.notifyEmployee(r, req, notifications.TypeLeaveCancelled, "Leave request cancelled",
		fmt.Sprintf("Your leave request starting %s was cancelled.", req.StartDate.Format("2006-01-02")))
	api.Success(w, req, reqID)
}

func (h *Handler) handleWithdrawRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	req, err := h.Service.Withdraw(r.Context(), chi.URLParam(r, "requestID"), user.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.audit(r, "leave.request.withdraw", "leave_request", req.ID, nil, req)
	api.Success(w, req, reqID)
}

func (h *Handler) audit(r *http.Request, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	actorID := ""
	if user, ok := middleware.GetUser(r.Context()); ok {
		actorID = user.UserID
	}
	if err := h.Audit.Record(r.Context(), actorID, action, entityType, entityID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err)
	}
}

// notifyManager tells the reporting-line manager about a new request.
// Notification failures never fail the request itself.
func (h *Handler) notifyManager(r *http.Request, req leave.LeaveRequest) {
	if h.Notify == nil {
		return
	}
	emp, err := h.Core.EmployeeByID(r.Context(), req.EmployeeID)
	if err != nil || emp.ManagerID == "" {
		return
	}
	mgr, err := h.Core.EmployeeByID(r.Context(), emp.ManagerID)
	if err != nil || mgr.UserID == "" {
		return
	}
	title := "Leave request awaiting review"
	body := fmt.Sprintf("%s %s requested %d day(s) of leave starting %s.",
		emp.FirstName, emp.LastName, req.TotalDays, req.StartDate.Format("2006-01-02"))
	if err := h.Notify.Create(r.Context(), mgr.UserID, notifications.TypeLeaveSubmitted, title, body); err != nil {
		slog.Warn("leave submit notification failed", "requestId", req.ID, "err", err)
	}
}

func (h *Handler) notifyEmployee(r *http.Request, req leave.LeaveRequest, ntype, title, body string) {
	if h.Notify == nil {
		return
	}
	emp, err := h.Core.EmployeeByID(r.Context(), req.EmployeeID)
	if err != nil || emp.UserID == "" {
		return
	}
	if err := h.Notify.Create(r.Context(), emp.UserID, ntype, title, body); err != nil {
		slog.Warn("leave decision notification failed", "requestId", req.ID, "type", ntype, "err", err)
	}
}
