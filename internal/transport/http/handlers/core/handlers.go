package corehandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hcm/internal/domain/audit"
	"hcm/internal/domain/auth"
	"hcm/internal/domain/core"
	"hcm/internal/transport/http/api"
	"hcm/internal/transport/http/middleware"
	"hcm/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *core.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGetEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateDepartment)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	employees, err := h.Service.ListEmployees(r.Context(), page.Limit, page.Offset)
	if err != nil {
		slog.Error("employee list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not list employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.EmployeeByID(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

type createEmployeePayload struct {
	UserID         string `json:"userId"`
	EmployeeNumber string `json:"employeeNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Gender         string `json:"gender"`
	DepartmentID   string `json:"departmentId"`
	ManagerID      string `json:"managerId"`
	StartDate      string `json:"startDate"`
	Status         string `json:"status"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload createEmployeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "firstName is required")
	v.Required("lastName", payload.LastName, "lastName is required")
	v.Required("email", payload.Email, "email is required")
	v.Required("employeeNumber", payload.EmployeeNumber, "employeeNumber is required")
	v.Enum("gender", payload.Gender,
		[]string{core.GenderMale, core.GenderFemale, core.GenderOther}, "must be male, female or other")
	startDate, _ := v.Date("startDate", payload.StartDate)
	if v.Reject(w, reqID) {
		return
	}
	if payload.Status == "" {
		payload.Status = "active"
	}

	emp := core.Employee{
		UserID:         payload.UserID,
		EmployeeNumber: payload.EmployeeNumber,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		Gender:         payload.Gender,
		DepartmentID:   payload.DepartmentID,
		ManagerID:      payload.ManagerID,
		StartDate:      &startDate,
		Status:         payload.Status,
	}
	id, err := h.Service.CreateEmployee(r.Context(), emp)
	if err != nil {
		slog.Error("employee create failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not create employee", reqID)
		return
	}
	emp.ID = id

	if h.Audit != nil {
		actorID := ""
		if user, ok := middleware.GetUser(r.Context()); ok {
			actorID = user.UserID
		}
		if err := h.Audit.Record(r.Context(), actorID, "core.employee.create", "employee", id,
			reqID, shared.ClientIP(r), nil, emp); err != nil {
			slog.Warn("audit record failed", "action", "core.employee.create", "err", err)
		}
	}
	api.Created(w, emp, reqID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListDepartments(r.Context())
	if err != nil {
		slog.Error("department list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not list departments", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, departments, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		Name      string `json:"name"`
		ManagerID string `json:"managerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, reqID) {
		return
	}

	id, err := h.Service.CreateDepartment(r.Context(), payload.Name, payload.ManagerID)
	if err != nil {
		slog.Error("department create failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "could not create department", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id, "name": payload.Name}, reqID)
}
