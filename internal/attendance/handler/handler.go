// Package handler exposes the attendance REST API consumed by dashboards and
// admin tooling.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"timeroom/internal/attendance"
	"timeroom/pkg/domainerrors"
	"timeroom/pkg/httputil"
)

// Service defines the attendance operations the REST layer needs.
type Service interface {
	ListActive(ctx context.Context, locationID *int) ([]attendance.LogEntry, error)
	ListLogs(ctx context.Context, limit int, employeeID string) ([]attendance.LogEntry, error)
	TodayStats(ctx context.Context) (attendance.Stats, error)
	ListEmployees(ctx context.Context) ([]attendance.Employee, error)
	ListLocations(ctx context.Context) ([]attendance.Location, error)
	RegisterEmployee(ctx context.Context, employee attendance.Employee) (*attendance.Employee, error)
}

// Debouncer is the pipeline state the admin clear endpoint resets.
type Debouncer interface {
	Reset(ctx context.Context) error
}

// SubscriberCounter reports live WebSocket connections for the status page.
type SubscriberCounter interface {
	SubscriberCount() int
}

// Handler wires attendance endpoints to the attendance service.
type Handler struct {
	service     Service
	debouncer   Debouncer
	subscribers SubscriberCounter
	logger      *slog.Logger
	startedAt   time.Time
}

// New constructs an attendance handler with its dependencies.
func New(service Service, debouncer Debouncer, subscribers SubscriberCounter, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		debouncer:   debouncer,
		subscribers: subscribers,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// Register mounts attendance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/status", h.HandleStatus)
	r.Get("/api/active", h.HandleActive)
	r.Get("/api/logs", h.HandleLogs)
	r.Get("/api/stats", h.HandleStats)
	r.Get("/api/employees", h.HandleEmployees)
	r.Get("/api/locations", h.HandleLocations)
	r.Post("/api/employees/register", h.HandleRegisterEmployee)
	r.Post("/api/clear", h.HandleClear)
}

// HandleStatus handles GET /api/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"subscribers":    h.subscribers.SubscriberCount(),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

// HandleActive handles GET /api/active requests. An optional location_id
// query parameter restricts the result to one tracked area.
func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	var locationID *int
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "location_id must be an integer"))
			return
		}
		locationID = &id
	}

	entries, err := h.service.ListActive(r.Context(), locationID)
	if err != nil {
		h.logger.Error("list active failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleLogs handles GET /api/logs requests with optional limit and
// employee_id filters.
func (h *Handler) HandleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "limit must be an integer"))
			return
		}
		limit = n
	}

	entries, err := h.service.ListLogs(r.Context(), limit, r.URL.Query().Get("employee_id"))
	if err != nil {
		h.logger.Error("list logs failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

// HandleStats handles GET /api/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TodayStats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleEmployees handles GET /api/employees requests.
func (h *Handler) HandleEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.service.ListEmployees(r.Context())
	if err != nil {
		h.logger.Error("list employees failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, employees)
}

// HandleLocations handles GET /api/locations requests.
func (h *Handler) HandleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.ListLocations(r.Context())
	if err != nil {
		h.logger.Error("list locations failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, locations)
}

// RegisterEmployeeRequest is the POST /api/employees/register body.
type RegisterEmployeeRequest struct {
	EPCCode  string `json:"epc_code"`
	FullName string `json:"full_name"`
	Office   string `json:"office"`
	Position string `json:"position"`
	Address  string `json:"address"`
}

// HandleRegisterEmployee handles POST /api/employees/register requests.
func (h *Handler) HandleRegisterEmployee(w http.ResponseWriter, r *http.Request) {
	var req RegisterEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	employee, err := h.service.RegisterEmployee(r.Context(), attendance.Employee{
		EPCCode:  req.EPCCode,
		FullName: req.FullName,
		Office:   req.Office,
		Position: req.Position,
		Address:  req.Address,
	})
	if err != nil {
		h.logger.Warn("employee registration failed", "epc", req.EPCCode, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.Info("employee registered", "epc", employee.EPCCode, "name", employee.FullName)
	httputil.WriteJSON(w, http.StatusCreated, employee)
}

// HandleClear handles POST /api/clear requests, resetting debounce state so
// the next read of every tag is processed immediately.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.debouncer.Reset(r.Context()); err != nil {
		h.logger.Error("debounce reset failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.Info("debounce state cleared")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
