// Package service holds the presence state machine: it turns a debounced tag
// reading into an IN/OUT transition, an ignored bounce, or an unknown-tag
// diagnostic, keeping the store as the single source of presence truth.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timeroom/internal/attendance"
	domainerrors "timeroom/pkg/domainerrors"
)

// Service orchestrates scan processing and read-only projections over the
// attendance store.
type Service struct {
	store    attendance.Store
	minDwell time.Duration
}

func New(store attendance.Store, minDwell time.Duration) *Service {
	return &Service{store: store, minDwell: minDwell}
}

// ProcessScan resolves a scan to a presence transition.
//
// Returns (event, nil) for IN, OUT, and UNKNOWN outcomes; (nil, nil) when the
// scan is ignored by the dwell guard; (nil, err) when the store failed, in
// which case presence state is unchanged. The caller decides what to do with
// UNKNOWN events - they never create or mutate logs.
func (s *Service) ProcessScan(ctx context.Context, scan Scan, now time.Time) (*attendance.ScanEvent, error) {
	employee, err := s.store.EmployeeByEPC(ctx, scan.EPC)
	if err != nil {
		return nil, fmt.Errorf("lookup employee: %w", err)
	}
	if employee == nil {
		return s.unknownEvent(scan, now, fmt.Sprintf("Unknown EPC: %s", scan.EPC)), nil
	}

	location, err := s.store.LocationByAntenna(ctx, scan.Antenna)
	if err != nil {
		return nil, fmt.Errorf("lookup location: %w", err)
	}
	if location == nil {
		return s.unknownEvent(scan, now, fmt.Sprintf("Unknown antenna port: %d", scan.Antenna)), nil
	}

	active, err := s.store.ActiveLog(ctx, employee.ID, location.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup active log: %w", err)
	}

	if active == nil {
		if _, err := s.store.CreateLog(ctx, employee.ID, location.ID, now); err != nil {
			return nil, fmt.Errorf("create attendance log: %w", err)
		}
		return s.transitionEvent(scan, now, attendance.ActionIn, employee, location,
			fmt.Sprintf("%s checked IN to %s", employee.FullName, location.AreaName)), nil
	}

	// Antenna bounce right after an entry would otherwise read as an
	// immediate exit; inside the dwell window the scan is ignored.
	if now.Sub(active.TimeIn) < s.minDwell {
		return nil, nil
	}

	if _, err := s.store.CompleteLog(ctx, active.ID, now); err != nil {
		return nil, fmt.Errorf("complete attendance log: %w", err)
	}
	return s.transitionEvent(scan, now, attendance.ActionOut, employee, location,
		fmt.Sprintf("%s checked OUT from %s", employee.FullName, location.AreaName)), nil
}

// Scan identifies one debounced reading entering the state machine.
type Scan struct {
	EPC     string
	TID     string
	Antenna int
}

func (s *Service) transitionEvent(scan Scan, now time.Time, action attendance.Action, employee *attendance.Employee, location *attendance.Location, message string) *attendance.ScanEvent {
	return &attendance.ScanEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    action,
		EPC:       scan.EPC,
		TID:       scan.TID,
		Antenna:   scan.Antenna,
		Employee:  employee,
		Location:  location,
		Message:   message,
	}
}

func (s *Service) unknownEvent(scan Scan, now time.Time, message string) *attendance.ScanEvent {
	return &attendance.ScanEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    attendance.ActionUnknown,
		EPC:       scan.EPC,
		TID:       scan.TID,
		Antenna:   scan.Antenna,
		Message:   message,
	}
}

// Read-only projections consumed by the REST handlers and the subscriber
// snapshot. They delegate straight to the store.

func (s *Service) ListActive(ctx context.Context, locationID *int) ([]attendance.LogEntry, error) {
	return s.store.ListActive(ctx, locationID)
}

func (s *Service) ListLogs(ctx context.Context, limit int, employeeID string) ([]attendance.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListLogs(ctx, limit, employeeID)
}

func (s *Service) TodayStats(ctx context.Context) (attendance.Stats, error) {
	return s.store.TodayStats(ctx, time.Now())
}

func (s *Service) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	return s.store.ListEmployees(ctx)
}

func (s *Service) ListLocations(ctx context.Context) ([]attendance.Location, error) {
	return s.store.ListLocations(ctx)
}

// RegisterEmployee validates and stores a new badge assignment.
func (s *Service) RegisterEmployee(ctx context.Context, employee attendance.Employee) (*attendance.Employee, error) {
	if employee.EPCCode == "" || employee.FullName == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "epc_code and full_name are required")
	}
	return s.store.CreateEmployee(ctx, employee)
}
