// Package postgres implements the attendance store against the hosted
// relational database (Supabase exposes a plain PostgreSQL instance).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timeroom/internal/attendance"
	domainerrors "timeroom/pkg/domainerrors"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EmployeeByEPC(ctx context.Context, epc string) (*attendance.Employee, error) {
	query := `
		SELECT id, epc_code, full_name,
		       COALESCE(office, ''), COALESCE(position, ''), COALESCE(address, ''),
		       created_at
		FROM employees
		WHERE epc_code = $1
	`
	var employee attendance.Employee
	err := s.db.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(epc))).Scan(
		&employee.ID,
		&employee.EPCCode,
		&employee.FullName,
		&employee.Office,
		&employee.Position,
		&employee.Address,
		&employee.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query employee by epc: %w", err)
	}
	return &employee, nil
}

func (s *Store) LocationByAntenna(ctx context.Context, antennaPort int) (*attendance.Location, error) {
	query := `SELECT id, antenna_port, area_name FROM locations WHERE antenna_port = $1`
	var location attendance.Location
	err := s.db.QueryRowContext(ctx, query, antennaPort).Scan(&location.ID, &location.AntennaPort, &location.AreaName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query location by antenna: %w", err)
	}
	return &location, nil
}

func (s *Store) ActiveLog(ctx context.Context, employeeID string, locationID int) (*attendance.Log, error) {
	query := `
		SELECT id, employee_id, location_id, time_in, time_out, status
		FROM attendance_logs
		WHERE employee_id = $1 AND location_id = $2 AND status = $3
		ORDER BY time_in DESC
		LIMIT 1
	`
	var log attendance.Log
	err := s.db.QueryRowContext(ctx, query, employeeID, locationID, attendance.StatusIn).Scan(
		&log.ID, &log.EmployeeID, &log.LocationID, &log.TimeIn, &log.TimeOut, &log.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active log: %w", err)
	}
	return &log, nil
}

func (s *Store) CreateLog(ctx context.Context, employeeID string, locationID int, timeIn time.Time) (*attendance.Log, error) {
	query := `
		INSERT INTO attendance_logs (id, employee_id, location_id, time_in, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, employee_id, location_id, time_in, time_out, status
	`
	var log attendance.Log
	err := s.db.QueryRowContext(ctx, query, uuid.New(), employeeID, locationID, timeIn, attendance.StatusIn).Scan(
		&log.ID, &log.EmployeeID, &log.LocationID, &log.TimeIn, &log.TimeOut, &log.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attendance log: %w", err)
	}
	return &log, nil
}

func (s *Store) CompleteLog(ctx context.Context, logID string, timeOut time.Time) (*attendance.Log, error) {
	query := `
		UPDATE attendance_logs
		SET time_out = $2, status = $3
		WHERE id = $1
		RETURNING id, employee_id, location_id, time_in, time_out, status
	`
	var log attendance.Log
	err := s.db.QueryRowContext(ctx, query, logID, timeOut, attendance.StatusCompleted).Scan(
		&log.ID, &log.EmployeeID, &log.LocationID, &log.TimeIn, &log.TimeOut, &log.Status,
	)
	if err == sql.ErrNoRows {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "attendance log not found")
	}
	if err != nil {
		return nil, fmt.Errorf("complete attendance log: %w", err)
	}
	return &log, nil
}

const joinedLogColumns = `
	l.id, l.employee_id, l.location_id, l.time_in, l.time_out, l.status,
	e.id, e.epc_code, e.full_name,
	COALESCE(e.office, ''), COALESCE(e.position, ''), COALESCE(e.address, ''), e.created_at,
	loc.id, loc.antenna_port, loc.area_name
`

func (s *Store) ListActive(ctx context.Context, locationID *int) ([]attendance.LogEntry, error) {
	query := `
		SELECT ` + joinedLogColumns + `
		FROM attendance_logs l
		JOIN employees e ON e.id = l.employee_id
		JOIN locations loc ON loc.id = l.location_id
		WHERE l.status = $1
	`
	args := []any{attendance.StatusIn}
	if locationID != nil {
		query += ` AND l.location_id = $2`
		args = append(args, *locationID)
	}
	query += ` ORDER BY l.time_in DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query active logs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) ListLogs(ctx context.Context, limit int, employeeID string) ([]attendance.LogEntry, error) {
	query := `
		SELECT ` + joinedLogColumns + `
		FROM attendance_logs l
		JOIN employees e ON e.id = l.employee_id
		JOIN locations loc ON loc.id = l.location_id
	`
	args := []any{}
	if employeeID != "" {
		query += ` WHERE l.employee_id = $1`
		args = append(args, employeeID)
	}
	query += fmt.Sprintf(` ORDER BY l.time_in DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance logs: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) TodayStats(ctx context.Context, now time.Time) (attendance.Stats, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3)
		FROM attendance_logs
		WHERE time_in >= $1
	`
	var stats attendance.Stats
	err := s.db.QueryRowContext(ctx, query, midnight, attendance.StatusIn, attendance.StatusCompleted).Scan(
		&stats.TotalEntries, &stats.ActiveNow, &stats.Completed,
	)
	if err != nil {
		return attendance.Stats{}, fmt.Errorf("query today stats: %w", err)
	}
	return stats, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	query := `
		SELECT id, epc_code, full_name,
		       COALESCE(office, ''), COALESCE(position, ''), COALESCE(address, ''),
		       created_at
		FROM employees
		ORDER BY full_name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		var employee attendance.Employee
		if err := rows.Scan(
			&employee.ID, &employee.EPCCode, &employee.FullName,
			&employee.Office, &employee.Position, &employee.Address,
			&employee.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]attendance.Location, error) {
	query := `SELECT id, antenna_port, area_name FROM locations ORDER BY antenna_port`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locations []attendance.Location
	for rows.Next() {
		var location attendance.Location
		if err := rows.Scan(&location.ID, &location.AntennaPort, &location.AreaName); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee attendance.Employee) (*attendance.Employee, error) {
	epc := strings.ToUpper(strings.TrimSpace(employee.EPCCode))
	if epc == "" || employee.FullName == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "epc_code and full_name are required")
	}

	query := `
		INSERT INTO employees (id, epc_code, full_name, office, position, address, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		ON CONFLICT (epc_code) DO NOTHING
		RETURNING id, epc_code, full_name,
		          COALESCE(office, ''), COALESCE(position, ''), COALESCE(address, ''),
		          created_at
	`
	var created attendance.Employee
	err := s.db.QueryRowContext(ctx, query,
		uuid.New(), epc, employee.FullName,
		employee.Office, employee.Position, employee.Address,
		time.Now(),
	).Scan(
		&created.ID, &created.EPCCode, &created.FullName,
		&created.Office, &created.Position, &created.Address,
		&created.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domainerrors.New(domainerrors.CodeConflict, "epc_code already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("insert employee: %w", err)
	}
	return &created, nil
}

func scanEntries(rows *sql.Rows) ([]attendance.LogEntry, error) {
	var entries []attendance.LogEntry
	for rows.Next() {
		var (
			entry    attendance.LogEntry
			employee attendance.Employee
			location attendance.Location
		)
		err := rows.Scan(
			&entry.ID, &entry.EmployeeID, &entry.LocationID, &entry.TimeIn, &entry.TimeOut, &entry.Status,
			&employee.ID, &employee.EPCCode, &employee.FullName,
			&employee.Office, &employee.Position, &employee.Address, &employee.CreatedAt,
			&location.ID, &location.AntennaPort, &location.AreaName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance entry: %w", err)
		}
		entry.Employee = &employee
		entry.Location = &location
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance entries: %w", err)
	}
	return entries, nil
}
