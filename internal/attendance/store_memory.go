package attendance

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainerrors "timeroom/pkg/domainerrors"
)

// InMemoryStore keeps the whole domain in maps. It backs tests and
// development runs without a database; the postgres store is the production
// implementation.
type InMemoryStore struct {
	mu        sync.RWMutex
	employees map[string]Employee // keyed by EPC code
	locations map[int]Location    // keyed by antenna port
	logs      []Log
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		employees: make(map[string]Employee),
		locations: make(map[int]Location),
	}
}

// SeedLocation registers a tracked area. Locations are reference data, so
// seeding replaces any previous entry for the antenna port.
func (s *InMemoryStore) SeedLocation(location Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if location.ID == 0 {
		location.ID = len(s.locations) + 1
	}
	s.locations[location.AntennaPort] = location
}

func (s *InMemoryStore) EmployeeByEPC(_ context.Context, epc string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	employee, ok := s.employees[strings.ToUpper(strings.TrimSpace(epc))]
	if !ok {
		return nil, nil
	}
	return &employee, nil
}

func (s *InMemoryStore) LocationByAntenna(_ context.Context, antennaPort int) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	location, ok := s.locations[antennaPort]
	if !ok {
		return nil, nil
	}
	return &location, nil
}

func (s *InMemoryStore) ActiveLog(_ context.Context, employeeID string, locationID int) (*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.logs {
		log := s.logs[i]
		if log.EmployeeID == employeeID && log.LocationID == locationID && log.Status == StatusIn {
			return &log, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) CreateLog(_ context.Context, employeeID string, locationID int, timeIn time.Time) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := Log{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		LocationID: locationID,
		TimeIn:     timeIn,
		Status:     StatusIn,
	}
	s.logs = append(s.logs, log)
	return &log, nil
}

func (s *InMemoryStore) CompleteLog(_ context.Context, logID string, timeOut time.Time) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.logs {
		if s.logs[i].ID == logID {
			s.logs[i].Status = StatusCompleted
			out := timeOut
			s.logs[i].TimeOut = &out
			log := s.logs[i]
			return &log, nil
		}
	}
	return nil, domainerrors.New(domainerrors.CodeNotFound, "attendance log not found")
}

func (s *InMemoryStore) ListActive(_ context.Context, locationID *int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []LogEntry{}
	for i := range s.logs {
		log := s.logs[i]
		if log.Status != StatusIn {
			continue
		}
		if locationID != nil && log.LocationID != *locationID {
			continue
		}
		entries = append(entries, s.joinLocked(log))
	}
	sortEntriesByTimeInDesc(entries)
	return entries, nil
}

func (s *InMemoryStore) ListLogs(_ context.Context, limit int, employeeID string) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []LogEntry{}
	for i := range s.logs {
		log := s.logs[i]
		if employeeID != "" && log.EmployeeID != employeeID {
			continue
		}
		entries = append(entries, s.joinLocked(log))
	}
	sortEntriesByTimeInDesc(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *InMemoryStore) TodayStats(_ context.Context, now time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var stats Stats
	for i := range s.logs {
		log := s.logs[i]
		if log.TimeIn.Before(midnight) {
			continue
		}
		stats.TotalEntries++
		switch log.Status {
		case StatusIn:
			stats.ActiveNow++
		case StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

func (s *InMemoryStore) ListEmployees(_ context.Context) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	employees := make([]Employee, 0, len(s.employees))
	for _, employee := range s.employees {
		employees = append(employees, employee)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i].FullName < employees[j].FullName })
	return employees, nil
}

func (s *InMemoryStore) ListLocations(_ context.Context) ([]Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locations := make([]Location, 0, len(s.locations))
	for _, location := range s.locations {
		locations = append(locations, location)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].AntennaPort < locations[j].AntennaPort })
	return locations, nil
}

func (s *InMemoryStore) CreateEmployee(_ context.Context, employee Employee) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	epc := strings.ToUpper(strings.TrimSpace(employee.EPCCode))
	if epc == "" || employee.FullName == "" {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "epc_code and full_name are required")
	}
	if _, exists := s.employees[epc]; exists {
		return nil, domainerrors.New(domainerrors.CodeConflict, "epc_code already registered")
	}
	employee.EPCCode = epc
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now()
	}
	s.employees[epc] = employee
	return &employee, nil
}

// joinLocked attaches employee and location details to a log. Caller holds
// at least a read lock.
func (s *InMemoryStore) joinLocked(log Log) LogEntry {
	entry := LogEntry{Log: log}
	for _, employee := range s.employees {
		if employee.ID == log.EmployeeID {
			e := employee
			entry.Employee = &e
			break
		}
	}
	for _, location := range s.locations {
		if location.ID == log.LocationID {
			l := location
			entry.Location = &l
			break
		}
	}
	return entry
}

func sortEntriesByTimeInDesc(entries []LogEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].TimeIn.After(entries[j].TimeIn) })
}
