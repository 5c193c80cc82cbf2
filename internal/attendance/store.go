package attendance

import (
	"context"
	"time"
)

// Store is the persistence boundary for the presence domain. Lookups return
// (nil, nil) when nothing matches; only transport or consistency failures
// surface as errors.
type Store interface {
	EmployeeByEPC(ctx context.Context, epc string) (*Employee, error)
	LocationByAntenna(ctx context.Context, antennaPort int) (*Location, error)

	// ActiveLog returns the open IN log for the pair, if any.
	ActiveLog(ctx context.Context, employeeID string, locationID int) (*Log, error)
	CreateLog(ctx context.Context, employeeID string, locationID int, timeIn time.Time) (*Log, error)
	CompleteLog(ctx context.Context, logID string, timeOut time.Time) (*Log, error)

	ListActive(ctx context.Context, locationID *int) ([]LogEntry, error)
	ListLogs(ctx context.Context, limit int, employeeID string) ([]LogEntry, error)
	TodayStats(ctx context.Context, now time.Time) (Stats, error)

	ListEmployees(ctx context.Context) ([]Employee, error)
	ListLocations(ctx context.Context) ([]Location, error)
	CreateEmployee(ctx context.Context, employee Employee) (*Employee, error)
}
