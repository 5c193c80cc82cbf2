// Package attendance owns the presence domain: employees, tracked locations,
// attendance logs, and the scan events the pipeline emits.
package attendance

import "time"

// Action classifies the outcome of a processed tag scan.
type Action string

const (
	ActionIn      Action = "IN"
	ActionOut     Action = "OUT"
	ActionUnknown Action = "UNKNOWN"
)

// Attendance log status values. A log is IN from entry until the matching
// exit completes it.
const (
	StatusIn        = "IN"
	StatusCompleted = "COMPLETED"
)

// Employee is a registered badge holder, looked up by EPC code.
type Employee struct {
	ID        string    `json:"id"`
	EPCCode   string    `json:"epc_code"`
	FullName  string    `json:"full_name"`
	Office    string    `json:"office,omitempty"`
	Position  string    `json:"position,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Location is a tracked area, one per reader antenna port.
type Location struct {
	ID          int    `json:"id"`
	AntennaPort int    `json:"antenna_port"`
	AreaName    string `json:"area_name"`
}

// Log is one presence period. At most one IN log exists per
// (employee, location) at any time; completing it records the exit.
type Log struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	LocationID int        `json:"location_id"`
	TimeIn     time.Time  `json:"time_in"`
	TimeOut    *time.Time `json:"time_out,omitempty"`
	Status     string     `json:"status"`
}

// LogEntry is a log joined with its employee and location for list views.
type LogEntry struct {
	Log
	Employee *Employee `json:"employee,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Stats summarizes today's attendance activity.
type Stats struct {
	TotalEntries int `json:"total_entries"`
	ActiveNow    int `json:"active_now"`
	Completed    int `json:"completed"`
}

// ScanEvent is the immutable record of one processed scan, fed to both the
// broadcaster and (for exits) the notification aggregator.
type ScanEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	EPC       string    `json:"epc"`
	TID       string    `json:"tid,omitempty"`
	Antenna   int       `json:"antenna"`
	Employee  *Employee `json:"employee"`
	Location  *Location `json:"location"`
	Message   string    `json:"message"`
}
