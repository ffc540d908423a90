package model

import "time"

// Incident severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Incident statuses. Any status may be set from any other.
const (
	IncidentOpen       = "open"
	IncidentInProgress = "in_progress"
	IncidentResolved   = "resolved"
)

func ValidSeverity(s string) bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

func ValidIncidentStatus(s string) bool {
	return s == IncidentOpen || s == IncidentInProgress || s == IncidentResolved
}

// Incident is a problem reported on a truck or an equipment unit.
type Incident struct {
	ID          uint64     `json:"id"`
	ReportedBy  uint64     `json:"reported_by"`
	Vehicle     VehicleRef `json:"vehicle"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
