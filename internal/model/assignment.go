package model

import "time"

// Assignment gives one user a claim on one vehicle at a site. While
// IsActive, neither the user nor the vehicle may appear in another active
// assignment. Deactivation is final: EndDate is set and the row is never
// re-activated.
type Assignment struct {
	ID        uint64     `json:"id"`
	UserID    uint64     `json:"user_id"`
	Vehicle   VehicleRef `json:"vehicle"`
	SiteLabel string     `json:"site_label"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
