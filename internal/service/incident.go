package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// IncidentInput is a problem report on one vehicle.
type IncidentInput struct {
	TruckID     *uint64
	EquipmentID *uint64
	Title       string
	Description string
	Severity    string
}

// ReportIncident files an incident on behalf of the actor. Reports by
// drivers notify the office.
func (f *Fleet) ReportIncident(ctx context.Context, actor Actor, in IncidentInput) (*model.Incident, error) {
	v, err := model.NewVehicleRef(in.TruckID, in.EquipmentID)
	if err != nil {
		return nil, validationf("%s", err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationf("title is required")
	}
	severity := strings.ToLower(strings.TrimSpace(in.Severity))
	if !model.ValidSeverity(severity) {
		return nil, validationf("severity must be one of low, medium, high")
	}
	ok, err := f.vehicles.Exists(ctx, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vehicleNotFound(v)
	}

	now := f.now().UTC()
	incident := &model.Incident{
		ReportedBy:  actor.ID,
		Vehicle:     v,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Severity:    severity,
		Status:      model.IncidentOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.incidents.Create(ctx, incident); err != nil {
		if errors.Is(err, repository.ErrInUse) {
			return nil, vehicleNotFound(v)
		}
		return nil, err
	}
	if !actor.Privileged() {
		f.notify(ctx, Intent{
			Type:    model.NotifyIncident,
			Title:   "Incident reported: " + title,
			Message: fmt.Sprintf("User %d reported a %s severity incident on %s", actor.ID, severity, v),
			ActorID: actor.ID,
			Related: &Related{Type: "incident", ID: incident.ID},
		})
	}
	return incident, nil
}

// UpdateIncidentStatus moves an incident to status. Any status may follow
// any other.
func (f *Fleet) UpdateIncidentStatus(ctx context.Context, actor Actor, id uint64, status string) (*model.Incident, error) {
	if err := requirePrivileged(actor); err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !model.ValidIncidentStatus(status) {
		return nil, validationf("status must be one of open, in_progress, resolved")
	}
	if err := f.incidents.UpdateStatus(ctx, id, status, f.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundf("incident %d not found", id)
		}
		return nil, err
	}
	in, err := f.incidents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// ListIncidents returns every incident to office staff and only their own
// to everyone else.
func (f *Fleet) ListIncidents(ctx context.Context, actor Actor) ([]model.Incident, error) {
	if actor.Privileged() {
		return f.incidents.List(ctx, nil)
	}
	id := actor.ID
	return f.incidents.List(ctx, &id)
}
