package dispatch

import (
	"context"

	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/metrics"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Assignment is the combined result of linking an officer to a report
type Assignment struct {
	Report  *report.CrimeReport `json:"report"`
	Officer *officer.Officer    `json:"officer"`
}

// Coordinator runs the officer assignment workflow. All operations are
// admin-only; authorization is rechecked here rather than trusted from
// the route layer.
type Coordinator struct {
	store Store
	bus   events.EventBus
}

// NewCoordinator creates an assignment coordinator
func NewCoordinator(store Store, bus events.EventBus) *Coordinator {
	return &Coordinator{store: store, bus: bus}
}

// Assign links an available officer to an approved report.
//
// Repeating a link that already holds returns the current state without
// error. An officer linked to a different report, or claimed
// concurrently, yields Conflict. Reports that are unapproved, rejected,
// resolved or closed yield InvalidState.
func (c *Coordinator) Assign(ctx context.Context, user *auth.User, reportID, officerID types.ID) (*Assignment, error) {
	if user == nil || !user.IsAdmin() {
		return nil, errors.Unauthorized("only administrators can assign officers")
	}

	rep, err := c.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	off, err := c.store.GetOfficer(ctx, officerID)
	if err != nil {
		return nil, err
	}

	if off.LinkedTo(reportID) && rep.AssignedTo(officerID) {
		return &Assignment{Report: rep, Officer: off}, nil
	}

	if !rep.Assignable() {
		metrics.RecordAssignment("invalid_state")
		return nil, errors.InvalidState("report must be approved and open to take an assignment")
	}

	if rep.AssignedOfficerID != nil {
		metrics.RecordAssignment("conflict")
		return nil, errors.Conflict("report is already assigned to another officer")
	}

	if off.AssignedReportID != nil {
		metrics.RecordAssignment("conflict")
		return nil, errors.Conflict("officer is already assigned to another report")
	}

	rep, off, err = c.store.Assign(ctx, reportID, officerID)
	if err != nil {
		if errors.Is(err, errors.ErrConflict) {
			metrics.RecordAssignment("conflict")
		} else {
			metrics.RecordAssignment("error")
		}
		return nil, err
	}

	metrics.RecordAssignment("success")
	c.publish(ctx, user, "dispatch.officer_assigned", map[string]any{
		"report_id":  rep.ID,
		"officer_id": off.ID,
		"district":   rep.District,
	})

	return &Assignment{Report: rep, Officer: off}, nil
}

// Release returns an officer to available and clears the report link
func (c *Coordinator) Release(ctx context.Context, user *auth.User, officerID types.ID) (*Assignment, error) {
	if user == nil || !user.IsAdmin() {
		return nil, errors.Unauthorized("only administrators can release officers")
	}

	rep, off, err := c.store.Release(ctx, officerID)
	if err != nil {
		return nil, err
	}

	c.publish(ctx, user, "dispatch.officer_released", map[string]any{
		"report_id":  rep.ID,
		"officer_id": off.ID,
	})

	return &Assignment{Report: rep, Officer: off}, nil
}

func (c *Coordinator) publish(ctx context.Context, user *auth.User, eventType string, data map[string]any) {
	if c.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "dispatch", data)
	if user != nil {
		event = event.WithActor(user.ID, user.UserType)
	}

	c.bus.Publish(ctx, event)
}
