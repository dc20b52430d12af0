package officer

import (
	"time"

	"github.com/safecity/dispatch/internal/shared/types"
)

// Status defines the availability state of an officer
type Status string

const (
	StatusAvailable Status = "available"
	StatusOnCall    Status = "on_call"
	StatusBusy      Status = "busy"
)

// Valid reports whether s is a known officer status
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOnCall, StatusBusy:
		return true
	}
	return false
}

// Officer represents a field officer available for report assignment
type Officer struct {
	ID               types.ID   `json:"id"`
	Name             string     `json:"name"`
	BadgeNumber      string     `json:"badge_number"`
	Unit             string     `json:"unit"`
	Status           Status     `json:"status"`
	LastAssignment   *time.Time `json:"last_assignment,omitempty"`
	CurrentLocation  string     `json:"current_location"`
	Phone            string     `json:"phone,omitempty"`
	AssignedDistrict string     `json:"assigned_district,omitempty"`
	AssignedReportID *types.ID  `json:"assigned_report_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Available reports whether the officer can accept a new assignment.
// An available officer never carries a report link.
func (o *Officer) Available() bool {
	return o.Status == StatusAvailable && o.AssignedReportID == nil
}

// LinkedTo reports whether the officer is currently linked to the given report
func (o *Officer) LinkedTo(reportID types.ID) bool {
	return o.AssignedReportID != nil && *o.AssignedReportID == reportID
}

// CreateRequest is the request to register an officer
type CreateRequest struct {
	Name             string `json:"name"`
	BadgeNumber      string `json:"badge_number"`
	Unit             string `json:"unit"`
	CurrentLocation  string `json:"current_location"`
	Phone            string `json:"phone,omitempty"`
	AssignedDistrict string `json:"assigned_district,omitempty"`
}

// Validate returns per-field problems for a create request
func (r CreateRequest) Validate() map[string]string {
	problems := make(map[string]string)
	if r.Name == "" {
		problems["name"] = "name is required"
	}
	if r.BadgeNumber == "" {
		problems["badge_number"] = "badge_number is required"
	}
	if r.Unit == "" {
		problems["unit"] = "unit is required"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// New builds an Officer from a validated create request. New officers
// always start available.
func New(req CreateRequest) *Officer {
	now := time.Now()
	return &Officer{
		ID:               types.NewID(),
		Name:             req.Name,
		BadgeNumber:      req.BadgeNumber,
		Unit:             req.Unit,
		Status:           StatusAvailable,
		CurrentLocation:  req.CurrentLocation,
		Phone:            req.Phone,
		AssignedDistrict: req.AssignedDistrict,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// UpdateStatusRequest is the request to change an officer's status
type UpdateStatusRequest struct {
	Status   Status `json:"status"`
	Location string `json:"location,omitempty"`
}

// ListFilter defines filters for listing officers
type ListFilter struct {
	Status   *Status
	District string
}
