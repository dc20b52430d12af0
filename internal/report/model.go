package report

import (
	"time"

	"github.com/safecity/dispatch/internal/shared/types"
)

// Status defines the lifecycle state of a crime report
type Status string

const (
	StatusPending       Status = "pending"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
	StatusRejected      Status = "rejected"
)

// Valid reports whether s is a known report status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInvestigating, StatusResolved, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further status transitions are allowed
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusRejected
}

// VerificationStatus defines the admin review state of a report
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Priority defines report urgency
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// CrimeReport represents a citizen-submitted crime report
type CrimeReport struct {
	ID                types.ID           `json:"id"`
	UserID            *types.ID          `json:"user_id,omitempty"`
	CrimeType         string             `json:"crime_type"`
	Description       string             `json:"description"`
	Location          string             `json:"location"`
	District          string             `json:"district"`
	DateTime          time.Time          `json:"date_time"`
	ReporterName      *string            `json:"reporter_name,omitempty"`
	ReporterContact   *string            `json:"reporter_contact,omitempty"`
	WitnessAvailable  bool               `json:"witness_available"`
	EvidenceAvailable bool               `json:"evidence_available"`
	Priority          Priority           `json:"priority"`
	Status            Status             `json:"status"`
	Verification      VerificationStatus `json:"verification_status"`
	VerifiedAt        *time.Time         `json:"verified_at,omitempty"`
	AssignedOfficerID *types.ID          `json:"assigned_officer_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignable reports whether the report can take an officer assignment
func (c *CrimeReport) Assignable() bool {
	return c.Verification == VerificationApproved && !c.Status.Terminal()
}

// AssignedTo reports whether the report is currently assigned to the
// given officer
func (c *CrimeReport) AssignedTo(officerID types.ID) bool {
	return c.AssignedOfficerID != nil && *c.AssignedOfficerID == officerID
}

// SubmitterProfile is the slice of profile data attached to pending
// reports for the verification queue
type SubmitterProfile struct {
	ID       types.ID `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
}

// PendingReport is a report awaiting verification, enriched with its
// submitter's profile when one exists
type PendingReport struct {
	CrimeReport
	Submitter *SubmitterProfile `json:"submitter,omitempty"`
}

// CreateRequest is the request to submit a crime report. Status and
// verification fields are never accepted from the caller; every new
// report starts pending/pending.
type CreateRequest struct {
	CrimeType         string    `json:"crime_type"`
	Description       string    `json:"description"`
	Location          string    `json:"location"`
	District          string    `json:"district"`
	DateTime          time.Time `json:"date_time"`
	ReporterName      *string   `json:"reporter_name,omitempty"`
	ReporterContact   *string   `json:"reporter_contact,omitempty"`
	WitnessAvailable  bool      `json:"witness_available"`
	EvidenceAvailable bool      `json:"evidence_available"`
	Priority          Priority  `json:"priority"`
}

// Validate returns per-field problems for a create request
func (r CreateRequest) Validate() map[string]string {
	problems := make(map[string]string)
	if r.CrimeType == "" {
		problems["crime_type"] = "crime_type is required"
	}
	if r.Description == "" {
		problems["description"] = "description is required"
	}
	if r.Location == "" {
		problems["location"] = "location is required"
	}
	if r.District == "" {
		problems["district"] = "district is required"
	}
	if r.DateTime.IsZero() {
		problems["date_time"] = "date_time is required"
	}
	if r.Priority != "" && !r.Priority.Valid() {
		problems["priority"] = "must be one of high, medium, low"
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

// New builds a CrimeReport from a create request on behalf of userID.
// Caller-supplied lifecycle fields are ignored.
func New(req CreateRequest, userID *types.ID) *CrimeReport {
	now := time.Now().UTC()

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	return &CrimeReport{
		ID:                types.NewID(),
		UserID:            userID,
		CrimeType:         req.CrimeType,
		Description:       req.Description,
		Location:          req.Location,
		District:          req.District,
		DateTime:          req.DateTime,
		ReporterName:      req.ReporterName,
		ReporterContact:   req.ReporterContact,
		WitnessAvailable:  req.WitnessAvailable,
		EvidenceAvailable: req.EvidenceAvailable,
		Priority:          priority,
		Status:            StatusPending,
		Verification:      VerificationPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpdateStatusRequest is the admin request to progress a report's lifecycle
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// Stats is the count-only aggregate over reports
type Stats struct {
	Total         int64 `json:"total"`
	Pending       int64 `json:"pending"`
	Investigating int64 `json:"investigating"`
	Resolved      int64 `json:"resolved"`
	Closed        int64 `json:"closed"`
	Rejected      int64 `json:"rejected"`
	Unverified    int64 `json:"unverified"`
	Unassigned    int64 `json:"unassigned"`
}
