package report

import (
	"testing"
	"time"

	"github.com/safecity/dispatch/internal/shared/types"
)

func validRequest() CreateRequest {
	return CreateRequest{
		CrimeType:   "burglary",
		Description: "forced entry through back door",
		Location:    "Elm St 12",
		District:    "west",
		DateTime:    time.Now(),
	}
}

func TestNewReportDefaults(t *testing.T) {
	userID := types.NewID()
	c := New(validRequest(), &userID)

	if c.ID.IsZero() {
		t.Error("expected non-zero ID")
	}
	if c.Status != StatusPending {
		t.Errorf("expected pending, got %s", c.Status)
	}
	if c.Verification != VerificationPending {
		t.Errorf("expected verification pending, got %s", c.Verification)
	}
	if c.Priority != PriorityMedium {
		t.Errorf("expected default medium priority, got %s", c.Priority)
	}
	if c.AssignedOfficerID != nil {
		t.Error("new report must not carry an assignment")
	}
	if c.UserID == nil || *c.UserID != userID {
		t.Error("expected submitter stamped")
	}
}

func TestNewReportKeepsPriority(t *testing.T) {
	req := validRequest()
	req.Priority = PriorityHigh

	c := New(req, nil)
	if c.Priority != PriorityHigh {
		t.Errorf("expected high, got %s", c.Priority)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
		field  string
	}{
		{"missing crime type", func(r *CreateRequest) { r.CrimeType = "" }, "crime_type"},
		{"missing description", func(r *CreateRequest) { r.Description = "" }, "description"},
		{"missing location", func(r *CreateRequest) { r.Location = "" }, "location"},
		{"missing district", func(r *CreateRequest) { r.District = "" }, "district"},
		{"missing date", func(r *CreateRequest) { r.DateTime = time.Time{} }, "date_time"},
		{"bad priority", func(r *CreateRequest) { r.Priority = "urgent" }, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			problems := req.Validate()
			if _, ok := problems[tt.field]; !ok {
				t.Errorf("expected problem on %s, got %v", tt.field, problems)
			}
		})
	}

	if problems := validRequest().Validate(); problems != nil {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:       false,
		StatusInvestigating: false,
		StatusResolved:      true,
		StatusClosed:        true,
		StatusRejected:      true,
	}

	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s: Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestAssignable(t *testing.T) {
	c := New(validRequest(), nil)

	if c.Assignable() {
		t.Error("pending report must not be assignable")
	}

	c.Verification = VerificationApproved
	if !c.Assignable() {
		t.Error("approved open report must be assignable")
	}

	c.Status = StatusClosed
	if c.Assignable() {
		t.Error("closed report must not be assignable")
	}
}

func TestAssignedTo(t *testing.T) {
	c := New(validRequest(), nil)
	officerID := types.NewID()

	if c.AssignedTo(officerID) {
		t.Error("unassigned report must not match any officer")
	}

	c.AssignedOfficerID = &officerID
	if !c.AssignedTo(officerID) {
		t.Error("expected match for linked officer")
	}
	if c.AssignedTo(types.NewID()) {
		t.Error("must not match a different officer")
	}
}
