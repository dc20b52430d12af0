package officer

import (
	"testing"

	"github.com/safecity/dispatch/internal/shared/types"
)

func TestNewOfficerDefaults(t *testing.T) {
	o := New(CreateRequest{
		Name:        "M. Ilic",
		BadgeNumber: "B-2042",
		Unit:        "patrol",
	})

	if o.ID.IsZero() {
		t.Error("expected non-zero ID")
	}
	if o.Status != StatusAvailable {
		t.Errorf("expected available, got %s", o.Status)
	}
	if o.AssignedReportID != nil {
		t.Error("new officer must not carry a report link")
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusOnCall, StatusBusy} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("off_duty").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestCreateRequestValidation(t *testing.T) {
	problems := CreateRequest{}.Validate()
	for _, field := range []string{"name", "badge_number", "unit"} {
		if _, ok := problems[field]; !ok {
			t.Errorf("expected problem on %s", field)
		}
	}

	ok := CreateRequest{Name: "A", BadgeNumber: "B-1", Unit: "patrol"}
	if problems := ok.Validate(); problems != nil {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestAvailable(t *testing.T) {
	o := New(CreateRequest{Name: "A", BadgeNumber: "B-1", Unit: "patrol"})
	if !o.Available() {
		t.Error("fresh officer should be available")
	}

	reportID := types.NewID()
	o.Status = StatusOnCall
	o.AssignedReportID = &reportID
	if o.Available() {
		t.Error("linked officer must not be available")
	}
}

func TestLinkedTo(t *testing.T) {
	o := New(CreateRequest{Name: "A", BadgeNumber: "B-1", Unit: "patrol"})
	reportID := types.NewID()

	if o.LinkedTo(reportID) {
		t.Error("unlinked officer must not match")
	}

	o.AssignedReportID = &reportID
	if !o.LinkedTo(reportID) {
		t.Error("expected match for linked report")
	}
	if o.LinkedTo(types.NewID()) {
		t.Error("must not match a different report")
	}
}
