package dispatch

import (
	"context"
	"testing"

	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/types"
)

func pendingReport(s *memStore) *report.CrimeReport {
	r := approvedReport(s)
	s.reports[r.ID].Verification = report.VerificationPending
	return s.reports[r.ID]
}

func TestVerifyRequiresAdmin(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	rep := pendingReport(store)

	_, err := v.Verify(context.Background(), citizen(), rep.ID, report.VerificationApproved)
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestVerifyApprove(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	rep := pendingReport(store)

	out, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationApproved)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out.Verification != report.VerificationApproved {
		t.Errorf("expected approved, got %s", out.Verification)
	}
	if out.Status != report.StatusInvestigating {
		t.Errorf("expected investigating, got %s", out.Status)
	}
	if out.VerifiedAt == nil {
		t.Error("expected verified_at stamped")
	}
}

func TestVerifyReject(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	rep := pendingReport(store)

	out, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationRejected)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if out.Verification != report.VerificationRejected {
		t.Errorf("expected rejected, got %s", out.Verification)
	}
	if out.Status != report.StatusRejected {
		t.Errorf("expected rejected status, got %s", out.Status)
	}
}

func TestVerifyTwiceFails(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	rep := pendingReport(store)

	if _, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationApproved); err != nil {
		t.Fatalf("first verify failed: %v", err)
	}

	_, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationRejected)
	if !errors.Is(err, errors.ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}

	if store.reports[rep.ID].Verification != report.VerificationApproved {
		t.Error("decision must not change on re-verification")
	}
}

func TestVerifyInvalidDecision(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	rep := pendingReport(store)

	_, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationPending)
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestVerifyNotFound(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)

	_, err := v.Verify(context.Background(), admin(), types.NewID(), report.VerificationApproved)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestVerifiedReportFlowsToAssignment(t *testing.T) {
	store := newMemStore()
	v := NewVerifier(store, nil)
	c := NewCoordinator(store, nil)

	rep := pendingReport(store)
	off := availableOfficer(store)

	// Unverified report cannot be assigned
	if _, err := c.Assign(context.Background(), admin(), rep.ID, off.ID); !errors.Is(err, errors.ErrInvalidState) {
		t.Fatalf("expected InvalidState before verification, got %v", err)
	}

	if _, err := v.Verify(context.Background(), admin(), rep.ID, report.VerificationApproved); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	a, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
	if err != nil {
		t.Fatalf("assign after approval failed: %v", err)
	}
	if a.Report.Status != report.StatusInvestigating {
		t.Errorf("expected investigating, got %s", a.Report.Status)
	}
}
