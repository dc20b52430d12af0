package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/types"
)

// --- In-memory Store ---

type memStore struct {
	mu       sync.Mutex
	reports  map[types.ID]*report.CrimeReport
	officers map[types.ID]*officer.Officer
}

func newMemStore() *memStore {
	return &memStore{
		reports:  make(map[types.ID]*report.CrimeReport),
		officers: make(map[types.ID]*officer.Officer),
	}
}

func (s *memStore) GetReport(ctx context.Context, id types.ID) (*report.CrimeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, errors.NotFound("crime report", id.String())
	}
	out := *r
	return &out, nil
}

func (s *memStore) GetOfficer(ctx context.Context, id types.ID) (*officer.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.officers[id]
	if !ok {
		return nil, errors.NotFound("officer", id.String())
	}
	out := *o
	return &out, nil
}

func (s *memStore) Assign(ctx context.Context, reportID, officerID types.ID) (*report.CrimeReport, *officer.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, nil, errors.NotFound("crime report", reportID.String())
	}
	o, ok := s.officers[officerID]
	if !ok {
		return nil, nil, errors.NotFound("officer", officerID.String())
	}

	// Conditional writes on both rows, same contract as the SQL store
	if o.Status != officer.StatusAvailable {
		return nil, nil, errors.Conflict("officer is no longer available")
	}
	if r.AssignedOfficerID != nil {
		return nil, nil, errors.Conflict("report already has an assigned officer")
	}
	if r.Verification != report.VerificationApproved || r.Status.Terminal() {
		return nil, nil, errors.InvalidState("report is not eligible for assignment")
	}

	now := time.Now()
	o.Status = officer.StatusOnCall
	o.AssignedReportID = &reportID
	o.LastAssignment = &now
	r.AssignedOfficerID = &officerID
	r.Status = report.StatusInvestigating

	rc, oc := *r, *o
	return &rc, &oc, nil
}

func (s *memStore) Release(ctx context.Context, officerID types.ID) (*report.CrimeReport, *officer.Officer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.officers[officerID]
	if !ok {
		return nil, nil, errors.NotFound("officer", officerID.String())
	}
	if o.AssignedReportID == nil {
		return nil, nil, errors.InvalidState("officer has no active assignment")
	}

	r := s.reports[*o.AssignedReportID]
	o.Status = officer.StatusAvailable
	o.AssignedReportID = nil
	r.AssignedOfficerID = nil

	rc, oc := *r, *o
	return &rc, &oc, nil
}

func (s *memStore) Verify(ctx context.Context, reportID types.ID, decision report.VerificationStatus) (*report.CrimeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, errors.NotFound("crime report", reportID.String())
	}
	if r.Verification != report.VerificationPending {
		return nil, errors.InvalidState("report has already been verified")
	}

	now := time.Now()
	r.Verification = decision
	r.VerifiedAt = &now
	if decision == report.VerificationApproved {
		r.Status = report.StatusInvestigating
	} else {
		r.Status = report.StatusRejected
	}

	out := *r
	return &out, nil
}

// --- Fixtures ---

func admin() *auth.User {
	return &auth.User{ID: types.NewID(), UserType: "admin", FullName: "Test Admin"}
}

func citizen() *auth.User {
	return &auth.User{ID: types.NewID(), UserType: "citizen", FullName: "Test Citizen"}
}

func approvedReport(s *memStore) *report.CrimeReport {
	r := &report.CrimeReport{
		ID:           types.NewID(),
		CrimeType:    "theft",
		Description:  "bicycle stolen",
		Location:     "Main St 5",
		District:     "north",
		DateTime:     time.Now(),
		Priority:     report.PriorityMedium,
		Status:       report.StatusPending,
		Verification: report.VerificationApproved,
	}
	s.reports[r.ID] = r
	return r
}

func availableOfficer(s *memStore) *officer.Officer {
	o := &officer.Officer{
		ID:          types.NewID(),
		Name:        "J. Petrov",
		BadgeNumber: "B-1001",
		Unit:        "patrol",
		Status:      officer.StatusAvailable,
	}
	s.officers[o.ID] = o
	return o
}

// --- Tests ---

func TestAssignRequiresAdmin(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)

	_, err := c.Assign(context.Background(), citizen(), rep.ID, off.ID)
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	_, err = c.Assign(context.Background(), nil, rep.ID, off.ID)
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for nil user, got %v", err)
	}
}

func TestAssignLinksBothSides(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)

	a, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if a.Officer.Status != officer.StatusOnCall {
		t.Errorf("expected officer on_call, got %s", a.Officer.Status)
	}
	if a.Officer.AssignedReportID == nil || *a.Officer.AssignedReportID != rep.ID {
		t.Error("expected officer linked to report")
	}
	if a.Officer.LastAssignment == nil {
		t.Error("expected last_assignment stamped")
	}
	if a.Report.AssignedOfficerID == nil || *a.Report.AssignedOfficerID != off.ID {
		t.Error("expected report linked to officer")
	}
	if a.Report.Status != report.StatusInvestigating {
		t.Errorf("expected report investigating, got %s", a.Report.Status)
	}
}

func TestAssignIsIdempotentForSamePair(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)

	if _, err := c.Assign(context.Background(), admin(), rep.ID, off.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	a, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
	if err != nil {
		t.Fatalf("repeat assign should be a no-op, got %v", err)
	}
	if a.Officer.AssignedReportID == nil || *a.Officer.AssignedReportID != rep.ID {
		t.Error("expected link unchanged after repeat")
	}
}

func TestAssignRejectsUnapprovedReport(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	store.reports[rep.ID].Verification = report.VerificationPending
	off := availableOfficer(store)

	_, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
	if !errors.Is(err, errors.ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if store.officers[off.ID].Status != officer.StatusAvailable {
		t.Error("officer must stay available when assignment fails")
	}
}

func TestAssignRejectsClosedReport(t *testing.T) {
	for _, status := range []report.Status{report.StatusResolved, report.StatusClosed, report.StatusRejected} {
		store := newMemStore()
		c := NewCoordinator(store, nil)

		rep := approvedReport(store)
		store.reports[rep.ID].Status = status
		off := availableOfficer(store)

		_, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
		if !errors.Is(err, errors.ErrInvalidState) {
			t.Fatalf("status %s: expected InvalidState, got %v", status, err)
		}
	}
}

func TestAssignConflictsWhenOfficerBusy(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)
	store.officers[off.ID].Status = officer.StatusBusy

	_, err := c.Assign(context.Background(), admin(), rep.ID, off.ID)
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestAssignConflictsWhenOfficerOnAnotherReport(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	first := approvedReport(store)
	second := approvedReport(store)
	off := availableOfficer(store)

	if _, err := c.Assign(context.Background(), admin(), first.ID, off.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err := c.Assign(context.Background(), admin(), second.ID, off.ID)
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if store.reports[second.ID].AssignedOfficerID != nil {
		t.Error("second report must stay unassigned")
	}
}

func TestAssignConflictsWhenReportAlreadyAssigned(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	first := availableOfficer(store)
	second := availableOfficer(store)

	if _, err := c.Assign(context.Background(), admin(), rep.ID, first.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err := c.Assign(context.Background(), admin(), rep.ID, second.ID)
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestAssignNotFound(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)

	if _, err := c.Assign(context.Background(), admin(), types.NewID(), off.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected NotFound for missing report, got %v", err)
	}
	if _, err := c.Assign(context.Background(), admin(), rep.ID, types.NewID()); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected NotFound for missing officer, got %v", err)
	}
}

func TestConcurrentAssignOnlyOneWins(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	off := availableOfficer(store)

	const n = 8
	reports := make([]types.ID, n)
	for i := range reports {
		reports[i] = approvedReport(store).ID
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(reportID types.ID) {
			defer wg.Done()
			_, err := c.Assign(context.Background(), admin(), reportID, off.ID)
			results <- err
		}(reports[i])
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}

	if store.officers[off.ID].AssignedReportID == nil {
		t.Fatal("officer must be linked after the race")
	}
	linked := *store.officers[off.ID].AssignedReportID
	if store.reports[linked].AssignedOfficerID == nil || *store.reports[linked].AssignedOfficerID != off.ID {
		t.Error("winning report must link back to the officer")
	}
}

func TestConcurrentAssignSameReportOnlyOneWins(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)

	const n = 8
	officers := make([]types.ID, n)
	for i := range officers {
		officers[i] = availableOfficer(store).ID
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(officerID types.ID) {
			defer wg.Done()
			_, err := c.Assign(context.Background(), admin(), rep.ID, officerID)
			results <- err
		}(officers[i])
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}

	if store.reports[rep.ID].AssignedOfficerID == nil {
		t.Fatal("report must be linked after the race")
	}
	winner := *store.reports[rep.ID].AssignedOfficerID
	var linked int
	for _, id := range officers {
		o := store.officers[id]
		if o.AssignedReportID != nil {
			linked++
			if id != winner {
				t.Errorf("losing officer %s still linked to the report", id)
			}
			if o.Status != officer.StatusOnCall {
				t.Errorf("expected winning officer on_call, got %s", o.Status)
			}
		} else if o.Status != officer.StatusAvailable {
			t.Errorf("losing officer %s must stay available, got %s", id, o.Status)
		}
	}
	if linked != 1 {
		t.Errorf("expected exactly one linked officer, got %d", linked)
	}
}

func TestReleaseReturnsOfficerToAvailable(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	rep := approvedReport(store)
	off := availableOfficer(store)

	if _, err := c.Assign(context.Background(), admin(), rep.ID, off.ID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	a, err := c.Release(context.Background(), admin(), off.ID)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}

	if a.Officer.Status != officer.StatusAvailable {
		t.Errorf("expected available, got %s", a.Officer.Status)
	}
	if a.Officer.AssignedReportID != nil {
		t.Error("expected officer link cleared")
	}
	if a.Report.AssignedOfficerID != nil {
		t.Error("expected report link cleared")
	}
}

func TestReleaseWithoutAssignment(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	off := availableOfficer(store)

	_, err := c.Release(context.Background(), admin(), off.ID)
	if !errors.Is(err, errors.ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestReleaseRequiresAdmin(t *testing.T) {
	store := newMemStore()
	c := NewCoordinator(store, nil)

	off := availableOfficer(store)

	_, err := c.Release(context.Background(), citizen(), off.ID)
	if !errors.Is(err, errors.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}
