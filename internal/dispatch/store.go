package dispatch

import (
	"context"

	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Store is the persistence surface the dispatch workflows run against.
// Assign and Release must be atomic across the report and officer rows.
type Store interface {
	GetReport(ctx context.Context, id types.ID) (*report.CrimeReport, error)
	GetOfficer(ctx context.Context, id types.ID) (*officer.Officer, error)

	// Assign links an officer to a report in one transaction. Both
	// rows are written conditionally: if the officer was taken or the
	// report picked up an officer since the caller's read, Assign
	// returns Conflict and writes nothing.
	Assign(ctx context.Context, reportID, officerID types.ID) (*report.CrimeReport, *officer.Officer, error)

	// Release returns an officer to available and clears the report
	// link in one transaction.
	Release(ctx context.Context, officerID types.ID) (*report.CrimeReport, *officer.Officer, error)

	// Verify records a verification decision while the report is
	// still pending review.
	Verify(ctx context.Context, reportID types.ID, decision report.VerificationStatus) (*report.CrimeReport, error)
}
