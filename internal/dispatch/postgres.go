package dispatch

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/types"
)

// PostgresStore implements Store on top of the shared connection pool.
// Reads go through the module repositories; the two-row writes run
// their own transactions here.
type PostgresStore struct {
	pool     *pgxpool.Pool
	reports  *report.Repository
	officers *officer.Repository
}

// NewPostgresStore creates the production dispatch store
func NewPostgresStore(pool *pgxpool.Pool, reports *report.Repository, officers *officer.Repository) *PostgresStore {
	return &PostgresStore{pool: pool, reports: reports, officers: officers}
}

// GetReport retrieves a crime report
func (s *PostgresStore) GetReport(ctx context.Context, id types.ID) (*report.CrimeReport, error) {
	return s.reports.GetByID(ctx, id)
}

// GetOfficer retrieves an officer
func (s *PostgresStore) GetOfficer(ctx context.Context, id types.ID) (*officer.Officer, error) {
	return s.officers.GetByID(ctx, id)
}

// Verify records a verification decision
func (s *PostgresStore) Verify(ctx context.Context, reportID types.ID, decision report.VerificationStatus) (*report.CrimeReport, error) {
	return s.reports.UpdateVerification(ctx, reportID, decision)
}

// Assign claims the officer and links the report inside one
// transaction. Both writes are conditional: the officer claim lands
// only while the officer is still available, and the report link only
// while the report has no officer. Either way the loser of a
// concurrent race sees zero rows and gets Conflict.
func (s *PostgresStore) Assign(ctx context.Context, reportID, officerID types.ID) (*report.CrimeReport, *officer.Officer, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to begin assignment transaction")
	}
	defer tx.Rollback(ctx)

	claim, err := tx.Exec(ctx, `
		UPDATE officers
		SET status = 'on_call', assigned_report_id = $1,
		    last_assignment = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = 'available'`,
		reportID, officerID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to claim officer")
	}
	if claim.RowsAffected() == 0 {
		return nil, nil, errors.Conflict("officer is no longer available")
	}

	linked, err := tx.Exec(ctx, `
		UPDATE crime_reports
		SET assigned_officer_id = $1, status = 'investigating', updated_at = NOW()
		WHERE id = $2 AND verification_status = 'approved'
		  AND assigned_officer_id IS NULL
		  AND status NOT IN ('resolved', 'closed', 'rejected')`,
		officerID, reportID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to link report")
	}
	if linked.RowsAffected() == 0 {
		rep, getErr := s.reports.GetByID(ctx, reportID)
		if getErr != nil {
			return nil, nil, getErr
		}
		if rep.AssignedOfficerID != nil {
			return nil, nil, errors.Conflict("report already has an assigned officer")
		}
		return nil, nil, errors.InvalidState("report is not eligible for assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "failed to commit assignment")
	}

	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	off, err := s.officers.GetByID(ctx, officerID)
	if err != nil {
		return nil, nil, err
	}

	return rep, off, nil
}

// Release clears the officer's link and the report's assignment in one
// transaction and returns the officer to available.
func (s *PostgresStore) Release(ctx context.Context, officerID types.ID) (*report.CrimeReport, *officer.Officer, error) {
	off, err := s.officers.GetByID(ctx, officerID)
	if err != nil {
		return nil, nil, err
	}
	if off.AssignedReportID == nil {
		return nil, nil, errors.InvalidState("officer has no active assignment")
	}
	reportID := *off.AssignedReportID

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to begin release transaction")
	}
	defer tx.Rollback(ctx)

	released, err := tx.Exec(ctx, `
		UPDATE officers
		SET status = 'available', assigned_report_id = NULL, updated_at = NOW()
		WHERE id = $1 AND assigned_report_id = $2`,
		officerID, reportID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to release officer")
	}
	if released.RowsAffected() == 0 {
		return nil, nil, errors.Conflict("officer assignment changed concurrently")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE crime_reports
		SET assigned_officer_id = NULL, updated_at = NOW()
		WHERE id = $1 AND assigned_officer_id = $2`,
		reportID, officerID); err != nil {
		return nil, nil, errors.Wrap(err, "failed to clear report assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "failed to commit release")
	}

	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	off, err = s.officers.GetByID(ctx, officerID)
	if err != nil {
		return nil, nil, err
	}

	return rep, off, nil
}

var _ Store = (*PostgresStore)(nil)
