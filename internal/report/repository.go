package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/metrics"
	"github.com/safecity/dispatch/internal/shared/types"
)

const reportColumns = `id, user_id, crime_type, description, location, district,
	date_time, reporter_name, reporter_contact, witness_available,
	evidence_available, priority, status, verification_status, verified_at,
	assigned_officer_id, created_at, updated_at`

// ListCache is the read-through cache over the hot list queries.
// Implementations must treat every failure as a miss.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, v any)
	Invalidate(ctx context.Context, keys ...string)
}

// Cache keys for the admin list views
const (
	CacheKeyPending    = "reports:pending"
	CacheKeyUnassigned = "reports:unassigned"
	CacheKeyStats      = "reports:stats"
)

// Repository provides database operations for crime reports
type Repository struct {
	pool  *pgxpool.Pool
	cache ListCache
}

// NewRepository creates a new report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithCache attaches a read-through cache for the admin list views
func (r *Repository) WithCache(cache ListCache) *Repository {
	r.cache = cache
	return r
}

func (r *Repository) invalidate(ctx context.Context) {
	if r.cache != nil {
		r.cache.Invalidate(ctx, CacheKeyPending, CacheKeyUnassigned, CacheKeyStats)
	}
}

func scanReport(row pgx.Row) (*CrimeReport, error) {
	c := &CrimeReport{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.CrimeType, &c.Description, &c.Location, &c.District,
		&c.DateTime, &c.ReporterName, &c.ReporterContact, &c.WitnessAvailable,
		&c.EvidenceAvailable, &c.Priority, &c.Status, &c.Verification, &c.VerifiedAt,
		&c.AssignedOfficerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new crime report
func (r *Repository) Create(ctx context.Context, c *CrimeReport) error {
	query := `
		INSERT INTO crime_reports (
			id, user_id, crime_type, description, location, district,
			date_time, reporter_name, reporter_contact, witness_available,
			evidence_available, priority, status, verification_status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.CrimeType, c.Description, c.Location, c.District,
		c.DateTime, c.ReporterName, c.ReporterContact, c.WitnessAvailable,
		c.EvidenceAvailable, c.Priority, c.Status, c.Verification,
		c.CreatedAt, c.UpdatedAt,
	)

	if err != nil {
		return errors.Wrap(err, "failed to create crime report")
	}

	metrics.RecordReportSubmitted(c.District, string(c.Priority))
	r.invalidate(ctx)
	return nil
}

// GetByID retrieves a crime report by ID
func (r *Repository) GetByID(ctx context.Context, id types.ID) (*CrimeReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM crime_reports WHERE id = $1`, reportColumns)

	c, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("crime report", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get crime report")
	}

	return c, nil
}

func (r *Repository) list(ctx context.Context, operation, where string, args ...interface{}) ([]CrimeReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM crime_reports %s ORDER BY created_at DESC`,
		reportColumns, where)

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list crime reports")
	}
	defer rows.Close()
	metrics.RecordDBQuery(operation, time.Since(start))

	var reports []CrimeReport
	for rows.Next() {
		c, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan crime report")
		}
		reports = append(reports, *c)
	}

	return reports, nil
}

// ListPending lists reports awaiting verification, newest first, with
// submitter profiles attached. Profiles are fetched with a single IN
// query over the distinct submitter IDs rather than per row.
func (r *Repository) ListPending(ctx context.Context) ([]PendingReport, error) {
	if r.cache != nil {
		var cached []PendingReport
		if r.cache.Get(ctx, CacheKeyPending, &cached) {
			return cached, nil
		}
	}

	reports, err := r.list(ctx, "reports.list_pending", "WHERE verification_status = 'pending'")
	if err != nil {
		return nil, err
	}

	seen := make(map[types.ID]bool)
	var userIDs []types.ID
	for _, c := range reports {
		if c.UserID != nil && !seen[*c.UserID] {
			seen[*c.UserID] = true
			userIDs = append(userIDs, *c.UserID)
		}
	}

	profiles := make(map[types.ID]*SubmitterProfile)
	if len(userIDs) > 0 {
		rows, err := r.pool.Query(ctx,
			`SELECT id, full_name, email, phone FROM user_profile WHERE id = ANY($1)`, userIDs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load submitter profiles")
		}
		defer rows.Close()

		for rows.Next() {
			p := &SubmitterProfile{}
			if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone); err != nil {
				return nil, errors.Wrap(err, "failed to scan submitter profile")
			}
			profiles[p.ID] = p
		}
	}

	pending := make([]PendingReport, 0, len(reports))
	for _, c := range reports {
		pr := PendingReport{CrimeReport: c}
		if c.UserID != nil {
			pr.Submitter = profiles[*c.UserID]
		}
		pending = append(pending, pr)
	}

	if r.cache != nil {
		r.cache.Set(ctx, CacheKeyPending, pending)
	}

	return pending, nil
}

// ListUnassigned lists approved reports with no officer assigned
func (r *Repository) ListUnassigned(ctx context.Context) ([]CrimeReport, error) {
	if r.cache != nil {
		var cached []CrimeReport
		if r.cache.Get(ctx, CacheKeyUnassigned, &cached) {
			return cached, nil
		}
	}

	reports, err := r.list(ctx, "reports.list_unassigned",
		"WHERE verification_status = 'approved' AND assigned_officer_id IS NULL")
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(ctx, CacheKeyUnassigned, reports)
	}

	return reports, nil
}

// ListByUser lists reports submitted by the given user
func (r *Repository) ListByUser(ctx context.Context, userID types.ID) ([]CrimeReport, error) {
	return r.list(ctx, "reports.list_by_user", "WHERE user_id = $1", userID)
}

// ListByDistrict lists reports for a district
func (r *Repository) ListByDistrict(ctx context.Context, district string) ([]CrimeReport, error) {
	return r.list(ctx, "reports.list_by_district", "WHERE district = $1", district)
}

// UpdateVerification records an admin verification decision. The update
// only lands while the report is still pending verification; a report
// already decided yields InvalidState.
func (r *Repository) UpdateVerification(ctx context.Context, id types.ID, decision VerificationStatus) (*CrimeReport, error) {
	status := StatusInvestigating
	if decision == VerificationRejected {
		status = StatusRejected
	}

	query := fmt.Sprintf(`
		UPDATE crime_reports
		SET verification_status = $2, status = $3, verified_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND verification_status = 'pending'
		RETURNING %s`, reportColumns)

	c, err := scanReport(r.pool.QueryRow(ctx, query, id, decision, status))
	if err == pgx.ErrNoRows {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.InvalidState("report has already been verified")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update verification status")
	}

	metrics.RecordVerification(string(decision))
	r.invalidate(ctx)
	return c, nil
}

// AssignOfficer links an officer to the report and moves it to
// investigating. Only approved, non-terminal reports with no officer
// accept the link; a report that picked one up concurrently yields
// Conflict.
func (r *Repository) AssignOfficer(ctx context.Context, id, officerID types.ID) (*CrimeReport, error) {
	query := fmt.Sprintf(`
		UPDATE crime_reports
		SET assigned_officer_id = $2, status = 'investigating', updated_at = NOW()
		WHERE id = $1 AND verification_status = 'approved'
		  AND assigned_officer_id IS NULL
		  AND status NOT IN ('resolved', 'closed', 'rejected')
		RETURNING %s`, reportColumns)

	c, err := scanReport(r.pool.QueryRow(ctx, query, id, officerID))
	if err == pgx.ErrNoRows {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.AssignedOfficerID != nil {
			return nil, errors.Conflict("report already has an assigned officer")
		}
		return nil, errors.InvalidState("report is not eligible for assignment")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to assign officer")
	}

	r.invalidate(ctx)
	return c, nil
}

// ClearOfficer removes the officer link from a report
func (r *Repository) ClearOfficer(ctx context.Context, id types.ID) (*CrimeReport, error) {
	query := fmt.Sprintf(`
		UPDATE crime_reports
		SET assigned_officer_id = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, reportColumns)

	c, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("crime report", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to clear officer")
	}

	r.invalidate(ctx)
	return c, nil
}

// UpdateStatus progresses a report's lifecycle. Resolved and closed are
// terminal; the update refuses to move a report out of them.
func (r *Repository) UpdateStatus(ctx context.Context, id types.ID, status Status) (*CrimeReport, error) {
	query := fmt.Sprintf(`
		UPDATE crime_reports
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('resolved', 'closed', 'rejected')
		RETURNING %s`, reportColumns)

	c, err := scanReport(r.pool.QueryRow(ctx, query, id, status))
	if err == pgx.ErrNoRows {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.InvalidState("report is in a terminal status")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update report status")
	}

	r.invalidate(ctx)
	return c, nil
}

// GetStats returns count aggregates over all reports
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	if r.cache != nil {
		cached := &Stats{}
		if r.cache.Get(ctx, CacheKeyStats, cached) {
			return cached, nil
		}
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'investigating'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE verification_status = 'pending'),
			COUNT(*) FILTER (WHERE verification_status = 'approved' AND assigned_officer_id IS NULL)
		FROM crime_reports`

	s := &Stats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.Total, &s.Pending, &s.Investigating, &s.Resolved,
		&s.Closed, &s.Rejected, &s.Unverified, &s.Unassigned,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute report stats")
	}

	if r.cache != nil {
		r.cache.Set(ctx, CacheKeyStats, s)
	}

	return s, nil
}
