package officer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/metrics"
	"github.com/safecity/dispatch/internal/shared/types"
)

const officerColumns = `id, name, badge_number, unit, status, last_assignment,
	current_location, phone, assigned_district, assigned_report_id,
	created_at, updated_at`

// Repository provides database operations for officers
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new officer repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new officer
func (r *Repository) Create(ctx context.Context, o *Officer) error {
	query := `
		INSERT INTO officers (
			id, name, badge_number, unit, status, last_assignment,
			current_location, phone, assigned_district, assigned_report_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		o.ID, o.Name, o.BadgeNumber, o.Unit, o.Status, o.LastAssignment,
		o.CurrentLocation, o.Phone, o.AssignedDistrict, o.AssignedReportID,
		o.CreatedAt, o.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("officer with this badge number already exists")
		}
		return errors.Wrap(err, "failed to create officer")
	}

	return nil
}

// GetByID retrieves an officer by ID
func (r *Repository) GetByID(ctx context.Context, id types.ID) (*Officer, error) {
	query := fmt.Sprintf(`SELECT %s FROM officers WHERE id = $1`, officerColumns)

	o := &Officer{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.BadgeNumber, &o.Unit, &o.Status, &o.LastAssignment,
		&o.CurrentLocation, &o.Phone, &o.AssignedDistrict, &o.AssignedReportID,
		&o.CreatedAt, &o.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("officer", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get officer")
	}

	return o, nil
}

// List lists officers ordered by name, with optional filters
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Officer, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.District != "" {
		conditions = append(conditions, fmt.Sprintf("assigned_district = $%d", argNum))
		args = append(args, filter.District)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM officers %s ORDER BY name ASC`, officerColumns, whereClause)

	start := time.Now()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list officers")
	}
	defer rows.Close()
	metrics.RecordDBQuery("officers.list", time.Since(start))

	var officers []Officer
	for rows.Next() {
		var o Officer
		err := rows.Scan(
			&o.ID, &o.Name, &o.BadgeNumber, &o.Unit, &o.Status, &o.LastAssignment,
			&o.CurrentLocation, &o.Phone, &o.AssignedDistrict, &o.AssignedReportID,
			&o.CreatedAt, &o.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan officer")
		}
		officers = append(officers, o)
	}

	return officers, nil
}

// ListAvailable lists officers that can accept a new assignment
func (r *Repository) ListAvailable(ctx context.Context) ([]Officer, error) {
	status := StatusAvailable
	officers, err := r.List(ctx, ListFilter{Status: &status})
	if err != nil {
		return nil, err
	}
	metrics.RecordOfficersAvailable(len(officers))
	return officers, nil
}

// UpdateStatus changes an officer's status. Moving to on_call or busy
// stamps last_assignment.
func (r *Repository) UpdateStatus(ctx context.Context, id types.ID, status Status, location string) (*Officer, error) {
	sets := []string{"status = $2", "updated_at = NOW()"}
	args := []interface{}{id, status}
	argNum := 3

	if status != StatusAvailable {
		sets = append(sets, "last_assignment = NOW()")
	}
	if location != "" {
		sets = append(sets, fmt.Sprintf("current_location = $%d", argNum))
		args = append(args, location)
		argNum++
	}

	query := fmt.Sprintf(`UPDATE officers SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), officerColumns)

	o := &Officer{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.Name, &o.BadgeNumber, &o.Unit, &o.Status, &o.LastAssignment,
		&o.CurrentLocation, &o.Phone, &o.AssignedDistrict, &o.AssignedReportID,
		&o.CreatedAt, &o.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("officer", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update officer status")
	}

	return o, nil
}

// LinkToReport marks the officer on_call and linked to the given report.
// Unconditional; the dispatch coordinator uses the transactional claim
// instead, this path exists for administrative repair.
func (r *Repository) LinkToReport(ctx context.Context, officerID, reportID types.ID) (*Officer, error) {
	query := fmt.Sprintf(`
		UPDATE officers
		SET status = 'on_call', assigned_report_id = $2, last_assignment = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, officerColumns)

	o := &Officer{}
	err := r.pool.QueryRow(ctx, query, officerID, reportID).Scan(
		&o.ID, &o.Name, &o.BadgeNumber, &o.Unit, &o.Status, &o.LastAssignment,
		&o.CurrentLocation, &o.Phone, &o.AssignedDistrict, &o.AssignedReportID,
		&o.CreatedAt, &o.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("officer", officerID.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to link officer to report")
	}

	return o, nil
}

// Delete removes an officer. Linked officers cannot be deleted.
func (r *Repository) Delete(ctx context.Context, id types.ID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM officers WHERE id = $1 AND assigned_report_id IS NULL`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete officer")
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return errors.InvalidState("officer is linked to a report and cannot be deleted")
		}
		return errors.NotFound("officer", id.String())
	}

	return nil
}
