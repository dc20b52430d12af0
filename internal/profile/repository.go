package profile

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/safecity/dispatch/internal/shared/errors"
	"github.com/safecity/dispatch/internal/shared/metrics"
	"github.com/safecity/dispatch/internal/shared/types"
)

// Repository provides database operations for user profiles
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new profile repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get retrieves a profile by user ID
func (r *Repository) Get(ctx context.Context, id types.ID) (*Profile, error) {
	p := &Profile{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, phone, is_admin, created_at, updated_at
		FROM user_profile WHERE id = $1`, id).Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("profile", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get profile")
	}

	return p, nil
}

// GetByIDs retrieves profiles for a set of user IDs in one query
func (r *Repository) GetByIDs(ctx context.Context, ids []types.ID) (map[types.ID]*Profile, error) {
	profiles := make(map[types.ID]*Profile)
	if len(ids) == 0 {
		return profiles, nil
	}

	start := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT id, full_name, email, phone, is_admin, created_at, updated_at
		FROM user_profile WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load profiles")
	}
	defer rows.Close()
	metrics.RecordDBQuery("profiles.get_by_ids", time.Since(start))

	for rows.Next() {
		p := &Profile{}
		err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsAdmin,
			&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan profile")
		}
		profiles[p.ID] = p
	}

	return profiles, nil
}

// Upsert creates or updates a profile for the given user ID. The admin
// flag is preserved on update and starts false on insert.
func (r *Repository) Upsert(ctx context.Context, id types.ID, req UpsertRequest) (*Profile, error) {
	p := &Profile{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_profile (id, full_name, email, phone, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, email = EXCLUDED.email,
		    phone = EXCLUDED.phone, updated_at = NOW()
		RETURNING id, full_name, email, phone, is_admin, created_at, updated_at`,
		id, req.FullName, req.Email, req.Phone).Scan(
		&p.ID, &p.FullName, &p.Email, &p.Phone, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt,
	)

	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert profile")
	}

	return p, nil
}

// SetAdmin toggles the admin flag for a user
func (r *Repository) SetAdmin(ctx context.Context, id types.ID, isAdmin bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE user_profile SET is_admin = $2, updated_at = NOW() WHERE id = $1`,
		id, isAdmin)
	if err != nil {
		return errors.Wrap(err, "failed to set admin flag")
	}

	if result.RowsAffected() == 0 {
		return errors.NotFound("profile", id.String())
	}

	return nil
}
