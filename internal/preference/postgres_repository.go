package preference

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL profile repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the profile table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS preference_profiles (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			name               TEXT NOT NULL,
			is_default         BOOLEAN NOT NULL DEFAULT FALSE,
			time_weight        DOUBLE PRECISION NOT NULL,
			cost_weight        DOUBLE PRECISION NOT NULL,
			comfort_weight     DOUBLE PRECISION NOT NULL,
			reliability_weight DOUBLE PRECISION NOT NULL,
			max_walking_km     DOUBLE PRECISION NOT NULL,
			preferred_modes    TEXT[] NOT NULL DEFAULT '{}',
			avoided_features   TEXT[],
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, name)
		);
		CREATE INDEX IF NOT EXISTS idx_preference_profiles_user ON preference_profiles (user_id, name);
	`)
	return err
}

const profileColumns = `
	id, user_id, name, is_default,
	time_weight, cost_weight, comfort_weight, reliability_weight,
	max_walking_km, preferred_modes, avoided_features,
	created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p     Profile
		modes []string
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.IsDefault,
		&p.Weights.Time,
		&p.Weights.Cost,
		&p.Weights.Comfort,
		&p.Weights.Reliability,
		&p.MaxWalkingKm,
		&modes,
		&p.AvoidedFeatures,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, m := range modes {
		p.PreferredModes = append(p.PreferredModes, commute.TransportMode(m))
	}
	return &p, nil
}

func modeStrings(modes []commute.TransportMode) []string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return out
}

// Get retrieves a profile by user and name.
func (r *PostgresRepository) Get(ctx context.Context, userID, name string) (*Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM preference_profiles
		WHERE user_id = $1 AND name = $2`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, userID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves the profiles of a user ordered by name.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + profileColumns + `
		FROM preference_profiles
		WHERE user_id = $1 AND name > $2
		ORDER BY name
		LIMIT $3`

	// One extra row tells us whether another page exists.
	rows, err := r.pool.Query(ctx, query, userID, opts.Cursor, limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].Name
	}
	return result, nil
}

// Create stores a new profile.
func (r *PostgresRepository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO preference_profiles (` + profileColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Name,
		p.IsDefault,
		p.Weights.Time,
		p.Weights.Cost,
		p.Weights.Comfort,
		p.Weights.Reliability,
		p.MaxWalkingKm,
		modeStrings(p.PreferredModes),
		p.AvoidedFeatures,
		p.CreatedAt,
		p.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrProfileExists
	}
	return err
}

// Update replaces an existing profile.
func (r *PostgresRepository) Update(ctx context.Context, p *Profile) error {
	query := `
		UPDATE preference_profiles SET
			time_weight = $3,
			cost_weight = $4,
			comfort_weight = $5,
			reliability_weight = $6,
			max_walking_km = $7,
			preferred_modes = $8,
			avoided_features = $9,
			updated_at = $10
		WHERE user_id = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query,
		p.UserID,
		p.Name,
		p.Weights.Time,
		p.Weights.Cost,
		p.Weights.Comfort,
		p.Weights.Reliability,
		p.MaxWalkingKm,
		modeStrings(p.PreferredModes),
		p.AvoidedFeatures,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// Delete removes a profile.
func (r *PostgresRepository) Delete(ctx context.Context, userID, name string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM preference_profiles WHERE user_id = $1 AND name = $2`, userID, name)
	return err
}

// SetDefault marks one profile as the user's default inside a transaction.
func (r *PostgresRepository) SetDefault(ctx context.Context, userID, name string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx,
		`UPDATE preference_profiles SET is_default = (name = $2) WHERE user_id = $1`,
		userID, name)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM preference_profiles WHERE user_id = $1 AND name = $2)`,
		userID, name).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrProfileNotFound
	}
	return tx.Commit(ctx)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
