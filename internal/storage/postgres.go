package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // SSL mode (disable, require, verify-ca, verify-full). Default: disable.
}

// PostgresDB wraps a PostgreSQL connection pool holding mutable review state
// over decode events logged in ClickHouse.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, escapedPassword, cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS review_flags (
		event_id        BIGINT PRIMARY KEY,
		flagged         BOOLEAN NOT NULL DEFAULT FALSE,
		annotation      TEXT,
		expected_json   JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS jurisdiction_overrides (
		code            TEXT PRIMARY KEY,
		display_name    TEXT NOT NULL,
		date_ordering   TEXT NOT NULL DEFAULT 'ISO',
		notes           TEXT,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	_, _ = d.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_review_flags_flagged ON review_flags(flagged) WHERE flagged = TRUE`)

	return nil
}

// ReviewFlag represents a reviewer's annotation of a single decode event.
type ReviewFlag struct {
	EventID      int64
	Flagged      bool
	Annotation   string
	ExpectedJSON map[string]interface{}
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertReviewFlag inserts or updates a review flag.
func (d *PostgresDB) UpsertReviewFlag(ctx context.Context, r ReviewFlag) error {
	expectedJSON, err := json.Marshal(r.ExpectedJSON)
	if err != nil {
		return fmt.Errorf("marshal expected_json: %w", err)
	}

	_, err = d.pool.Exec(ctx, `
		INSERT INTO review_flags (event_id, flagged, annotation, expected_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO UPDATE SET
			flagged = EXCLUDED.flagged,
			annotation = EXCLUDED.annotation,
			expected_json = EXCLUDED.expected_json,
			updated_at = EXCLUDED.updated_at
	`, r.EventID, r.Flagged, r.Annotation, expectedJSON, r.CreatedAt, r.UpdatedAt)
	return err
}

// GetReviewFlag retrieves a review flag by decode event ID.
func (d *PostgresDB) GetReviewFlag(ctx context.Context, eventID int64) (*ReviewFlag, error) {
	var r ReviewFlag
	var expectedJSON []byte

	err := d.pool.QueryRow(ctx, `
		SELECT event_id, flagged, annotation, expected_json, created_at, updated_at
		FROM review_flags WHERE event_id = $1
	`, eventID).Scan(&r.EventID, &r.Flagged, &r.Annotation, &expectedJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_ = json.Unmarshal(expectedJSON, &r.ExpectedJSON)
	return &r, nil
}

// ListFlagged retrieves all flagged review entries.
func (d *PostgresDB) ListFlagged(ctx context.Context) ([]ReviewFlag, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT event_id, flagged, annotation, expected_json, created_at, updated_at
		FROM review_flags WHERE flagged = TRUE
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []ReviewFlag
	for rows.Next() {
		var r ReviewFlag
		var expectedJSON []byte
		if err := rows.Scan(&r.EventID, &r.Flagged, &r.Annotation, &expectedJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(expectedJSON, &r.ExpectedJSON)
		flags = append(flags, r)
	}
	return flags, rows.Err()
}

// SetFlagged marks or unmarks a decode event as flagged for review.
func (d *PostgresDB) SetFlagged(ctx context.Context, eventID int64, flagged bool) error {
	now := time.Now()
	_, err := d.pool.Exec(ctx, `
		INSERT INTO review_flags (event_id, flagged, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (event_id) DO UPDATE SET
			flagged = EXCLUDED.flagged,
			updated_at = EXCLUDED.updated_at
	`, eventID, flagged, now)
	return err
}

// JurisdictionOverride lets a reviewer correct a jurisdiction's display name
// or date ordering without waiting on a JurisdictionDB reference refresh.
type JurisdictionOverride struct {
	Code         string
	DisplayName  string
	DateOrdering string
	Notes        string
	UpdatedAt    time.Time
}

// UpsertJurisdictionOverride inserts or updates a jurisdiction override.
func (d *PostgresDB) UpsertJurisdictionOverride(ctx context.Context, j JurisdictionOverride) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO jurisdiction_overrides (code, display_name, date_ordering, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			date_ordering = EXCLUDED.date_ordering,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, j.Code, j.DisplayName, j.DateOrdering, j.Notes, j.UpdatedAt)
	return err
}

// GetJurisdictionOverride retrieves a jurisdiction override by code.
func (d *PostgresDB) GetJurisdictionOverride(ctx context.Context, code string) (*JurisdictionOverride, error) {
	var j JurisdictionOverride
	err := d.pool.QueryRow(ctx, `
		SELECT code, display_name, date_ordering, notes, updated_at
		FROM jurisdiction_overrides WHERE code = $1
	`, code).Scan(&j.Code, &j.DisplayName, &j.DateOrdering, &j.Notes, &j.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Pool returns the underlying connection pool for advanced operations.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}
