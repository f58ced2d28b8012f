// Package storage provides persistent storage for decoded credential
// records: a bulk analytics log in ClickHouse, mutable review state in
// PostgreSQL, and a read-only jurisdiction reference directory in SQLite.
package storage

import (
	"context"
	"fmt"
)

// Config holds database connection settings for ClickHouse, PostgreSQL, and
// the optional jurisdiction reference directory.
type Config struct {
	ClickHouse ClickHouseConfig
	Postgres   PostgresConfig
	// JurisdictionPath is the filesystem path to the read-only jurisdiction
	// directory (see JurisdictionDB). Empty skips opening it; Open then
	// leaves DB.JD nil and callers that want jurisdiction lookups fall back
	// to whatever override store they already consult.
	JurisdictionPath string
}

// DefaultConfig returns a configuration with default local development settings.
func DefaultConfig() Config {
	return Config{
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "aamvadecode",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "aamvadecode_review",
			User:     "aamvadecode",
			Password: "aamvadecode",
		},
		JurisdictionPath: "",
	}
}

// DB wraps the ClickHouse, PostgreSQL, and (optionally) jurisdiction-directory
// connections.
type DB struct {
	CH *ClickHouseDB   // ClickHouse for the decode-event analytics log.
	PG *PostgresDB     // PostgreSQL for review/annotation state.
	JD *JurisdictionDB // SQLite jurisdiction reference directory; nil if Config.JurisdictionPath was empty.
}

// Open opens connections to ClickHouse and PostgreSQL, and to the
// jurisdiction directory when Config.JurisdictionPath is set.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}

	pg, err := OpenPostgres(ctx, cfg.Postgres)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	var jd *JurisdictionDB
	if cfg.JurisdictionPath != "" {
		jd, err = OpenJurisdictionDB(cfg.JurisdictionPath)
		if err != nil {
			_ = ch.Close()
			pg.Close()
			return nil, fmt.Errorf("jurisdiction directory: %w", err)
		}
	}

	return &DB{CH: ch, PG: pg, JD: jd}, nil
}

// Close closes every open database connection.
func (d *DB) Close() error {
	var errs []error
	if d.CH != nil {
		if err := d.CH.Close(); err != nil {
			errs = append(errs, fmt.Errorf("clickhouse: %w", err))
		}
	}
	if d.PG != nil {
		d.PG.Close()
	}
	if d.JD != nil {
		if err := d.JD.Close(); err != nil {
			errs = append(errs, fmt.Errorf("jurisdiction directory: %w", err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// CreateSchemas creates the schemas in ClickHouse and PostgreSQL. The
// jurisdiction directory is read-only and built offline, so it has no
// schema to create here.
func (d *DB) CreateSchemas(ctx context.Context) error {
	if err := d.CH.CreateSchema(ctx); err != nil {
		return fmt.Errorf("clickhouse schema: %w", err)
	}
	if err := d.PG.CreateSchema(ctx); err != nil {
		return fmt.Errorf("postgres schema: %w", err)
	}
	return nil
}
