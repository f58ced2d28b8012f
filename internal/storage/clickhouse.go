package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection used as the bulk analytics log
// of every decode attempt (successful or failed).
type ClickHouseDB struct {
	conn driver.Conn
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouseDB) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS decode_events (
			id              UInt64,
			scan_id         UUID,
			decoded_at      DateTime64(3),
			format          LowCardinality(String),
			version         Int32,
			card_type       LowCardinality(String),
			iin             LowCardinality(String),
			state           LowCardinality(String),
			standards       UInt8,
			strict          UInt8,
			warning_count   UInt32,
			record_json     String,
			error_kind      LowCardinality(Nullable(String)),
			error_reason    String,
			created_at      DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(decoded_at)
		ORDER BY (format, state, decoded_at, id)
		SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// DecodeEvent is one row of the analytics log: a single decode attempt,
// successful or failed.
type DecodeEvent struct {
	ID           uint64
	ScanID       uuid.UUID // idempotency key from the originating ingest.ScanEvent; uuid.Nil when that ScanID is missing or is not a valid UUID.
	DecodedAt    time.Time
	Format       string
	Version      int32
	CardType     string
	IIN          string
	State        string
	Standards    bool
	Strict       bool
	WarningCount uint32
	RecordJSON   string
	ErrorKind    string
	ErrorReason  string
	CreatedAt    time.Time
}

// Insert stores a single decode event.
func (d *ClickHouseDB) Insert(ctx context.Context, e DecodeEvent) error {
	return d.conn.Exec(ctx, `
		INSERT INTO decode_events (id, scan_id, decoded_at, format, version, card_type, iin, state, standards, strict, warning_count, record_json, error_kind, error_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ScanID, e.DecodedAt, e.Format, e.Version, e.CardType, e.IIN, e.State,
		boolToUint8(e.Standards), boolToUint8(e.Strict), e.WarningCount, e.RecordJSON,
		nullableString(e.ErrorKind), e.ErrorReason)
}

// InsertBatch stores multiple decode events efficiently.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, events []DecodeEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO decode_events (id, scan_id, decoded_at, format, version, card_type, iin, state, standards, strict, warning_count, record_json, error_kind, error_reason)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(e.ID, e.ScanID, e.DecodedAt, e.Format, e.Version, e.CardType, e.IIN, e.State,
			boolToUint8(e.Standards), boolToUint8(e.Strict), e.WarningCount, e.RecordJSON,
			nullableString(e.ErrorKind), e.ErrorReason)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EventQueryParams contains filtering options for querying decode events.
type EventQueryParams struct {
	Format      string
	CardType    string
	State       string
	OnlyErrors  bool
	Limit       int
	Offset      int
	OrderDesc   bool
}

// Query retrieves decode events matching the given parameters.
func (d *ClickHouseDB) Query(ctx context.Context, p EventQueryParams) ([]DecodeEvent, error) {
	var conditions []string
	var args []interface{}

	if p.Format != "" {
		conditions = append(conditions, "format = ?")
		args = append(args, p.Format)
	}
	if p.CardType != "" {
		conditions = append(conditions, "card_type = ?")
		args = append(args, p.CardType)
	}
	if p.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, p.State)
	}
	if p.OnlyErrors {
		conditions = append(conditions, "error_kind IS NOT NULL")
	}

	query := `SELECT id, scan_id, decoded_at, format, version, card_type, iin, state, standards, strict, warning_count, record_json, error_kind, error_reason, created_at FROM decode_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY decoded_at %s", direction)

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decode events: %w", err)
	}
	defer rows.Close()

	var events []DecodeEvent
	for rows.Next() {
		var e DecodeEvent
		var standards, strict uint8
		var errorKind *string
		err := rows.Scan(&e.ID, &e.ScanID, &e.DecodedAt, &e.Format, &e.Version, &e.CardType, &e.IIN, &e.State,
			&standards, &strict, &e.WarningCount, &e.RecordJSON, &errorKind, &e.ErrorReason, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Standards = standards == 1
		e.Strict = strict == 1
		if errorKind != nil {
			e.ErrorKind = *errorKind
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}

// Stats contains aggregate statistics about stored decode events.
type Stats struct {
	TotalEvents   uint64
	ByFormat      map[string]uint64
	ByCardType    map[string]uint64
	WithErrors    uint64
	NonStandards  uint64
}

// GetStats returns statistics about stored decode events.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByFormat:   make(map[string]uint64),
		ByCardType: make(map[string]uint64),
	}

	row := d.conn.QueryRow(ctx, "SELECT count() FROM decode_events")
	if err := row.Scan(&stats.TotalEvents); err != nil {
		return nil, err
	}

	if err := scanCounts(ctx, d.conn, "SELECT format, count() FROM decode_events GROUP BY format", stats.ByFormat); err != nil {
		return nil, err
	}
	if err := scanCounts(ctx, d.conn, "SELECT card_type, count() FROM decode_events GROUP BY card_type", stats.ByCardType); err != nil {
		return nil, err
	}

	row = d.conn.QueryRow(ctx, "SELECT count() FROM decode_events WHERE error_kind IS NOT NULL")
	if err := row.Scan(&stats.WithErrors); err != nil {
		return nil, err
	}
	row = d.conn.QueryRow(ctx, "SELECT count() FROM decode_events WHERE standards = 0")
	if err := row.Scan(&stats.NonStandards); err != nil {
		return nil, err
	}

	return stats, nil
}

func scanCounts(ctx context.Context, conn driver.Conn, query string, into map[string]uint64) error {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count uint64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan counts: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// MaxID returns the maximum event ID in the table.
func (d *ClickHouseDB) MaxID(ctx context.Context) (uint64, error) {
	var maxID uint64
	row := d.conn.QueryRow(ctx, "SELECT max(id) FROM decode_events")
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID, nil
}

// MarshalRecord is a small helper callers use to populate RecordJSON; kept
// here so callers need not import encoding/json solely for this.
func MarshalRecord(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(b), nil
}
