package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Jurisdiction is one row of the read-only jurisdiction reference
// directory: the issuing state/province/country's full name, its date
// ordering, and the AAMVA IIN prefix it corresponds to, when known.
type Jurisdiction struct {
	Code         string
	DisplayName  string
	DateOrdering string
	IIN          string
}

// JurisdictionDB wraps a read-only SQLite jurisdiction reference directory.
// It is built offline from the published AAMVA jurisdiction/IIN table and
// shipped alongside the binary; the core decoders never open it themselves
// (codec.JurisdictionFor covers USA-vs-ISO date ordering from DCG alone) —
// it exists for callers that want to resolve a two-letter state code or IIN
// into a display name for review tooling.
type JurisdictionDB struct {
	db *sql.DB
}

// OpenJurisdictionDB opens an existing jurisdiction directory in read-only
// mode.
func OpenJurisdictionDB(path string) (*JurisdictionDB, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open jurisdiction database: %w", err)
	}
	return &JurisdictionDB{db: db}, nil
}

// Close closes the database connection.
func (d *JurisdictionDB) Close() error {
	return d.db.Close()
}

// ByCode looks up a jurisdiction by its two-letter state/province code.
func (d *JurisdictionDB) ByCode(code string) (*Jurisdiction, error) {
	row := d.db.QueryRow(`SELECT code, display_name, date_ordering, iin FROM jurisdictions WHERE code = ?`, strings.ToUpper(code))
	var j Jurisdiction
	if err := row.Scan(&j.Code, &j.DisplayName, &j.DateOrdering, &j.IIN); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup jurisdiction %s: %w", code, err)
	}
	return &j, nil
}

// ByIIN looks up a jurisdiction by its six-digit AAMVA issuer identification
// number.
func (d *JurisdictionDB) ByIIN(iin string) (*Jurisdiction, error) {
	row := d.db.QueryRow(`SELECT code, display_name, date_ordering, iin FROM jurisdictions WHERE iin = ?`, iin)
	var j Jurisdiction
	if err := row.Scan(&j.Code, &j.DisplayName, &j.DateOrdering, &j.IIN); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup jurisdiction for IIN %s: %w", iin, err)
	}
	return &j, nil
}

// All returns every jurisdiction in the directory, ordered by code.
func (d *JurisdictionDB) All() ([]Jurisdiction, error) {
	rows, err := d.db.Query(`SELECT code, display_name, date_ordering, iin FROM jurisdictions ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list jurisdictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Jurisdiction
	for rows.Next() {
		var j Jurisdiction
		if err := rows.Scan(&j.Code, &j.DisplayName, &j.DateOrdering, &j.IIN); err != nil {
			return nil, fmt.Errorf("scan jurisdiction: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
