// Package credential defines the canonical credential Record produced by
// every decoder (magstripe, PDF417 AAMVA, DoD CAC), the code sets it draws
// on, and the error taxonomy decoders raise.
package credential

import (
	"time"

	"aamvadecode/internal/physical"
)

// OptionalText is a present-or-absent text field. Every optional text field
// on Record uses this instead of the empty string, so "absent" and
// "present but blank" are never confused.
type OptionalText struct {
	Value string
	Set   bool
}

// Text constructs a present OptionalText. An empty string argument still
// counts as present; use the zero value for absent.
func Text(v string) OptionalText { return OptionalText{Value: v, Set: true} }

// OptionalDate is a present-or-absent date field.
type OptionalDate struct {
	Value time.Time
	Set   bool
}

// Date constructs a present OptionalDate.
func Date(t time.Time) OptionalDate { return OptionalDate{Value: t, Set: true} }

// ArrivalDates holds the v5+ age-milestone dates.
type ArrivalDates struct {
	Under18Until OptionalDate
	Under19Until OptionalDate
	Under21Until OptionalDate
}

// Record is the canonical, immutable output of every decoder. It is never
// mutated after construction; decoders build it field by field and return
// it complete.
type Record struct {
	First  string
	Last   string
	Middle OptionalText
	Suffix OptionalText
	Prefix OptionalText

	Address  string
	Address2 OptionalText
	City     string
	State    string
	Country  OptionalText
	ZIP      string

	IIN            string
	LicenseNumber  string
	Expiry         time.Time
	DOB            time.Time
	Issued         OptionalDate
	Class          OptionalText
	Restrictions   OptionalText
	Endorsements   OptionalText

	Sex Sex

	Height physical.Height
	Weight OptionalWeight

	Hair OptionalEye
	Eyes OptionalEye

	Units physical.Unit

	CardType CardType
	Document OptionalText

	Arrival ArrivalDates

	// CAC-only fields, set only when Format is FormatCAC.
	PDI                  OptionalText
	PDIType              OptionalText
	EDIPI                OptionalText
	PersonCategory       OptionalText
	ServiceBranch        OptionalText
	EntitlementCondition OptionalText
	Rank                 OptionalText
	PayPlan              OptionalText
	PayGrade             OptionalText
	CardInstance         OptionalText

	Format  Format
	Version int

	Warnings []string
}

// Standards reports whether the record was decoded with zero warnings —
// i.e. strictly conformant to the standard with no tolerated deviation.
func (r *Record) Standards() bool {
	return len(r.Warnings) == 0
}

// Warn appends a non-fatal observation to the record.
func (r *Record) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// OptionalWeight carries a physical.Weight that may be entirely absent: a
// credential with no exact-weight or weight-range element encoded.
type OptionalWeight struct {
	Value physical.Weight
	Set   bool
}

// OptionalEye carries a colour code that may be out of the closed
// enumeration (surfaced as-is with a warning, per spec) alongside whether
// the value is present at all.
type OptionalEye struct {
	Value string
	Set   bool
}
