package codec

import (
	"fmt"
	"time"
)

// julianEpoch is the day zero of the DoD Julian base-32-hex date encoding:
// 1000-01-01.
var julianEpoch = time.Date(1000, time.January, 1, 0, 0, 0, 0, time.UTC)

// JulianToDate decodes a 4-character base-32-hex Julian day offset into the
// Gregorian date reached by adding that many days to 1000-01-01.
func JulianToDate(s string) (time.Time, error) {
	n, err := ToInt(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("codec: julian date: %w", err)
	}
	return julianEpoch.AddDate(0, 0, int(n)), nil
}

// DateToJulian encodes t as a base-32-hex day offset from 1000-01-01.
func DateToJulian(t time.Time) string {
	days := (t.Unix() - julianEpoch.Unix()) / 86400
	return FromInt(days)
}

// Jurisdiction selects which AAMVA date ordering applies: USA uses
// MMDDYYYY, everything else (CAN and unrecognized jurisdictions) uses
// YYYYMMDD per spec.
type Jurisdiction int

const (
	JurisdictionISO Jurisdiction = iota
	JurisdictionUSA
)

// JurisdictionFor selects the date ordering for the given DCG/country value.
func JurisdictionFor(country string) Jurisdiction {
	if country == "USA" {
		return JurisdictionUSA
	}
	return JurisdictionISO
}

// ParseAAMVADate parses an 8-digit AAMVA date string under the given
// jurisdiction ordering: USA is MMDDYYYY, ISO/CAN is YYYYMMDD.
func ParseAAMVADate(s string, j Jurisdiction) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("codec: aamva date: %q must be 8 digits", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, fmt.Errorf("codec: aamva date: %q is not numeric", s)
		}
	}

	layout := "20060102"
	if j == JurisdictionUSA {
		layout = "01022006"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("codec: aamva date: %q: %w", s, err)
	}
	return t, nil
}

// LastDayOfMonth returns the last calendar day of the month containing t,
// computed as (first day of next month) minus one day — used for magstripe
// track-2 expiry, which encodes only year and month.
func LastDayOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}

// ParseTrack2Expiry parses a 4-digit YYMM magstripe expiry into the last day
// of that month. The two-digit year is taken as 2000+YY, consistent with
// AAMVA magstripe issuance since the standard's adoption.
func ParseTrack2Expiry(s string) (time.Time, error) {
	if len(s) != 4 {
		return time.Time{}, fmt.Errorf("codec: track2 expiry: %q must be 4 digits", s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, fmt.Errorf("codec: track2 expiry: %q is not numeric", s)
		}
	}

	yy := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[2]-'0')*10 + int(s[3]-'0')
	if mm < 1 || mm > 12 {
		return time.Time{}, fmt.Errorf("codec: track2 expiry: %q has invalid month", s)
	}
	first := time.Date(2000+yy, time.Month(mm), 1, 0, 0, 0, 0, time.UTC)
	return LastDayOfMonth(first), nil
}

// ParseTrack2DOB parses an 8-digit YYYYMMDD magstripe date of birth.
func ParseTrack2DOB(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("codec: track2 dob: %q must be 8 digits", s)
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("codec: track2 dob: %q: %w", s, err)
	}
	return t, nil
}
