package dlid

import (
	"testing"
	"time"

	"aamvadecode/internal/credential"
	"aamvadecode/internal/envelope"
	"aamvadecode/internal/physical"
)

func elements(pairs ...string) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}

func TestDecodeVirginiaV3Scenario(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "MAURY",
			"DCT", "JUSTIN,WILLIAM",
			"DAU", "075 in",
			"DBA", "08142017",
			"DBB", "07151958",
			"DBD", "08142009",
			"DBC", "1",
			"DCG", "USA",
			"DAQ", "T16700185",
			"DCF", "061234567",
			"DAI", "RICHMOND",
			"DAJ", "VA",
			"DAK", "232190000",
			"DAY", "BRO",
		),
	}

	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.First != "JUSTIN" || rec.Middle.Value != "WILLIAM" || rec.Last != "MAURY" {
		t.Errorf("name = %q %q %q, want JUSTIN WILLIAM MAURY", rec.First, rec.Middle.Value, rec.Last)
	}
	if rec.Sex != 1 { // SexMale
		t.Errorf("sex = %v, want Male", rec.Sex)
	}
	if rec.Height != (physical.Height{Value: 75, Unit: physical.Imperial}) {
		t.Errorf("height = %+v", rec.Height)
	}
	wantExpiry := time.Date(2017, time.August, 14, 0, 0, 0, 0, time.UTC)
	if !rec.Expiry.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", rec.Expiry, wantExpiry)
	}
	wantDOB := time.Date(1958, time.July, 15, 0, 0, 0, 0, time.UTC)
	if !rec.DOB.Equal(wantDOB) {
		t.Errorf("dob = %v, want %v", rec.DOB, wantDOB)
	}
	wantIssued := time.Date(2009, time.August, 14, 0, 0, 0, 0, time.UTC)
	if !rec.Issued.Set || !rec.Issued.Value.Equal(wantIssued) {
		t.Errorf("issued = %+v, want %v", rec.Issued, wantIssued)
	}
	if rec.Document.Value != "061234567" {
		t.Errorf("document = %q, want 061234567", rec.Document.Value)
	}
	if rec.Version != 3 {
		t.Errorf("version = %d, want 3", rec.Version)
	}
}

func TestDecodeMarylandV1Scenario(t *testing.T) {
	env := &envelope.Envelope{
		Version: 1,
		Elements: elements(
			"DAA", "JOHNSON,JACK,,3RD",
			"DAI", "BALTIMORE",
			"DAJ", "MD",
			"DAK", "212010000",
			"DAQ", "J123456789012",
			"DBA", "20250814",
			"DBB", "19900715",
			"DBD", "20200814",
			"DBC", "1",
		),
	}

	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.First != "JACK" || rec.Last != "JOHNSON" {
		t.Errorf("name = %q %q, want JACK JOHNSON", rec.First, rec.Last)
	}
	if rec.Suffix.Value != "3RD" {
		t.Errorf("suffix = %q, want 3RD", rec.Suffix.Value)
	}
	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
}

func TestIndianaHeightHairWeightFallbacks(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "LEE", "DCT", "ROBERT", "DCG", "USA", "DCF", "999999999",
			"DAI", "GARY", "DAJ", "IN", "DAK", "464020000",
			"DAQ", "R55500001",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAY", "BRO",
			"ZIJ", "5-11",
			"ZIL", "BRO",
			"ZIK", "180",
		),
	}

	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Height != (physical.Height{Value: 71, Unit: physical.Imperial}) {
		t.Errorf("height = %+v, want 5'11\" via ZIJ fallback", rec.Height)
	}
	if rec.Hair.Value != "BRO" {
		t.Errorf("hair = %q, want BRO via ZIL fallback", rec.Hair.Value)
	}
	if !rec.Weight.Set || rec.Weight.Value.Value != 180 {
		t.Errorf("weight = %+v, want 180 via ZIK fallback", rec.Weight)
	}
	if rec.Units != physical.Imperial {
		t.Errorf("units = %v, want Imperial", rec.Units)
	}
}

func TestIndianaFallbacksYieldToPrimaryElements(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "LEE", "DCT", "ROBERT", "DCG", "USA", "DCF", "999999999",
			"DAI", "GARY", "DAJ", "IN", "DAK", "464020000",
			"DAQ", "R55500002",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAY", "BRO",
			"DAU", "071 in",
			"DAZ", "BLK",
			"DAW", "165",
			"ZIJ", "5-11",
			"ZIL", "BRO",
			"ZIK", "180",
		),
	}

	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Height.Value != 71 {
		t.Errorf("height = %d, want 71 from DAU, not the ZIJ fallback", rec.Height.Value)
	}
	if rec.Hair.Value != "BLK" {
		t.Errorf("hair = %q, want BLK from DAZ, not the ZIL fallback", rec.Hair.Value)
	}
	if rec.Weight.Value.Value != 165 {
		t.Errorf("weight = %d, want 165 from DAW, not the ZIK fallback", rec.Weight.Value.Value)
	}
}

func TestDCTSplitsOnSpaceWithoutComma(t *testing.T) {
	// A full Decode would have to satisfy checkRequired for its version, so
	// this exercises the handler logic directly without relying on the
	// required-field post-pass succeeding.
	c := &ctx{rec: &credential.Record{}, jurisdiction: 1}
	if err := applyCombinedGivenNames(c, "JANE Q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.rec.First != "JANE" || c.rec.Middle.Value != "Q" {
		t.Errorf("first/middle = %q %q, want JANE Q", c.rec.First, c.rec.Middle.Value)
	}
}

func TestNameTruncationMarkers(t *testing.T) {
	env := &envelope.Envelope{
		Version: 6,
		Elements: elements(
			"DCS", "VANDERBILT-SMITHSONIAN-THIRD", "DAC", "CHRISTOPHER", "DAD", "ALEXANDER",
			"DCG", "USA", "DCF", "999999999",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAU", "071 in", "DAY", "BRO",
			"DDE", "T", "DDF", "T", "DDG", "T",
		),
	}

	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Last != "VANDERBILT-SMITHSONIAN-THIRD…" {
		t.Errorf("last = %q", rec.Last)
	}
	if rec.First != "CHRISTOPHER…" {
		t.Errorf("first = %q", rec.First)
	}
	if rec.Middle.Value != "ALEXANDER…" {
		t.Errorf("middle = %q", rec.Middle.Value)
	}
}

func TestWeightResolutionPriority(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "X", "DCT", "X", "DCG", "USA", "DCF", "X",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAU", "071 in", "DAY", "BRO",
			"DAW", "170",
			"DCE", "7",
		),
	}
	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Weight.Value.Value != 170 {
		t.Errorf("weight = %d, want 170 (exact DAW overrides DCE range)", rec.Weight.Value.Value)
	}
}

func TestMissingRequiredFieldPerVersion(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DAC", "X", "DCG", "USA", "DCF", "X",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
		),
	}
	_, err := Decode(env, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.MissingRequiredField || de.Field != "DCS" {
		t.Fatalf("want MissingRequiredField(DCS), got %v", err)
	}
}

func TestMissingDAAForVersion1(t *testing.T) {
	env := &envelope.Envelope{
		Version: 1,
		Elements: elements(
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "20300101", "DBB", "19900101", "DBD", "20250101", "DBC", "1",
		),
	}
	_, err := Decode(env, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.MissingRequiredField || de.Field != "DAA" {
		t.Fatalf("want MissingRequiredField(DAA), got %v", err)
	}
}

func TestUnknownHairCodeWarnsInNonStrict(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "X", "DCT", "X", "DCG", "USA", "DCF", "X",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAU", "071 in", "DAY", "BRO",
			"DAZ", "XYZ",
		),
	}
	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error in non-strict mode: %v", err)
	}
	if len(rec.Warnings) == 0 {
		t.Error("expected a warning for the unrecognized hair code")
	}
}

func TestUnknownHairCodeFailsInStrictMode(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "X", "DCT", "X", "DCG", "USA", "DCF", "X",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBD", "01012025", "DBC", "1",
			"DAU", "071 in", "DAY", "BRO",
			"DAZ", "XYZ",
		),
	}
	_, err := Decode(env, true)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.UnknownCodeValue || de.Field != "DAZ" {
		t.Fatalf("want UnknownCodeValue(DAZ) in strict mode, got %v", err)
	}
}

func TestInvalidSexCodeAlwaysFails(t *testing.T) {
	env := &envelope.Envelope{
		Version: 3,
		Elements: elements(
			"DCS", "X", "DAC", "X", "DCG", "USA", "DCF", "X",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "01012030", "DBB", "01011990", "DBC", "7",
		),
	}
	_, err := Decode(env, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.ParseError || de.Field != "DBC" {
		t.Fatalf("want ParseError(DBC) regardless of strict mode, got %v", err)
	}
}

func TestNoUnitBearingElementDefaultsToImperialWithWarning(t *testing.T) {
	env := &envelope.Envelope{
		Version: 1,
		Elements: elements(
			"DAA", "SMITH,JOHN,",
			"DAI", "X", "DAJ", "X", "DAK", "X", "DAQ", "X",
			"DBA", "20300101", "DBB", "19900101", "DBD", "20250101", "DBC", "1",
		),
	}
	rec, err := Decode(env, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Units != physical.Imperial {
		t.Errorf("units = %v, want Imperial default", rec.Units)
	}
	found := false
	for _, w := range rec.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning for the defaulted unit system")
	}
}

func TestRecognizeDelegatesToEnvelope(t *testing.T) {
	var d Decoder
	if !d.Recognize([]byte("@\n\x1E\rANSI ")) {
		t.Error("should recognize @ envelope prefix")
	}
	if d.Recognize([]byte("%TXAUSTIN")) {
		t.Error("should not recognize magstripe prefix")
	}
}
