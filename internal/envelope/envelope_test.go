package envelope

import (
	"strconv"
	"testing"
)

// buildHeader assembles a minimal compliance header + one subfile body for
// testing, using the real AAMVA field widths.
func buildHeader(fileType string, recordSep byte, iin string, version int, jurisdictionVersion int, body string) []byte {
	var b []byte
	b = append(b, '@', 0x0A, recordSep, 0x0D)
	b = append(b, fileType...)
	b = append(b, iin...)
	b = append(b, pad2(version)...)

	var descStart int
	if version <= 1 {
		b = append(b, pad2(1)...) // entry count
		descStart = 19
	} else {
		b = append(b, pad2(jurisdictionVersion)...)
		b = append(b, pad2(1)...) // entry count
		descStart = 21
	}

	fullBody := body
	offset := descStart + 10
	descriptor := "DL" + pad4(offset) + pad4(len(fullBody))
	b = append(b, descriptor...)
	b = append(b, fullBody...)
	return b
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 2 {
		s = "0" + s
	}
	return s
}

func pad4(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

func TestParseValidVersion3(t *testing.T) {
	body := "DL" + "DAAJOHNSON\nDCSJOHNSON\x0D"
	data := buildHeader("ANSI ", 0x1E, "636000", 3, 0, body)

	env, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.IIN != "636000" {
		t.Errorf("iin = %q", env.IIN)
	}
	if env.Version != 3 {
		t.Errorf("version = %d, want 3", env.Version)
	}
	if env.Elements["DCS"] != "JOHNSON" {
		t.Errorf("DCS = %q, want JOHNSON", env.Elements["DCS"])
	}
	if len(env.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", env.Warnings)
	}
}

func TestParseToleratesAAMVAFileType(t *testing.T) {
	body := "DL" + "DAAJOHNSON,JACK,,3RD\x0D"
	data := buildHeader("AAMVA", 0x1E, "636003", 1, 0, body)

	env, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Elements["DAA"] != "JOHNSON,JACK,,3RD" {
		t.Errorf("DAA = %q", env.Elements["DAA"])
	}
	found := false
	for _, w := range env.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning for the AAMVA file type deviation")
	}
}

func TestParseToleratesOldRecordSeparator(t *testing.T) {
	body := "DL" + "DAAJOHNSON\x0D"
	data := buildHeader("ANSI ", 0x1C, "636011", 0, 0, body)

	env, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.Warnings) == 0 {
		t.Error("expected a warning for the 0x1C record separator")
	}
}

func TestParseSouthCarolinaOffsetFixup(t *testing.T) {
	// South Carolina's version 0 issuance needs its first descriptor's
	// offset bumped by one to land on the actual subfile body.
	body := "DL" + "DAAJOHNSON\x0D"
	data := buildHeader("ANSI ", 0x1E, southCarolinaIIN, 0, 0, body)

	descStart := 19
	origOffset := descStart + 10
	// Insert one filler byte just before the real body, so in the final
	// bytes the body actually starts at origOffset+1. The descriptor still
	// records origOffset (one less than the true location) — the bug this
	// fixup corrects.
	fixed := append([]byte{}, data[:origOffset]...)
	fixed = append(fixed, 'X')
	fixed = append(fixed, data[origOffset:]...)

	env, err := Parse(fixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Elements["DAA"] != "JOHNSON" {
		t.Errorf("DAA = %q, want JOHNSON (fixup should have corrected the offset)", env.Elements["DAA"])
	}
	found := false
	for _, w := range env.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning recording the South Carolina offset fixup")
	}
}

func TestParseRejectsGarbageWithoutAt(t *testing.T) {
	_, err := Parse([]byte("not a barcode at all"))
	if err == nil {
		t.Fatal("expected an error for missing @ header")
	}
}

func TestParseStripsLeadingGarbageBeforeAt(t *testing.T) {
	body := "DL" + "DAAJOHNSON\x0D"
	data := buildHeader("ANSI ", 0x1E, "636000", 3, 0, body)
	data = append([]byte("\x00\x00GARBAGE"), data...)

	env, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Elements["DAA"] != "JOHNSON" {
		t.Errorf("DAA = %q", env.Elements["DAA"])
	}
}
