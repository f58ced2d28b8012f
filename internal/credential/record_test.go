package credential

import "testing"

func TestStandardsTrueIffWarningsEmpty(t *testing.T) {
	r := &Record{}
	if !r.Standards() {
		t.Error("fresh record should be standards-compliant")
	}
	r.Warn("some deviation")
	if r.Standards() {
		t.Error("record with a warning should not be standards-compliant")
	}
}

func TestParseSexCodes(t *testing.T) {
	cases := []struct {
		code     string
		wantSex  Sex
		wantDev  bool
		wantOK   bool
	}{
		{"1", SexMale, false, true},
		{"2", SexFemale, false, true},
		{"9", SexNotSpecified, false, true},
		{"M", SexMale, true, true},
		{"F", SexFemale, true, true},
		{"X", SexUnspecified, false, false},
	}
	for _, c := range cases {
		sex, dev, ok := ParseSex(c.code)
		if sex != c.wantSex || dev != c.wantDev || ok != c.wantOK {
			t.Errorf("ParseSex(%q) = (%v, %v, %v), want (%v, %v, %v)", c.code, sex, dev, ok, c.wantSex, c.wantDev, c.wantOK)
		}
	}
}

func TestKnownCodeSets(t *testing.T) {
	if !IsKnownEyeColour("BLU") {
		t.Error("BLU should be a known eye colour")
	}
	if IsKnownEyeColour("XXX") {
		t.Error("XXX should not be a known eye colour")
	}
	if !IsKnownHairColour("BAL") {
		t.Error("BAL should be a known hair colour")
	}
	if IsKnownHairColour("XXX") {
		t.Error("XXX should not be a known hair colour")
	}
}

func TestDecodeErrorMessages(t *testing.T) {
	errs := []*DecodeError{
		ErrNoInput(),
		ErrUnrecognizedFormat(),
		ErrRead("bad sentinel"),
		ErrParse("DAU", "unknown unit suffix", "075xx"),
		ErrMissingRequiredField("DCS", 4),
		ErrNotImplemented(42),
		ErrUnknownCodeValue("DAY", "ZZZ"),
	}
	for _, e := range errs {
		if e.Error() == "" {
			t.Errorf("error kind %s produced empty message", e.Kind)
		}
	}
}
