package physical

import "testing"

func TestParseHeightInches(t *testing.T) {
	h, err := ParseHeight("075 in")
	if err != nil {
		t.Fatalf("ParseHeight: %v", err)
	}
	if h != (Height{Value: 75, Unit: Imperial}) {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeightCentimetres(t *testing.T) {
	h, err := ParseHeight("180CM")
	if err != nil {
		t.Fatalf("ParseHeight: %v", err)
	}
	if h != (Height{Value: 180, Unit: Metric}) {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeightFeetInches(t *testing.T) {
	h, err := ParseHeight(`5'-09"`)
	if err != nil {
		t.Fatalf("ParseHeight: %v", err)
	}
	if h != (Height{Value: 69, Unit: Imperial}) {
		t.Errorf("got %+v", h)
	}
}

func TestParseHeightUnknownSuffix(t *testing.T) {
	if _, err := ParseHeight("075 xx"); err == nil {
		t.Error("expected error for unknown unit suffix")
	}
}

func TestParseMagstripeHeight(t *testing.T) {
	h, err := ParseMagstripeHeight("509")
	if err != nil {
		t.Fatalf("ParseMagstripeHeight: %v", err)
	}
	if h != (Height{Value: 69, Unit: Imperial}) {
		t.Errorf("got %+v", h)
	}
}

// TestHeightConversionRoundTrip covers Testable Property 2: converting a
// height to the other unit and back loses at most 1 inch.
func TestHeightConversionRoundTrip(t *testing.T) {
	for v := 48; v <= 84; v++ {
		h := Height{Value: v, Unit: Imperial}
		cm := h.AsCentimetres()
		back := Height{Value: cm, Unit: Metric}.AsInches()
		if diff := back - v; diff < -1 || diff > 1 {
			t.Errorf("imperial round trip for %d in: got %d in back (diff %d)", v, back, diff)
		}
	}
	for v := 120; v <= 210; v++ {
		h := Height{Value: v, Unit: Metric}
		in := h.AsInches()
		back := Height{Value: in, Unit: Imperial}.AsCentimetres()
		if diff := back - v; diff < -3 || diff > 3 {
			t.Errorf("metric round trip for %d cm: got %d cm back (diff %d)", v, back, diff)
		}
	}
}

func TestHeightEqualityByMagnitudeAndUnit(t *testing.T) {
	a := Height{Value: 180, Unit: Metric}
	b := Height{Value: 180, Unit: Imperial}
	if a == b {
		t.Error("heights with same magnitude but different units must not be equal")
	}
}
