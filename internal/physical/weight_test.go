package physical

import "testing"

func TestRangeIndexImperialBoundaries(t *testing.T) {
	cases := []struct {
		value int
		want  int
	}{
		{70, 0}, {71, 1}, {100, 1}, {101, 2}, {320, 8}, {321, 9}, {1000, 9},
	}
	for _, c := range cases {
		if got := RangeIndex(c.value, Imperial); got != c.want {
			t.Errorf("RangeIndex(%d, Imperial) = %d, want %d", c.value, got, c.want)
		}
	}
}

func TestRangeIndexMetricBoundaries(t *testing.T) {
	cases := []struct {
		value int
		want  int
	}{
		{31, 0}, {32, 1}, {145, 8}, {146, 9}, {200, 9},
	}
	for _, c := range cases {
		if got := RangeIndex(c.value, Metric); got != c.want {
			t.Errorf("RangeIndex(%d, Metric) = %d, want %d", c.value, got, c.want)
		}
	}
}

// TestMidpointFallsWithinRange covers Testable Property 4.
func TestMidpointFallsWithinRange(t *testing.T) {
	for _, u := range []Unit{Imperial, Metric} {
		for idx := 0; idx <= 9; idx++ {
			mid, err := Midpoint(idx, u)
			if err != nil {
				t.Fatalf("Midpoint(%d, %v): %v", idx, u, err)
			}
			if !RangeContains(idx, mid, u) {
				t.Errorf("midpoint %d for range %d (%v) falls outside the range", mid, idx, u)
			}
		}
	}
}

func TestWeightExactFromRange(t *testing.T) {
	w, err := NewRangeWeight(4, Imperial)
	if err != nil {
		t.Fatalf("NewRangeWeight: %v", err)
	}
	got, err := w.Exact()
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if got != 175 {
		t.Errorf("got %d, want 175", got)
	}
}

func TestWeightExactValue(t *testing.T) {
	w := NewExactWeight(180, Imperial)
	got, err := w.Exact()
	if err != nil {
		t.Fatalf("Exact: %v", err)
	}
	if got != 180 {
		t.Errorf("got %d, want 180", got)
	}
}

func TestNewRangeWeightOutOfBounds(t *testing.T) {
	if _, err := NewRangeWeight(10, Imperial); err == nil {
		t.Error("expected error for range index 10")
	}
}
