package physical

import "fmt"

// rangeTable holds the inclusive upper bound of weight ranges 0-8 (range 9
// is unbounded above) and the approximation midpoint used when an exact
// value must be derived from a range. Lower bounds are derived from the
// previous range's upper bound.
type rangeTable struct {
	lowerBound [10]int // not populated by either table; lower bounds come from upperBound.
	upperBound [9]int  // inclusive upper bound of ranges 0..8 (range 9 is "upperBound[8]+1 and above").
	midpoint   [10]int
}

var imperialRanges = rangeTable{
	upperBound: [9]int{70, 100, 130, 160, 190, 220, 250, 280, 320},
	midpoint:   [10]int{50, 85, 115, 145, 175, 205, 235, 265, 300, 320},
}

var metricRanges = rangeTable{
	upperBound: [9]int{31, 45, 59, 70, 86, 100, 113, 127, 145},
	midpoint:   [10]int{20, 38, 53, 65, 79, 94, 107, 121, 137, 146},
}

func tableFor(u Unit) rangeTable {
	if u == Metric {
		return metricRanges
	}
	return imperialRanges
}

// RangeIndex returns the 0-9 range index containing value under unit u.
// Range 9 is unbounded above (>= the top of range 8's upper bound + 1).
func RangeIndex(value int, u Unit) int {
	t := tableFor(u)
	for i, upper := range t.upperBound {
		if value <= upper {
			return i
		}
	}
	return 9
}

// RangeContains reports whether value falls within range index idx (0-9)
// under unit u.
func RangeContains(idx, value int, u Unit) bool {
	t := tableFor(u)
	if idx < 0 || idx > 9 {
		return false
	}
	if idx == 9 {
		// Range 9's floor is nominally the top of range 8 plus one, but the
		// documented approximation midpoint for range 9 can sit exactly on
		// that boundary (e.g. imperial's 320); treat the floor as whichever
		// is lower so the midpoint always falls inside its own range.
		floor := t.upperBound[8] + 1
		if t.midpoint[9] < floor {
			floor = t.midpoint[9]
		}
		return value >= floor
	}
	lower := 0
	if idx > 0 {
		lower = t.upperBound[idx-1] + 1
	}
	return value >= lower && value <= t.upperBound[idx]
}

// Midpoint returns the approximation midpoint for range idx under unit u.
func Midpoint(idx int, u Unit) (int, error) {
	if idx < 0 || idx > 9 {
		return 0, fmt.Errorf("physical: weight: range index %d out of range 0-9", idx)
	}
	return tableFor(u).midpoint[idx], nil
}

// Weight is either an exact magnitude in the given unit, or a 0-9 range
// index when only a bucketed value was encoded. Exactly one of IsRange or
// an exact value is meaningful at a time; Exact() reports the effective
// magnitude either way, approximating from the range midpoint when needed.
type Weight struct {
	Value   int // exact value, or range index 0-9 when IsRange is true.
	Unit    Unit
	IsRange bool
}

// NewExactWeight constructs an exact Weight.
func NewExactWeight(value int, u Unit) Weight {
	return Weight{Value: value, Unit: u}
}

// NewRangeWeight constructs a range-index Weight. idx must be 0-9.
func NewRangeWeight(idx int, u Unit) (Weight, error) {
	if idx < 0 || idx > 9 {
		return Weight{}, fmt.Errorf("physical: weight: range index %d out of range 0-9", idx)
	}
	return Weight{Value: idx, Unit: u, IsRange: true}, nil
}

// Exact returns the weight's effective magnitude: the stored value if
// exact, or the range's approximation midpoint otherwise.
func (w Weight) Exact() (int, error) {
	if !w.IsRange {
		return w.Value, nil
	}
	return Midpoint(w.Value, w.Unit)
}
