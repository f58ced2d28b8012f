// Command codecheck exercises the round-trip properties of the base32-hex
// integer codec, the Julian date codec, and the AAMVA/track2 date parsers
// against known test vectors, printing PASS/FAIL per case.
package main

import (
	"fmt"
	"os"
	"time"

	"aamvadecode/internal/codec"
)

// intCases are base32-hex integer encode/decode vectors.
var intCases = []struct {
	s string
	n int64
}{
	{"0", 0},
	{"1", 1},
	{"v", 31},
	{"10", 32},
	{"vv", 1023},
	{"100", 1024},
	{"1000000", 1073741824}, // 32^6
}

// julianCase pairs a 4-char Julian base32-hex date with the expected
// Gregorian date, epoch 1000-01-01.
var julianCases = []struct {
	s    string
	want string // RFC3339 date only
}{
	{"0000", "1000-01-01"},
	{"0001", "1000-01-02"},
	{"000v", "1000-02-01"},
}

// aamvaDateCases exercise both jurisdiction orderings.
var aamvaDateCases = []struct {
	s    string
	j    codec.Jurisdiction
	want string
}{
	{"01152026", codec.JurisdictionUSA, "2026-01-15"},
	{"20260115", codec.JurisdictionISO, "2026-01-15"},
}

func main() {
	failures := 0

	fmt.Println("-- base32hex integer round-trip --")
	for _, tc := range intCases {
		n, err := codec.ToInt(tc.s)
		ok := err == nil && n == tc.n
		back := ""
		if err == nil {
			back = codec.FromInt(n)
			ok = ok && back == tc.s
		}
		report(tc.s, ok, fmt.Sprintf("ToInt=%d err=%v FromInt=%s", n, err, back), &failures)
	}

	fmt.Println("-- Julian date decode --")
	for _, tc := range julianCases {
		t, err := codec.JulianToDate(tc.s)
		got := ""
		if err == nil {
			got = t.Format("2006-01-02")
		}
		ok := err == nil && got == tc.want
		report(tc.s, ok, fmt.Sprintf("got=%s want=%s err=%v", got, tc.want, err), &failures)
	}

	fmt.Println("-- Julian date round-trip via DateToJulian --")
	for _, tc := range julianCases {
		t, _ := time.Parse("2006-01-02", tc.want)
		back := codec.DateToJulian(t)
		wantN, _ := codec.ToInt(tc.s)
		gotN, _ := codec.ToInt(back)
		ok := wantN == gotN
		report(tc.s, ok, fmt.Sprintf("DateToJulian=%s (day %d) want day %d", back, gotN, wantN), &failures)
	}

	fmt.Println("-- AAMVA date parse (jurisdiction-dependent ordering) --")
	for _, tc := range aamvaDateCases {
		t, err := codec.ParseAAMVADate(tc.s, tc.j)
		got := ""
		if err == nil {
			got = t.Format("2006-01-02")
		}
		ok := err == nil && got == tc.want
		report(tc.s, ok, fmt.Sprintf("got=%s want=%s err=%v", got, tc.want, err), &failures)
	}

	if failures > 0 {
		fmt.Printf("\n%d case(s) FAILED\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall cases passed")
}

func report(label string, ok bool, detail string, failures *int) {
	status := "PASS"
	if !ok {
		status = "FAIL"
		*failures++
	}
	fmt.Printf("%-4s %-10s %s\n", status, label, detail)
}
