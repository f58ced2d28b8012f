// Package magstripe decodes the three-track AAMVA magnetic-stripe encoding
// into a credential.Record: a QuickCheck-style recognizer paired with a
// Parse/Decode step, warnings accumulated on the result rather than failing
// outright.
package magstripe

import (
	"strings"
	"time"

	"aamvadecode/internal/codec"
	"aamvadecode/internal/credential"
	"aamvadecode/internal/physical"
)

// trackThreeWidths are the fixed field widths of track 3, in order. Real
// issuance data has occasionally run one or two characters long in the
// restrictions field (free-text, jurisdiction-defined); any surplus length
// beyond the documented total is absorbed there so the unambiguous trailing
// fields (sex/height/weight/hair/eyes) always land correctly.
var trackThreeWidths = []struct {
	name  string
	width int
}{
	{"template", 1},
	{"security", 1},
	{"postal", 11},
	{"class", 2},
	{"restrictions", 10},
	{"endorsements", 4},
	{"sex", 1},
	{"height", 3},
	{"weight", 3},
	{"hair", 3},
	{"eyes", 3},
}

// Decoder decodes AAMVA magstripe input. It implements dispatch.Decoder.
type Decoder struct{}

// Recognize reports whether data begins with the magstripe start sentinel.
func (Decoder) Recognize(data []byte) bool {
	return len(data) > 0 && data[0] == '%'
}

// Decode parses a full three-track magstripe string into a Record. strict
// controls whether an unrecognized hair/eye colour code is fatal or merely
// a warning; an invalid sex code is always fatal regardless of strict.
func (Decoder) Decode(data []byte, strict bool) (*credential.Record, error) {
	raw := string(data)
	if raw == "" {
		return nil, credential.ErrNoInput()
	}
	if strings.HasPrefix(raw, "%E?") {
		return nil, credential.ErrRead("reader error sentinel %E?")
	}
	if raw[0] != '%' {
		return nil, credential.ErrRead("missing leading % sentinel")
	}

	fields := strings.Split(raw, "^")
	if len(fields) < 2 {
		return nil, credential.ErrRead("track 1 has no field separators")
	}

	overflow := len(fields[0]) > 16

	var stateCity, nameBlock, addressBlock, remainder string

	afterPercent := fields[0][1:]
	if len(afterPercent) < 2 {
		return nil, credential.ErrRead("track 1 header too short for state code")
	}

	if overflow {
		if len(fields) < 3 {
			return nil, credential.ErrRead("overflowed name field has no address field")
		}
		nameBlock = afterPercent[15:]
		addressBlock = fields[1]
		remainder = strings.Join(fields[2:], "^")
	} else {
		if len(fields) < 4 {
			return nil, credential.ErrRead("track 1 missing name, address, or track 2/3 field")
		}
		stateCity = afterPercent[2:]
		nameBlock = fields[1]
		addressBlock = fields[2]
		remainder = strings.Join(fields[3:], "^")
	}

	state := afterPercent[:2]
	var city string
	if overflow {
		city = strings.TrimRight(afterPercent[2:15], " ")
	} else {
		city = strings.TrimRight(stateCity, " ")
	}

	last, first, middle, middleSet := splitName(nameBlock)

	track2, track3, err := splitRemainder(remainder)
	if err != nil {
		return nil, err
	}

	iin, license, expiry, dob, err := parseTrack2(track2)
	if err != nil {
		return nil, err
	}

	rec := &credential.Record{
		First:         first,
		Last:          last,
		Address:       strings.TrimRight(addressBlock, " "),
		City:          city,
		State:         state,
		IIN:           iin,
		LicenseNumber: license,
		Expiry:        expiry,
		DOB:           dob,
		Units:         physical.Imperial,
		CardType:      credential.DriverLicense,
	}
	if middleSet {
		rec.Middle = credential.Text(middle)
	}

	if track3 != "" {
		if err := parseTrack3(track3, rec, strict); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// splitName parses the last$first$middle name block. middle is optional;
// middleSet reports whether a (possibly empty) middle segment was present.
func splitName(block string) (last, first, middle string, middleSet bool) {
	parts := strings.Split(block, "$")
	if len(parts) > 0 {
		last = parts[0]
	}
	if len(parts) > 1 {
		first = parts[1]
	}
	if len(parts) > 2 {
		middle = parts[2]
		middleSet = true
	}
	return last, first, middle, middleSet
}

// splitRemainder separates the track 1 terminator, track 2, and track 3
// out of the string following the last track-1 field.
func splitRemainder(remainder string) (track2, track3 string, err error) {
	parts := strings.Split(remainder, "?")
	if len(parts) < 2 {
		return "", "", credential.ErrRead("no track 1 terminator found")
	}
	// parts[0] is whatever follows the last track-1 '^' before the track 1
	// terminator '?'; it is ordinarily empty.
	if len(parts) < 3 {
		return "", "", credential.ErrRead("track 2 not terminated")
	}
	track2 = parts[1]
	track3 = parts[2]
	if !strings.HasPrefix(track2, ";") {
		return "", "", credential.ErrRead("track 2 missing ; sentinel")
	}
	return strings.TrimPrefix(track2, ";"), track3, nil
}

// parseTrack2 decodes "IIN|LICENSE = EXPIRY|DOB|OVERFLOW".
func parseTrack2(track2 string) (iin, license string, expiry, dob time.Time, err error) {
	parts := strings.Split(track2, "=")
	if len(parts) < 2 {
		return "", "", time.Time{}, time.Time{}, credential.ErrRead("track 2 missing = separator")
	}

	idLine := parts[0]
	if len(idLine) < 6 {
		return "", "", time.Time{}, time.Time{}, credential.ErrParse("IIN", "track 2 identifier line too short", idLine)
	}
	iin = idLine[:6]
	license = safeSlice(idLine, 6, 20)

	dateLine := parts[1]
	// Only a two-part split can carry license overflow into the date line;
	// a three-or-more-part split means the license number did not overflow.
	if len(parts) == 2 {
		license += safeSlice(dateLine, 13, 25)
	}
	if len(dateLine) < 12 {
		return "", "", time.Time{}, time.Time{}, credential.ErrParse("EXPIRY/DOB", "track 2 date line too short", dateLine)
	}

	expiry, err = codec.ParseTrack2Expiry(dateLine[:4])
	if err != nil {
		return "", "", time.Time{}, time.Time{}, credential.ErrParse("DBA", err.Error(), dateLine[:4])
	}
	dob, err = codec.ParseTrack2DOB(dateLine[4:12])
	if err != nil {
		return "", "", time.Time{}, time.Time{}, credential.ErrParse("DBB", err.Error(), dateLine[4:12])
	}

	return iin, license, expiry, dob, nil
}

// safeSlice returns s[start:end], clamped so it never panics: an
// out-of-range start yields "", and end is clamped to len(s).
func safeSlice(s string, start, end int) string {
	if start >= len(s) {
		return ""
	}
	if end > len(s) {
		end = len(s)
	}
	if end <= start {
		return ""
	}
	return s[start:end]
}

// parseTrack3 fills sex/height/weight/hair/eyes and the class/restrictions/
// endorsements text fields from the fixed-width track 3 body. Any surplus
// length over the documented total width is absorbed into the
// restrictions field, which is free text and jurisdiction-defined.
func parseTrack3(track3 string, rec *credential.Record, strict bool) error {
	total := 0
	for _, f := range trackThreeWidths {
		total += f.width
	}
	surplus := len(track3) - total

	cursor := 0
	values := make(map[string]string, len(trackThreeWidths))
	for _, f := range trackThreeWidths {
		w := f.width
		if f.name == "restrictions" && surplus > 0 {
			w += surplus
		}
		values[f.name] = safeSlice(track3, cursor, cursor+w)
		cursor += w
	}

	rec.Class = credential.Text(strings.TrimSpace(values["class"]))
	rec.Restrictions = credential.Text(strings.TrimSpace(values["restrictions"]))
	rec.Endorsements = credential.Text(strings.TrimSpace(values["endorsements"]))

	if zip := strings.TrimSpace(values["postal"]); zip != "" {
		rec.ZIP = zip
	}

	if sexCode := values["sex"]; sexCode != "" {
		sex, deviated, ok := credential.ParseSex(sexCode)
		if !ok {
			return credential.ErrParse("sex", "sex code outside 1/2/9/M/F", sexCode)
		}
		rec.Sex = sex
		if deviated {
			rec.Warn("non-standard literal sex code on track 3")
		}
	}

	if heightCode := strings.TrimSpace(values["height"]); heightCode != "" {
		h, err := physical.ParseMagstripeHeight(heightCode)
		if err != nil {
			return credential.ErrParse("height", err.Error(), heightCode)
		}
		rec.Height = h
	}

	if weightCode := strings.TrimSpace(values["weight"]); weightCode != "" {
		lbs, err := parseDigits(weightCode)
		if err != nil {
			return credential.ErrParse("weight", err.Error(), weightCode)
		}
		rec.Weight = credential.OptionalWeight{
			Value: physical.NewExactWeight(lbs, physical.Imperial),
			Set:   true,
		}
	}

	if hair := strings.TrimSpace(values["hair"]); hair != "" {
		rec.Hair = credential.OptionalEye{Value: hair, Set: true}
		if !credential.IsKnownHairColour(hair) {
			if strict {
				return credential.ErrUnknownCodeValue("hair", hair)
			}
			rec.Warn("unknown hair colour code " + hair)
		}
	}

	if eyes := strings.TrimSpace(values["eyes"]); eyes != "" {
		rec.Eyes = credential.OptionalEye{Value: eyes, Set: true}
		if !credential.IsKnownEyeColour(eyes) {
			if strict {
				return credential.ErrUnknownCodeValue("eyes", eyes)
			}
			rec.Warn("unknown eye colour code " + eyes)
		}
	}

	return nil
}

func parseDigits(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, credential.ErrParse("weight", "non-numeric digit", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
