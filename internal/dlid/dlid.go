// Package dlid decodes a PDF417 AAMVA element map into a credential.Record.
// Rather than nine near-duplicate per-version procedures, one ordered table
// of (code -> handler) entries is walked once per decode, and version-
// specific required/optional status is checked in a single post-pass
// against the version matrix.
package dlid

import (
	"errors"
	"strings"

	"aamvadecode/internal/codec"
	"aamvadecode/internal/credential"
	"aamvadecode/internal/envelope"
	"aamvadecode/internal/physical"
)

var errNotNumeric = errors.New("not numeric")

// Decoder implements dispatch.Decoder for the PDF417 AAMVA format: envelope
// parsing followed by field decoding.
type Decoder struct{}

// Recognize reports whether data looks like a PDF417 AAMVA envelope.
func (Decoder) Recognize(data []byte) bool {
	return envelope.Recognize(data)
}

// Decode parses the compliance header and every field element into a
// complete Record. strict controls whether an out-of-vocabulary closed-set
// value (UnknownCodeValue) is fatal or merely a warning.
func (Decoder) Decode(data []byte, strict bool) (*credential.Record, error) {
	env, err := envelope.Parse(data)
	if err != nil {
		return nil, err
	}
	rec, err := Decode(env, strict)
	if err != nil {
		return nil, err
	}
	for _, w := range env.Warnings {
		rec.Warn(w)
	}
	return rec, nil
}

// ctx carries cross-field state the reduction loop needs: which canonical
// fields have already been filled by their primary element, so a
// jurisdictional fallback code only acts when its primary is absent.
type ctx struct {
	rec *credential.Record

	jurisdiction codec.Jurisdiction

	heightSet     bool
	hairSet       bool
	weightExact   bool
	weightRange   bool
	givenNamesSet bool
	unitsSet      bool
	strict        bool
}

// setUnits records the record's unit system from the first unit-bearing
// element seen (height wins over weight if both appear, since height is
// processed first in the handler table).
func (c *ctx) setUnits(u physical.Unit) {
	if c.unitsSet {
		return
	}
	c.rec.Units = u
	c.unitsSet = true
}

// handler applies one element code's value to the record under
// construction. It returns an error for a fatal parse failure, and for an
// unknown code value in strict mode; outside strict mode unknown code values
// are recorded as warnings directly.
type handler struct {
	code  string
	apply func(c *ctx, value string) error
}

// isIndianaCode reports whether code is one of the Indiana v3 jurisdictional
// extensions (ZIJ/ZIL/ZIK), which only apply to version 3 credentials.
func isIndianaCode(code string) bool {
	return code == "ZIJ" || code == "ZIL" || code == "ZIK"
}

// handlers is walked in this fixed order on every decode. Order matters
// for the Indiana v3 fallback codes (ZIJ/ZIL/ZIK), which must run after
// their primary counterparts (DAU/DAZ/DAW-DAX-DCE) so they can see whether
// the primary already set the corresponding field.
var handlers = []handler{
	{"DAA", applyCombinedName},
	{"DAB", applyLast},
	{"DAC", applyFirst},
	{"DAD", applyMiddle},
	{"DCS", applyLast},
	{"DCT", applyCombinedGivenNames},
	{"DAE", applySuffix},
	{"DAF", applyPrefix},
	{"DCU", applySuffix},
	{"DDE", applyLastTruncation},
	{"DDF", applyFirstTruncation},
	{"DDG", applyMiddleTruncation},
	{"DAG", applyAddress},
	{"DAH", applyAddress2},
	{"DAI", applyCity},
	{"DAJ", applyState},
	{"DAK", applyZIP},
	{"DCG", applyCountry},
	{"DAQ", applyLicenseNumber},
	{"DCF", applyDocument},
	{"DBA", applyExpiry},
	{"DBB", applyDOB},
	{"DBD", applyIssued},
	{"DBC", applySex},
	{"DAU", applyHeight},
	{"DAV", applyHeightMetric},
	{"DAW", applyWeightImperial},
	{"DAX", applyWeightMetric},
	{"DCE", applyWeightRange},
	{"DAY", applyEyes},
	{"DAZ", applyHair},
	{"DCA", applyClass},
	{"DCB", applyRestrictions},
	{"DCD", applyEndorsements},
	{"DDH", applyUnder18},
	{"DDI", applyUnder19},
	{"DDJ", applyUnder21},
	{"ZIJ", applyIndianaHeight},
	{"ZIL", applyIndianaHair},
	{"ZIK", applyIndianaWeight},
}

// Decode applies the field table against env's element map and returns a
// complete Record, or the first fatal error encountered. strict controls
// whether an out-of-vocabulary closed-set value (UnknownCodeValue) is fatal
// or merely a warning.
func Decode(env *envelope.Envelope, strict bool) (*credential.Record, error) {
	rec := &credential.Record{
		Version:  env.Version,
		CardType: credential.DriverLicense,
	}

	c := &ctx{rec: rec, jurisdiction: codec.JurisdictionFor(env.Elements["DCG"]), strict: strict}

	for _, h := range handlers {
		if env.Version != 3 && isIndianaCode(h.code) {
			continue
		}
		value, ok := env.Elements[h.code]
		if !ok {
			continue
		}
		if err := h.apply(c, value); err != nil {
			return nil, err
		}
	}

	if err := checkRequired(env, rec); err != nil {
		return nil, err
	}

	if !c.unitsSet {
		rec.Warn("no unit-bearing element present; defaulting to IMPERIAL")
	}

	if rec.Class.Value == "" && !rec.Class.Set {
		rec.CardType = credential.IdentityCard
	}

	return rec, nil
}

func checkRequired(env *envelope.Envelope, rec *credential.Record) error {
	for code, r := range map[string]bool{
		"DAI": true, "DAJ": true, "DAK": true,
		"DAQ": true, "DBA": true, "DBB": true, "DBC": true, "DBD": true,
	} {
		if r {
			if _, ok := env.Elements[code]; !ok {
				return credential.ErrMissingRequiredField(code, env.Version)
			}
		}
	}

	switch {
	case env.Version == 1:
		if _, ok := env.Elements["DAA"]; !ok {
			return credential.ErrMissingRequiredField("DAA", env.Version)
		}
	case env.Version == 3:
		if env.Elements["DCS"] == "" {
			return credential.ErrMissingRequiredField("DCS", env.Version)
		}
		if env.Elements["DCT"] == "" {
			return credential.ErrMissingRequiredField("DCT", env.Version)
		}
	default: // v4, v5, v6, v8, v9
		if env.Elements["DCS"] == "" {
			return credential.ErrMissingRequiredField("DCS", env.Version)
		}
		if env.Elements["DAC"] == "" && env.Elements["DAB"] == "" {
			return credential.ErrMissingRequiredField("DAC/DAB", env.Version)
		}
	}

	if env.Version != 1 {
		if _, ok := env.Elements["DCG"]; !ok {
			return credential.ErrMissingRequiredField("DCG", env.Version)
		}
		if _, ok := env.Elements["DCF"]; !ok {
			return credential.ErrMissingRequiredField("DCF", env.Version)
		}
		if _, hasDAU := env.Elements["DAU"]; !hasDAU {
			_, hasZIJ := env.Elements["ZIJ"]
			if !(env.Version == 3 && hasZIJ) {
				return credential.ErrMissingRequiredField("DAU", env.Version)
			}
		}
		// ZIJ only ever sets height for v3 (see isIndianaCode); other
		// versions hit the DAU check above unconditionally.
		if _, ok := env.Elements["DAY"]; !ok {
			return credential.ErrMissingRequiredField("DAY", env.Version)
		}
	}

	if env.Version == 4 || env.Version == 5 {
		if _, ok := env.Elements["DAZ"]; !ok {
			return credential.ErrMissingRequiredField("DAZ", env.Version)
		}
	}

	if env.Version >= 6 {
		for _, code := range []string{"DDE", "DDF", "DDG"} {
			if _, ok := env.Elements[code]; !ok {
				return credential.ErrMissingRequiredField(code, env.Version)
			}
		}
	}

	return nil
}

// --- field handlers ---

func applyCombinedName(c *ctx, value string) error {
	parts := strings.Split(value, ",")
	if len(parts) > 0 {
		c.rec.Last = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		c.rec.First = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		c.rec.Middle = credential.Text(strings.TrimSpace(parts[2]))
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		c.rec.Suffix = credential.Text(strings.TrimSpace(parts[3]))
	}
	return nil
}

func applyLast(c *ctx, value string) error {
	c.rec.Last = value
	return nil
}

func applyFirst(c *ctx, value string) error {
	c.rec.First = value
	return nil
}

func applyMiddle(c *ctx, value string) error {
	c.rec.Middle = credential.Text(value)
	return nil
}

func applyCombinedGivenNames(c *ctx, value string) error {
	if c.givenNamesSet {
		return nil
	}
	var first, middle string
	if idx := strings.Index(value, ","); idx >= 0 {
		first = value[:idx]
		middle = value[idx+1:]
	} else {
		fields := strings.SplitN(value, " ", 2)
		first = fields[0]
		if len(fields) > 1 {
			middle = fields[1]
		}
	}
	c.rec.First = strings.TrimSpace(first)
	if strings.TrimSpace(middle) != "" {
		c.rec.Middle = credential.Text(strings.TrimSpace(middle))
	}
	c.givenNamesSet = true
	return nil
}

func applySuffix(c *ctx, value string) error {
	c.rec.Suffix = credential.Text(value)
	return nil
}

func applyPrefix(c *ctx, value string) error {
	c.rec.Prefix = credential.Text(value)
	return nil
}

func applyLastTruncation(c *ctx, value string) error {
	if value == "T" {
		c.rec.Last += "…"
	}
	return nil
}

func applyFirstTruncation(c *ctx, value string) error {
	if value == "T" {
		c.rec.First += "…"
	}
	return nil
}

func applyMiddleTruncation(c *ctx, value string) error {
	if value == "T" && c.rec.Middle.Set {
		c.rec.Middle.Value += "…"
	}
	return nil
}

func applyAddress(c *ctx, value string) error {
	c.rec.Address = value
	return nil
}

func applyAddress2(c *ctx, value string) error {
	c.rec.Address2 = credential.Text(value)
	return nil
}

func applyCity(c *ctx, value string) error {
	c.rec.City = value
	return nil
}

func applyState(c *ctx, value string) error {
	c.rec.State = value
	return nil
}

func applyZIP(c *ctx, value string) error {
	c.rec.ZIP = value
	return nil
}

func applyCountry(c *ctx, value string) error {
	c.rec.Country = credential.Text(value)
	c.jurisdiction = codec.JurisdictionFor(value)
	return nil
}

func applyLicenseNumber(c *ctx, value string) error {
	c.rec.LicenseNumber = value
	return nil
}

func applyDocument(c *ctx, value string) error {
	c.rec.Document = credential.Text(value)
	return nil
}

func applyExpiry(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DBA", err.Error(), value)
	}
	c.rec.Expiry = t
	return nil
}

func applyDOB(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DBB", err.Error(), value)
	}
	c.rec.DOB = t
	return nil
}

func applyIssued(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DBD", err.Error(), value)
	}
	c.rec.Issued = credential.Date(t)
	return nil
}

func applySex(c *ctx, value string) error {
	sex, deviated, ok := credential.ParseSex(value)
	if !ok {
		return credential.ErrParse("DBC", "sex code outside 1/2/9/M/F", value)
	}
	c.rec.Sex = sex
	if deviated {
		c.rec.Warn("non-standard literal sex code " + value)
	}
	return nil
}

func applyHeight(c *ctx, value string) error {
	h, err := physical.ParseHeight(value)
	if err != nil {
		return credential.ErrParse("DAU", err.Error(), value)
	}
	c.rec.Height = h
	c.heightSet = true
	c.setUnits(h.Unit)
	return nil
}

func applyHeightMetric(c *ctx, value string) error {
	if c.heightSet {
		return nil
	}
	h, err := physical.ParseHeight(value)
	if err != nil {
		return credential.ErrParse("DAV", err.Error(), value)
	}
	c.rec.Height = h
	c.heightSet = true
	c.setUnits(h.Unit)
	return nil
}

func applyWeightImperial(c *ctx, value string) error {
	n, err := parseUint(value)
	if err != nil {
		return credential.ErrParse("DAW", "weight is not numeric", value)
	}
	c.rec.Weight = credential.OptionalWeight{Value: physical.NewExactWeight(n, physical.Imperial), Set: true}
	c.weightExact = true
	c.setUnits(physical.Imperial)
	return nil
}

func applyWeightMetric(c *ctx, value string) error {
	if c.weightExact {
		return nil
	}
	n, err := parseUint(value)
	if err != nil {
		return credential.ErrParse("DAX", "weight is not numeric", value)
	}
	c.rec.Weight = credential.OptionalWeight{Value: physical.NewExactWeight(n, physical.Metric), Set: true}
	c.weightExact = true
	c.setUnits(physical.Metric)
	return nil
}

func applyWeightRange(c *ctx, value string) error {
	if c.weightExact {
		return nil
	}
	idx, err := parseUint(value)
	if err != nil {
		return credential.ErrParse("DCE", "weight range index is not numeric", value)
	}
	w, err := physical.NewRangeWeight(idx, c.rec.Units)
	if err != nil {
		return credential.ErrParse("DCE", err.Error(), value)
	}
	c.rec.Weight = credential.OptionalWeight{Value: w, Set: true}
	c.weightRange = true
	return nil
}

func applyEyes(c *ctx, value string) error {
	c.rec.Eyes = credential.OptionalEye{Value: value, Set: true}
	if !credential.IsKnownEyeColour(value) {
		if c.strict {
			return credential.ErrUnknownCodeValue("DAY", value)
		}
		c.rec.Warn("unknown eye colour code " + value)
	}
	return nil
}

func applyHair(c *ctx, value string) error {
	c.rec.Hair = credential.OptionalEye{Value: value, Set: true}
	c.hairSet = true
	if !credential.IsKnownHairColour(value) {
		if c.strict {
			return credential.ErrUnknownCodeValue("DAZ", value)
		}
		c.rec.Warn("unknown hair colour code " + value)
	}
	return nil
}

func applyClass(c *ctx, value string) error {
	c.rec.Class = credential.Text(value)
	return nil
}

func applyRestrictions(c *ctx, value string) error {
	c.rec.Restrictions = credential.Text(value)
	return nil
}

func applyEndorsements(c *ctx, value string) error {
	c.rec.Endorsements = credential.Text(value)
	return nil
}

func applyUnder18(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DDH", err.Error(), value)
	}
	c.rec.Arrival.Under18Until = credential.Date(t)
	return nil
}

func applyUnder19(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DDI", err.Error(), value)
	}
	c.rec.Arrival.Under19Until = credential.Date(t)
	return nil
}

func applyUnder21(c *ctx, value string) error {
	t, err := codec.ParseAAMVADate(value, c.jurisdiction)
	if err != nil {
		return credential.ErrParse("DDJ", err.Error(), value)
	}
	c.rec.Arrival.Under21Until = credential.Date(t)
	return nil
}

// applyIndianaHeight parses the Indiana-specific ZIJ fallback ("FF-II")
// used when DAU is absent.
func applyIndianaHeight(c *ctx, value string) error {
	if c.heightSet {
		return nil
	}
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return credential.ErrParse("ZIJ", "expected FF-II form", value)
	}
	feet, err1 := parseUint(parts[0])
	inches, err2 := parseUint(parts[1])
	if err1 != nil || err2 != nil {
		return credential.ErrParse("ZIJ", "feet/inches are not numeric", value)
	}
	c.rec.Height = physical.Height{Value: feet*12 + inches, Unit: physical.Imperial}
	c.heightSet = true
	c.setUnits(physical.Imperial)
	return nil
}

// applyIndianaHair fills hair from ZIL when DAZ is absent.
func applyIndianaHair(c *ctx, value string) error {
	if c.hairSet {
		return nil
	}
	c.rec.Hair = credential.OptionalEye{Value: value, Set: true}
	if !credential.IsKnownHairColour(value) {
		if c.strict {
			return credential.ErrUnknownCodeValue("ZIL", value)
		}
		c.rec.Warn("unknown hair colour code " + value)
	}
	return nil
}

// applyIndianaWeight fills an exact imperial weight from ZIK when neither
// DAW, DAX, nor DCE has set one.
func applyIndianaWeight(c *ctx, value string) error {
	if c.weightExact || c.weightRange {
		return nil
	}
	n, err := parseUint(value)
	if err != nil {
		return credential.ErrParse("ZIK", "weight is not numeric", value)
	}
	c.rec.Weight = credential.OptionalWeight{Value: physical.NewExactWeight(n, physical.Imperial), Set: true}
	c.weightExact = true
	c.setUnits(physical.Imperial)
	return nil
}

func parseUint(s string) (int, error) {
	if s == "" {
		return 0, errNotNumeric
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errNotNumeric
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, nil
}
