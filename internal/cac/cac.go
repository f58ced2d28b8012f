// Package cac decodes a DoD Common Access Card barcode into a
// credential.Record. Unlike magstripe and PDF417, CAC carries no envelope or
// element map at all: every field sits at a fixed byte offset, so decoding
// is a straight slice-and-convert pass instead of a handler table.
package cac

import (
	"strings"

	"aamvadecode/internal/codec"
	"aamvadecode/internal/credential"
)

// minLength is the shortest valid CAC byte string: version byte through the
// card-instance byte (offset 87), version 1 layout.
const minLength = 88

// Decoder decodes DoD CAC barcodes. It implements dispatch.Decoder.
type Decoder struct{}

// Recognize reports whether data looks like a CAC barcode: a leading '1' or
// 'N' version byte followed by at least 87 more bytes.
func (Decoder) Recognize(data []byte) bool {
	if len(data) < minLength {
		return false
	}
	return data[0] == '1' || data[0] == 'N'
}

// Decode parses the fixed-offset CAC byte layout into a Record. strict
// controls whether an out-of-vocabulary person-category, service-branch, or
// entitlement-condition code is fatal or merely a warning.
func (Decoder) Decode(data []byte, strict bool) (*credential.Record, error) {
	if len(data) == 0 {
		return nil, credential.ErrNoInput()
	}

	versionByte := data[0]
	if versionByte != '1' && versionByte != 'N' {
		return nil, credential.ErrRead("CAC version byte must be '1' or 'N'")
	}
	hasMiddleInitial := versionByte == 'N'

	want := minLength
	if hasMiddleInitial {
		want = 89
	}
	if len(data) < want {
		return nil, credential.ErrRead("CAC barcode shorter than its version layout requires")
	}
	s := string(data)

	pdi := s[1:7]
	pdiType := s[7:8]
	edipiRaw := s[8:15]
	first := strings.TrimRight(s[15:35], " ")
	last := strings.TrimRight(s[35:61], " ")
	dobField := s[61:65]
	personCategory := s[65:66]
	serviceBranch := s[66:67]
	entitlement := s[67:69]
	rank := strings.TrimRight(s[69:75], " ")
	payPlan := s[75:77]
	payGrade := s[77:79]
	issueField := s[79:83]
	expiryField := s[83:87]
	cardInstance := s[87:88]

	edipi, err := decodeEDIPI(edipiRaw)
	if err != nil {
		return nil, err
	}

	dob, err := codec.JulianToDate(dobField)
	if err != nil {
		return nil, credential.ErrParse("DOB", err.Error(), dobField)
	}
	issued, err := codec.JulianToDate(issueField)
	if err != nil {
		return nil, credential.ErrParse("ISSUE", err.Error(), issueField)
	}
	expiry, err := codec.JulianToDate(expiryField)
	if err != nil {
		return nil, credential.ErrParse("EXPIRY", err.Error(), expiryField)
	}

	rec := &credential.Record{
		First:    first,
		Last:     last,
		DOB:      dob,
		Issued:   credential.Date(issued),
		Expiry:   expiry,
		CardType: credential.MilitaryID,

		PDI:                  credential.Text(pdi),
		PDIType:              credential.Text(pdiType),
		EDIPI:                credential.Text(edipi),
		PersonCategory:       credential.Text(personCategory),
		ServiceBranch:        credential.Text(serviceBranch),
		EntitlementCondition: credential.Text(entitlement),
		Rank:                 credential.Text(rank),
		PayPlan:              credential.Text(payPlan),
		PayGrade:             credential.Text(payGrade),
		CardInstance:         credential.Text(cardInstance),
	}

	if hasMiddleInitial {
		rec.Middle = credential.Text(s[88:89])
	}

	if !isKnownPersonCategory(personCategory) {
		if strict {
			return nil, credential.ErrUnknownCodeValue("person-category", personCategory)
		}
		rec.Warn("unknown person category code " + personCategory)
	}
	if !isKnownServiceBranch(serviceBranch) {
		if strict {
			return nil, credential.ErrUnknownCodeValue("service-branch", serviceBranch)
		}
		rec.Warn("unknown service branch code " + serviceBranch)
	}
	if !isKnownEntitlement(entitlement) {
		if strict {
			return nil, credential.ErrUnknownCodeValue("entitlement", entitlement)
		}
		rec.Warn("unknown entitlement condition code " + entitlement)
	}

	return rec, nil
}

// decodeEDIPI decodes the 7-char base-32-hex EDI person identifier and
// verifies it resolves to exactly 10 decimal digits, per the DoD EDIPI
// format.
func decodeEDIPI(raw string) (string, error) {
	n, err := codec.ToInt(raw)
	if err != nil {
		return "", credential.ErrParse("EDIPI", err.Error(), raw)
	}
	if n < 0 || n >= 10_000_000_000 {
		return "", credential.ErrParse("EDIPI", "does not decode to exactly 10 decimal digits", raw)
	}
	digits := make([]byte, 10)
	rem := n
	for i := 9; i >= 0; i-- {
		digits[i] = byte('0' + rem%10)
		rem /= 10
	}
	return string(digits), nil
}

// personCategories is the known set of DoD person-designator codes.
var personCategories = map[string]bool{
	"A": true, "B": true, "C": true, "D": true, "E": true,
	"F": true, "M": true, "N": true, "R": true, "S": true, "V": true,
}

func isKnownPersonCategory(code string) bool {
	return personCategories[code]
}

// serviceBranches is the known set of DoD service-branch codes.
var serviceBranches = map[string]bool{
	"A": true, // Army
	"C": true, // Coast Guard
	"D": true, // DoD / civilian
	"F": true, // Air Force
	"M": true, // Marine Corps
	"N": true, // Navy
	"1": true, // NOAA
	"6": true, // Public Health Service
}

func isKnownServiceBranch(code string) bool {
	return serviceBranches[code]
}

// entitlements is the known set of DoD entitlement-condition codes.
var entitlements = map[string]bool{
	"00": true, "01": true, "02": true, "03": true, "04": true,
	"05": true, "06": true, "07": true, "08": true, "09": true,
}

func isKnownEntitlement(code string) bool {
	return entitlements[code]
}
