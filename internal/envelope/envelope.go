// Package envelope parses the PDF417 AAMVA compliance header and subfile
// descriptors into a flat element map, before any field-level decoding
// happens.
package envelope

import (
	"bytes"
	"fmt"
	"strconv"

	"aamvadecode/internal/credential"
)

// southCarolinaIIN is the one jurisdiction IIN with a known off-by-one
// offset bug in its version 0/1 issuance.
const southCarolinaIIN = "636005"

// SubfileDescriptor is one 10-byte descriptor entry: a 2-byte type code
// ("DL" or "ID"), followed by a 4-digit offset and a 4-digit length.
type SubfileDescriptor struct {
	Type   string
	Offset int
	Length int
}

// Envelope is the parsed compliance header plus the flattened element map
// built from every subfile body.
type Envelope struct {
	IIN                 string
	Version             int
	JurisdictionVersion int
	Subfiles            []SubfileDescriptor
	Elements            map[string]string
	Warnings            []string
}

// Recognize reports whether data looks like a PDF417 AAMVA envelope: an
// '@' appears, optionally preceded by reader garbage.
func Recognize(data []byte) bool {
	return bytes.IndexByte(data, '@') >= 0
}

// Parse validates the compliance header and decodes every subfile into a
// flat element map.
func Parse(data []byte) (*Envelope, error) {
	at := bytes.IndexByte(data, '@')
	if at < 0 {
		return nil, credential.ErrRead("no @ compliance header found")
	}
	data = data[at:]

	if len(data) < 17 {
		return nil, credential.ErrRead("compliance header shorter than 17 bytes")
	}

	env := &Envelope{Elements: map[string]string{}}

	if data[1] != 0x0A {
		return nil, credential.ErrRead("compliance byte 1 is not 0x0A")
	}
	switch data[2] {
	case 0x1E:
	case 0x1C:
		env.warn("record separator is 0x1C, not the standard 0x1E")
	default:
		return nil, credential.ErrRead("compliance byte 2 is neither 0x1E nor 0x1C")
	}
	if data[3] != 0x0D {
		return nil, credential.ErrRead("compliance byte 3 is not 0x0D")
	}

	fileType := string(data[4:9])
	switch fileType {
	case "ANSI ":
	case "AAMVA":
		env.warn("file type is AAMVA, not the standard ANSI ")
	default:
		return nil, credential.ErrRead(fmt.Sprintf("unrecognized file type %q", fileType))
	}

	iin, err := digits(data, 9, 6)
	if err != nil {
		return nil, credential.ErrParse("IIN", "compliance header IIN is not all digits", err.Error())
	}
	env.IIN = iin

	version, err := decimalField(data, 15, 2)
	if err != nil {
		return nil, credential.ErrParse("version", "compliance header version is not numeric", err.Error())
	}
	if version < 0 || version > 63 {
		return nil, credential.ErrParse("version", "compliance header version out of range 0-63", strconv.Itoa(version))
	}
	env.Version = version

	var entryCount, descriptorStart int
	if version <= 1 {
		entryCount, err = decimalField(data, 17, 2)
		if err != nil {
			return nil, credential.ErrParse("entryCount", "entry count is not numeric", err.Error())
		}
		descriptorStart = 19
	} else {
		jv, err := decimalField(data, 17, 2)
		if err != nil {
			return nil, credential.ErrParse("jurisdictionVersion", "jurisdiction version is not numeric", err.Error())
		}
		env.JurisdictionVersion = jv
		entryCount, err = decimalField(data, 19, 2)
		if err != nil {
			return nil, credential.ErrParse("entryCount", "entry count is not numeric", err.Error())
		}
		descriptorStart = 21
	}

	descriptors := make([]SubfileDescriptor, 0, entryCount)
	cursor := descriptorStart
	for i := 0; i < entryCount; i++ {
		if cursor+10 > len(data) {
			return nil, credential.ErrRead("subfile descriptor table runs past end of input")
		}
		typ := string(data[cursor : cursor+2])
		offset, err := decimalField(data, cursor+2, 4)
		if err != nil {
			return nil, credential.ErrParse("subfileOffset", "subfile descriptor offset is not numeric", err.Error())
		}
		length, err := decimalField(data, cursor+6, 4)
		if err != nil {
			return nil, credential.ErrParse("subfileLength", "subfile descriptor length is not numeric", err.Error())
		}
		descriptors = append(descriptors, SubfileDescriptor{Type: typ, Offset: offset, Length: length})
		cursor += 10
	}

	if env.IIN == southCarolinaIIN && version <= 1 && len(descriptors) > 0 {
		descriptors[0].Offset++
		env.warn("South Carolina version 0/1 off-by-one subfile offset fixup applied")
	}
	env.Subfiles = descriptors

	for i, d := range descriptors {
		if d.Offset < 0 || d.Offset+d.Length > len(data) {
			return nil, credential.ErrRead(fmt.Sprintf("subfile %d body out of bounds", i))
		}
		body := data[d.Offset : d.Offset+d.Length]
		body = bytes.TrimRight(body, "\x0D")
		if i == 0 && len(body) >= 2 {
			body = body[2:]
		}
		for _, line := range bytes.Split(body, []byte{0x0A}) {
			if len(line) < 3 {
				continue
			}
			key := string(line[0:3])
			value := string(line[3:])
			if _, dup := env.Elements[key]; dup {
				env.warn(fmt.Sprintf("duplicate element %s overwritten", key))
			}
			env.Elements[key] = value
		}
	}

	return env, nil
}

func (e *Envelope) warn(msg string) {
	e.Warnings = append(e.Warnings, msg)
}

// digits returns data[start:start+n] if every byte is an ASCII digit.
func digits(data []byte, start, n int) (string, error) {
	if start+n > len(data) {
		return "", fmt.Errorf("field at offset %d/%d runs past end of input", start, n)
	}
	s := string(data[start : start+n])
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%q is not all digits", s)
		}
	}
	return s, nil
}

// decimalField parses data[start:start+n] as an ASCII-decimal integer.
func decimalField(data []byte, start, n int) (int, error) {
	s, err := digits(data, start, n)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}
