// Package dispatch selects and runs the right format decoder for a raw
// credential byte string, following a caller-supplied format preference
// list: match a preference list, run the first decoder that recognizes and
// decodes the input, falling back in order.
package dispatch

import (
	"aamvadecode/internal/credential"
)

// Format is a requested or recognized envelope format. FormatAny is a
// meta-value meaning "try MAGSTRIPE, then PDF417, then CAC".
type Format int

const (
	FormatAny Format = iota
	FormatMagstripe
	FormatPDF417
	FormatCAC
)

// Decoder is implemented by each format's top-level decode entry point.
type Decoder interface {
	// Recognize reports whether data looks like this decoder's format,
	// by prefix only — it does not validate the full envelope.
	Recognize(data []byte) bool

	// Decode parses data into a complete Record or returns a
	// *credential.DecodeError. strict controls whether an out-of-vocabulary
	// closed-set value (UnknownCodeValue) is fatal or merely a warning.
	Decode(data []byte, strict bool) (*credential.Record, error)
}

// Dispatcher holds one Decoder per format.
type Dispatcher struct {
	decoders map[Format]Decoder
}

// New creates a Dispatcher with the given per-format decoders.
func New(magstripe, pdf417, cac Decoder) *Dispatcher {
	return &Dispatcher{
		decoders: map[Format]Decoder{
			FormatMagstripe: magstripe,
			FormatPDF417:    pdf417,
			FormatCAC:       cac,
		},
	}
}

// fallbackOrder is the order ANY expands into: magstripe first (legacy
// choice per spec), then PDF417, then CAC.
var fallbackOrder = []Format{FormatMagstripe, FormatPDF417, FormatCAC}

// Dispatch attempts decoders in order per prefs. A bare FormatAny entry (or
// an empty prefs list) expands to the full magstripe/PDF417/CAC fallback
// order, and recognition or decode failure on any candidate in that order
// is swallowed, surfacing only a generic UnrecognizedFormat if every
// candidate is exhausted. A prefs list with no FormatAny entry treats its
// final entry as the preferred decoder: its recognition or decode failure
// is fatal and surfaced unchanged; earlier entries in such a list still
// fail silently and fall through.
func (d *Dispatcher) Dispatch(data []byte, prefs []Format, strict bool) (*credential.Record, error) {
	if len(data) == 0 {
		return nil, credential.ErrNoInput()
	}

	expanded, anyMode := d.expand(prefs)

	for i, f := range expanded {
		dec, ok := d.decoders[f]
		if !ok || dec == nil {
			continue
		}
		preferred := !anyMode && i == len(expanded)-1

		if !dec.Recognize(data) {
			if preferred {
				return nil, credential.ErrUnrecognizedFormat()
			}
			continue
		}

		rec, err := dec.Decode(data, strict)
		if err != nil {
			if preferred {
				return nil, err
			}
			continue
		}
		rec.Format = credentialFormat(f)
		return rec, nil
	}

	return nil, credential.ErrUnrecognizedFormat()
}

func credentialFormat(f Format) credential.Format {
	switch f {
	case FormatMagstripe:
		return credential.FormatMagstripe
	case FormatPDF417:
		return credential.FormatPDF417
	case FormatCAC:
		return credential.FormatCAC
	default:
		return credential.FormatMagstripe
	}
}

// expand turns a preference list into a concrete format sequence and
// reports whether ANY-mode fallback semantics apply (any failure swallowed
// until the whole sequence is exhausted).
func (d *Dispatcher) expand(prefs []Format) ([]Format, bool) {
	if len(prefs) == 0 {
		return fallbackOrder, true
	}
	for _, f := range prefs {
		if f == FormatAny {
			return fallbackOrder, true
		}
	}
	return prefs, false
}
