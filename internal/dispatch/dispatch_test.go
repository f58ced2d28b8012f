package dispatch

import (
	"testing"

	"aamvadecode/internal/credential"
)

type fakeDecoder struct {
	recognizes bool
	err        error
	rec        *credential.Record
}

func (f *fakeDecoder) Recognize(data []byte) bool { return f.recognizes }
func (f *fakeDecoder) Decode(data []byte, strict bool) (*credential.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

func TestDispatchNoInput(t *testing.T) {
	d := New(&fakeDecoder{}, &fakeDecoder{}, &fakeDecoder{})
	_, err := d.Dispatch(nil, nil, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.NoInput {
		t.Fatalf("want NoInput, got %v", err)
	}
}

func TestDispatchAnyFallsThroughToMatchingFormat(t *testing.T) {
	want := &credential.Record{First: "JANE"}
	d := New(
		&fakeDecoder{recognizes: false},
		&fakeDecoder{recognizes: true, rec: want},
		&fakeDecoder{recognizes: false},
	)
	got, err := d.Dispatch([]byte("@whatever"), []Format{FormatAny}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.First != "JANE" || got.Format != credential.FormatPDF417 {
		t.Errorf("got %+v", got)
	}
}

func TestDispatchAnySwallowsIndividualFailures(t *testing.T) {
	d := New(
		&fakeDecoder{recognizes: true, err: credential.ErrRead("bad sentinel")},
		&fakeDecoder{recognizes: false},
		&fakeDecoder{recognizes: true, err: credential.ErrParse("X", "bad", "v")},
	)
	_, err := d.Dispatch([]byte("whatever"), nil, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.UnrecognizedFormat {
		t.Fatalf("want generic UnrecognizedFormat when all candidates fail, got %v", err)
	}
}

func TestDispatchSinglePreferredFormatSurfacesRecognitionFailure(t *testing.T) {
	d := New(&fakeDecoder{recognizes: false}, &fakeDecoder{}, &fakeDecoder{})
	_, err := d.Dispatch([]byte("whatever"), []Format{FormatMagstripe}, false)
	de, ok := err.(*credential.DecodeError)
	if !ok || de.Kind != credential.UnrecognizedFormat {
		t.Fatalf("want UnrecognizedFormat for unmatched preferred decoder, got %v", err)
	}
}

func TestDispatchSinglePreferredFormatSurfacesDecodeError(t *testing.T) {
	wantErr := credential.ErrParse("DAU", "bad height", "999xx")
	d := New(&fakeDecoder{recognizes: true, err: wantErr}, &fakeDecoder{}, &fakeDecoder{})
	_, err := d.Dispatch([]byte("whatever"), []Format{FormatMagstripe}, false)
	if err != wantErr {
		t.Fatalf("want underlying error surfaced unchanged, got %v", err)
	}
}
