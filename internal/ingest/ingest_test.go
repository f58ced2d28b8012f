package ingest

import (
	"bytes"
	"testing"
)

func TestNewScanEventRoundTrip(t *testing.T) {
	raw := []byte("%MNABCD1234567890^DOE$JOHN^^")
	event := NewScanEvent("scanner-1", "magstripe-reader", raw)

	if event.Source != "scanner-1" {
		t.Errorf("Source = %q, want scanner-1", event.Source)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp not set")
	}
	if event.ScanID == "" {
		t.Error("ScanID not set")
	}

	other := NewScanEvent("scanner-1", "magstripe-reader", raw)
	if other.ScanID == event.ScanID {
		t.Error("expected distinct ScanIDs across events")
	}

	got, err := event.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decode() = %q, want %q", got, raw)
	}
}

func TestScanEventDecodeRejectsBadBase64(t *testing.T) {
	event := ScanEvent{Payload: "not valid base64!!!"}
	if _, err := event.Decode(); err == nil {
		t.Error("expected error decoding malformed base64 payload")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Subject == "" {
		t.Error("expected a non-empty default subject")
	}
	if cfg.URL == "" {
		t.Error("expected a non-empty default URL")
	}
}
