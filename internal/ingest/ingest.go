// Package ingest publishes and subscribes to raw credential byte strings
// over NATS: each scan (magstripe swipe, PDF417 barcode read, or CAC
// barcode read) travels as a small JSON envelope carrying a base64-encoded
// payload.
package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ScanEvent is the envelope a scanner (magstripe reader, PDF417 camera, CAC
// reader) publishes for each raw read. Payload is the raw credential bytes,
// base64-encoded so arbitrary binary survives JSON. ScanID is a
// publisher-assigned idempotency key: redelivery of the same physical scan
// (reader retry, at-least-once NATS delivery) carries the same ScanID, so a
// consumer logging decode events can dedupe on it rather than on content.
type ScanEvent struct {
	ScanID    string `json:"scan_id"`
	Source    string `json:"source"`
	Device    string `json:"device,omitempty"`
	Timestamp string `json:"timestamp"`
	Payload   string `json:"payload"`
}

// Decode base64-decodes the event's payload into raw credential bytes.
func (e *ScanEvent) Decode() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode scan event payload: %w", err)
	}
	return b, nil
}

// NewScanEvent builds a ScanEvent ready for publishing, assigning it a
// fresh ScanID.
func NewScanEvent(source, device string, payload []byte) ScanEvent {
	return ScanEvent{
		ScanID:    uuid.NewString(),
		Source:    source,
		Device:    device,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   base64.StdEncoding.EncodeToString(payload),
	}
}

// Config holds NATS connection settings.
type Config struct {
	URL     string
	Subject string
}

// DefaultConfig returns sane local defaults.
func DefaultConfig() Config {
	return Config{
		URL:     nats.DefaultURL,
		Subject: "aamvadecode.scans",
	}
}

// Conn wraps a NATS connection scoped to one subject.
type Conn struct {
	nc      *nats.Conn
	subject string
}

// Connect opens a NATS connection.
func Connect(cfg Config) (*Conn, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("aamvadecode"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Conn{nc: nc, subject: cfg.Subject}, nil
}

// Close drains and closes the connection.
func (c *Conn) Close() {
	_ = c.nc.Drain()
}

// Publish sends a ScanEvent.
func (c *Conn) Publish(e ScanEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal scan event: %w", err)
	}
	if err := c.nc.Publish(c.subject, b); err != nil {
		return fmt.Errorf("publish scan event: %w", err)
	}
	return nil
}

// Handler processes one decoded ScanEvent's raw payload, or the error
// encountered unwrapping it.
type Handler func(event ScanEvent, payload []byte, err error)

// Subscribe registers handler for every message on the configured subject.
// Malformed envelopes and undecodable base64 payloads are passed to
// handler with a nil payload and non-nil error instead of being dropped
// silently, so callers can log and count them.
func (c *Conn) Subscribe(handler Handler) (*nats.Subscription, error) {
	return c.nc.Subscribe(c.subject, func(msg *nats.Msg) {
		var event ScanEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			handler(ScanEvent{}, nil, fmt.Errorf("unmarshal scan event: %w", err))
			return
		}
		payload, err := event.Decode()
		if err != nil {
			handler(event, nil, err)
			return
		}
		handler(event, payload, nil)
	})
}
