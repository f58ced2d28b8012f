// Command decodesvc subscribes to raw credential reads over NATS, decodes
// each one, logs the decode event (successful or failed) to ClickHouse, and
// optionally serves the review API over the same storage handles.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"aamvadecode/internal/cac"
	"aamvadecode/internal/dispatch"
	"aamvadecode/internal/dlid"
	"aamvadecode/internal/ingest"
	"aamvadecode/internal/magstripe"
	"aamvadecode/internal/reviewapi"
	"aamvadecode/internal/storage"
)

func main() {
	natsURL := flag.String("nats-url", "nats://localhost:4222", "NATS server URL")
	subject := flag.String("subject", "aamvadecode.scans", "NATS subject to subscribe to")
	strict := flag.Bool("strict", false, "Treat unknown code values as fatal")

	chHost := flag.String("ch-host", "localhost", "ClickHouse host")
	chPort := flag.Int("ch-port", 9000, "ClickHouse port")
	chDB := flag.String("ch-db", "aamvadecode", "ClickHouse database")
	chUser := flag.String("ch-user", "default", "ClickHouse user")
	chPassword := flag.String("ch-password", "", "ClickHouse password")

	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgDB := flag.String("pg-db", "aamvadecode_review", "PostgreSQL database")
	pgUser := flag.String("pg-user", "aamvadecode", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "aamvadecode", "PostgreSQL password")

	serveAPI := flag.Bool("serve-api", false, "Also serve the review API")
	apiPort := flag.Int("api-port", 8082, "Review API port")
	jurisdictionDB := flag.String("jurisdiction-db", "", "Path to the read-only jurisdiction directory (SQLite); empty disables it")
	flag.Parse()

	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Config{
		ClickHouse:       storage.ClickHouseConfig{Host: *chHost, Port: *chPort, Database: *chDB, User: *chUser, Password: *chPassword},
		Postgres:         storage.PostgresConfig{Host: *pgHost, Port: *pgPort, Database: *pgDB, User: *pgUser, Password: *pgPassword},
		JurisdictionPath: *jurisdictionDB,
	})
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	if err := db.CreateSchemas(ctx); err != nil {
		log.Fatalf("create schemas: %v", err)
	}

	conn, err := ingest.Connect(ingest.Config{URL: *natsURL, Subject: *subject})
	if err != nil {
		log.Fatalf("connect nats: %v", err)
	}
	defer conn.Close()

	dispatcher := dispatch.New(magstripe.Decoder{}, dlid.Decoder{}, cac.Decoder{})

	var nextID uint64
	if maxID, err := db.CH.MaxID(ctx); err == nil {
		nextID = maxID
	}

	sub, err := conn.Subscribe(func(event ingest.ScanEvent, payload []byte, unwrapErr error) {
		handleScan(ctx, db, dispatcher, event, payload, unwrapErr, *strict, &nextID)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	log.Printf("decodesvc listening on subject %q", *subject)

	if *serveAPI {
		srv := reviewapi.New(db.PG, db.CH, db.JD, reviewapi.Config{Port: *apiPort})
		go func() {
			if err := srv.Run(); err != nil {
				log.Printf("review api stopped: %v", err)
			}
		}()
	}

	waitForShutdown()
}

func handleScan(ctx context.Context, db *storage.DB, dispatcher *dispatch.Dispatcher, event ingest.ScanEvent, payload []byte, unwrapErr error, strict bool, nextID *uint64) {
	id := atomic.AddUint64(nextID, 1)
	now := time.Now().UTC()
	scanID := parseScanID(event.ScanID)

	if unwrapErr != nil {
		logEvent(ctx, db, storage.DecodeEvent{
			ID: id, ScanID: scanID, DecodedAt: now, Format: "UNKNOWN", State: "ERROR",
			ErrorKind: "Ingest", ErrorReason: unwrapErr.Error(), CreatedAt: now,
		})
		return
	}

	rec, err := dispatcher.Dispatch(payload, nil, strict)
	if err != nil {
		logEvent(ctx, db, storage.DecodeEvent{
			ID: id, ScanID: scanID, DecodedAt: now, Format: "UNKNOWN", State: "ERROR",
			ErrorKind: "Decode", ErrorReason: err.Error(), CreatedAt: now,
		})
		return
	}

	recJSON, err := storage.MarshalRecord(rec)
	if err != nil {
		log.Printf("marshal record %d: %v", id, err)
	}

	logEvent(ctx, db, storage.DecodeEvent{
		ID:           id,
		ScanID:       scanID,
		DecodedAt:    now,
		Format:       rec.Format.String(),
		Version:      int32(rec.Version),
		CardType:     rec.CardType.String(),
		IIN:          rec.IIN,
		State:        rec.State,
		Standards:    rec.Standards(),
		Strict:       strict,
		WarningCount: uint32(len(rec.Warnings)),
		RecordJSON:   recJSON,
		CreatedAt:    now,
	})
}

func parseScanID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func logEvent(ctx context.Context, db *storage.DB, e storage.DecodeEvent) {
	if err := db.CH.Insert(ctx, e); err != nil {
		log.Printf("insert decode event %d: %v", e.ID, err)
	}
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	fmt.Printf("received %s, shutting down\n", s)
}
