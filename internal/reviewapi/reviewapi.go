// Package reviewapi provides REST API access to flagged decode events and
// jurisdiction overrides over a chi router.
package reviewapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"aamvadecode/internal/storage"
)

// Server serves the review API over a PostgreSQL-backed audit trail, with an
// optional read-only jurisdiction directory for reference lookups.
type Server struct {
	pg          *storage.PostgresDB
	ch          *storage.ClickHouseDB
	jd          *storage.JurisdictionDB
	port        int
	authEnabled bool
	apiKeys     map[string]bool
}

// Config holds configuration for the review API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string
}

// New creates a new review API server. jd may be nil, in which case
// jurisdiction lookups without an override return 404 rather than falling
// back to the reference directory.
func New(pg *storage.PostgresDB, ch *storage.ClickHouseDB, jd *storage.JurisdictionDB, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	return &Server{pg: pg, ch: ch, jd: jd, port: cfg.Port, authEnabled: cfg.AuthEnabled, apiKeys: keys}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := ":" + strconv.Itoa(s.port)
	log.Printf("Review API starting at http://localhost%s", addr)
	if s.authEnabled {
		log.Printf("Authentication: ENABLED (API key required)")
	} else {
		log.Printf("Authentication: DISABLED (open access)")
	}
	return http.ListenAndServe(addr, s.Router())
}

// Router returns the configured chi router for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", s.handleListEvents)
		r.Get("/events/{event_id}/flag", s.handleGetFlag)
		r.Post("/events/{event_id}/flag", s.handleSetFlag)
		r.Get("/jurisdictions/{code}", s.handleGetJurisdictionOverride)
		r.Put("/jurisdictions/{code}", s.handlePutJurisdictionOverride)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := storage.EventQueryParams{
		Format:     strings.ToUpper(q.Get("format")),
		CardType:   strings.ToUpper(q.Get("card_type")),
		State:      strings.ToUpper(q.Get("state")),
		OnlyErrors: q.Get("only_errors") == "true",
	}
	if lim, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = lim
	}

	events, err := s.ch.Query(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event_id must be numeric")
		return
	}
	flag, err := s.pg.GetReviewFlag(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if flag == nil {
		writeError(w, http.StatusNotFound, "no flag for that event")
		return
	}
	writeJSON(w, http.StatusOK, flag)
}

// setFlagRequest is the request body for flagging a decode event.
type setFlagRequest struct {
	Flagged      bool                   `json:"flagged"`
	Annotation   string                 `json:"annotation,omitempty"`
	ExpectedJSON map[string]interface{} `json:"expected,omitempty"`
}

func (s *Server) handleSetFlag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "event_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event_id must be numeric")
		return
	}

	var req setFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	now := time.Now()
	err = s.pg.UpsertReviewFlag(r.Context(), storage.ReviewFlag{
		EventID:      id,
		Flagged:      req.Flagged,
		Annotation:   req.Annotation,
		ExpectedJSON: req.ExpectedJSON,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleGetJurisdictionOverride returns a reviewer-entered override when one
// exists, falling back to the read-only reference directory entry for that
// code so a caller without an override still gets the directory's display
// name and date ordering rather than an outright 404.
func (s *Server) handleGetJurisdictionOverride(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	j, err := s.pg.GetJurisdictionOverride(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if j != nil {
		writeJSON(w, http.StatusOK, j)
		return
	}
	if s.jd == nil {
		writeError(w, http.StatusNotFound, "no override for that jurisdiction code")
		return
	}
	ref, err := s.jd.ByCode(code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ref == nil {
		writeError(w, http.StatusNotFound, "no override or directory entry for that jurisdiction code")
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handlePutJurisdictionOverride(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))

	var override storage.JurisdictionOverride
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	override.Code = code
	override.UpdatedAt = time.Now()

	if err := s.pg.UpsertJurisdictionOverride(r.Context(), override); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
