// Package api exposes the read-only session report API. Sessions are
// written by the ingestion pipeline; this surface only lists and fetches
// finalized observations.
package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/podium-data/delivery.report/internal/httputil"
	"github.com/podium-data/delivery.report/internal/version"
	"github.com/podium-data/delivery.report/internal/vision/storage/sqlite"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SessionStore is the subset of the sqlite store the server needs.
type SessionStore interface {
	Get(sessionID string) (*sqlite.SessionRecord, error)
	List(limit int) ([]*sqlite.SessionRecord, error)
}

type Server struct {
	store SessionStore
}

func NewServer(store SessionStore) *Server {
	return &Server{store: store}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.showHealth)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/", s.showSession)
	return mux
}

func (s *Server) showHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// SessionSummary is the list-view shape: lifted columns only, no full
// observations blob.
type SessionSummary struct {
	SessionID           string  `json:"session_id"`
	CreatedAt           int64   `json:"created_at"`
	VideoQualityGrade   string  `json:"video_quality_grade"`
	VideoQualityWarning bool    `json:"video_quality_warning"`
	DurationSeconds     float64 `json:"duration_seconds"`
	FramesReceived      int64   `json:"frames_received"`
	FramesAnalyzed      int64   `json:"frames_analyzed"`
	Fingerprint         string  `json:"processing_fingerprint"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	recs, err := s.store.List(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}

	summaries := make([]SessionSummary, len(recs))
	for i, rec := range recs {
		obs := rec.Observations
		summaries[i] = SessionSummary{
			SessionID:           rec.SessionID,
			CreatedAt:           rec.CreatedAt,
			VideoQualityGrade:   obs.VideoQualityGrade,
			VideoQualityWarning: obs.VideoQualityWarning,
			DurationSeconds:     obs.DurationSeconds,
			FramesReceived:      obs.Counters.FramesReceived,
			FramesAnalyzed:      obs.Counters.FramesAnalyzed,
			Fingerprint:         obs.ProcessingFingerprint,
		}
	}
	httputil.WriteJSONOK(w, summaries)
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		httputil.BadRequest(w, "invalid session ID")
		return
	}

	rec, err := s.store.Get(sessionID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to fetch session: %v", err))
		return
	}
	if rec == nil {
		httputil.NotFound(w, fmt.Sprintf("session %q not found", sessionID))
		return
	}
	httputil.WriteJSONOK(w, rec)
}
