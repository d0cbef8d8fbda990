/*
handlers.go - HTTP API handlers for the vacation calendar

PURPOSE:
  Exposes the ingestion pipeline and the vacation store via REST API.
  Handles HTTP request/response and JSON serialization, and delegates to
  the ingest, report and seed packages.

ENDPOINTS:
  Webhook:
    POST   /api/webhook                Messenger outgoing webhook

  Vacations:
    GET    /api/vacations              List, ordered by start date
    DELETE /api/vacations/{id}         Remove one record
    GET    /api/vacations/summary      Per-employee day counts
    GET    /api/vacations/export       XLSX download

  Oracle:
    GET    /api/oracle/stats           Extraction outcome counters

  Admin:
    POST   /api/admin/seed             Load the demo calendar

ARCHITECTURE:
  Handler holds all dependencies. A nil Store means the service was
  started without a database; every data endpoint then answers 500.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, failed validation, bad query
  - 404: Record not found
  - 429: Webhook rate limit (middleware.go)
  - 500: Store not configured or failing

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/oracle"
	"github.com/warp/vacation-calendar/report"
	"github.com/warp/vacation-calendar/seed"
	"github.com/warp/vacation-calendar/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// StatsSource reports oracle call counters.
type StatsSource interface {
	Stats() oracle.StatsSnapshot
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    vacation.Store
	Pipeline *ingest.Pipeline
	Engine   *vacation.Engine
	Oracle   StatsSource
	Logger   *zap.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler. store may be nil.
func NewHandler(store vacation.Store, pipeline *ingest.Pipeline, engine *vacation.Engine, stats StatsSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Pipeline: pipeline,
		Engine:   engine,
		Oracle:   stats,
		Logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

const errStoreNotConfigured = "store not configured"

// =============================================================================
// WEBHOOK
// =============================================================================

// Webhook handles one messenger delivery. Messages without a vacation are
// acknowledged with 200 and vacation=false.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, errStoreNotConfigured, nil)
		return
	}

	var req WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, validationResponse(err))
		return
	}

	res, err := h.Pipeline.HandleWebhook(r.Context(), req.toMessage())
	if err != nil {
		h.Logger.Error("webhook failed",
			zap.String("employee_id", req.Author.ID),
			zap.String("kind", vacation.ErrorKind(err)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, toWebhookResponse(res))
}

// =============================================================================
// VACATIONS
// =============================================================================

// ListVacations returns every record ordered by start date.
func (h *Handler) ListVacations(w http.ResponseWriter, r *http.Request) {
	records, ok := h.list(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// DeleteVacation removes one record by id.
func (h *Handler) DeleteVacation(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, errStoreNotConfigured, nil)
		return
	}

	id := chi.URLParam(r, "id")
	err := h.Store.DeleteByID(r.Context(), id)
	switch {
	case errors.Is(err, vacation.ErrNotFound):
		writeError(w, http.StatusNotFound, "Vacation not found", nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to delete vacation", err)
		return
	}

	h.Logger.Info("vacation deleted", zap.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns per-employee totals. ?as_of=YYYY-MM-DD sets the date
// used for next_start; it defaults to today.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	asOf := r.URL.Query().Get("as_of")
	if asOf == "" {
		asOf = h.now().Format(vacation.DateLayout)
	} else if !vacation.ValidDate(asOf) {
		writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD", nil)
		return
	}

	records, ok := h.list(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{AsOf: asOf, Summary: report.Summarize(records, asOf)})
}

// Export streams all records as an XLSX workbook.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	records, ok := h.list(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build export", err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="vacations.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) ([]vacation.Record, bool) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, errStoreNotConfigured, nil)
		return nil, false
	}
	records, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list vacations", err)
		return nil, false
	}
	if records == nil {
		records = []vacation.Record{}
	}
	return records, true
}

// =============================================================================
// ORACLE & ADMIN
// =============================================================================

// OracleStats returns extraction outcome counters.
func (h *Handler) OracleStats(w http.ResponseWriter, r *http.Request) {
	var stats oracle.StatsSnapshot
	if h.Oracle != nil {
		stats = h.Oracle.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

// SeedDemo loads the demo calendar.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusInternalServerError, errStoreNotConfigured, nil)
		return
	}

	records, err := seed.Load(r.Context(), h.Engine, h.Logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, SeedResponse{Loaded: len(records), Records: records})
}

type storePinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and, when the store supports it, connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if h.Store == nil {
		status["store"] = "not configured"
	} else if p, ok := h.Store.(storePinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		status["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, status)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
