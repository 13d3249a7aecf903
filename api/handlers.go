/*
handlers.go - HTTP API handlers for the VR engine

PURPOSE:
  Exposes the run pipeline via REST API. Handles HTTP request/response,
  multipart uploads and JSON serialization, and delegates to the pipeline.

ENDPOINTS:
  GET    /api/health     {"status":"ok"}
  GET    /api/policies   Registered policies
  GET    /api/unions     Union table with fallback code
  GET    /api/runs       Past runs, newest first (needs the SQLite catalog)
  POST   /api/runs       Multipart upload:
                           files   one or more exports (.xlsx, .csv)
                           month   1..12 (optional when configured)
                           year    e.g. 2025 (optional when configured)
                           policy  registered policy ID (optional)
                           mode    cost_split | plain (optional)
                         ?format=xlsx returns the workbook instead of JSON.

ERROR HANDLING:
  - 400: Invalid form, unknown policy or mode, missing period
  - 422: Fatal run error caused by the input or setup (missing credential,
         empty registry, unreadable file)
  - 500: Other fatal errors (panics, report rendering) and internal errors

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/warp/vr-engine/generic"
	"github.com/warp/vr-engine/ingest"
	"github.com/warp/vr-engine/pipeline"
	"github.com/warp/vr-engine/report"
	"github.com/warp/vr-engine/store/sqlite"
)

const (
	HeaderRunID = "X-Run-ID"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultMaxUpload = 32 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// RunLister reads the run history.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]sqlite.RunRecord, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Pipeline *pipeline.Pipeline

	// History is nil when no SQLite catalog is configured.
	History RunLister

	// Period is used when a run request omits month and year. The zero
	// value makes both fields required.
	Period generic.Period

	MaxUploadBytes int64
}

// NewHandler creates a handler around a pipeline.
func NewHandler(p *pipeline.Pipeline, period generic.Period) *Handler {
	h := &Handler{Pipeline: p, Period: period, MaxUploadBytes: defaultMaxUpload}
	if p.Catalog != nil {
		h.History = p.Catalog
	}
	return h
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListPolicies returns every registered policy.
// GET /api/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := generic.ListPolicies()
	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListUnions returns the union table in matching order.
// GET /api/unions
func (h *Handler) ListUnions(w http.ResponseWriter, r *http.Request) {
	table := h.Pipeline.Unions
	if table == nil {
		writeError(w, http.StatusInternalServerError, "No union table configured", nil)
		return
	}
	resp := UnionsResponse{Fallback: table.Fallback().Code}
	for _, c := range table.Cards() {
		resp.Unions = append(resp.Unions, toUnionDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns past runs, newest first.
// GET /api/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusNotFound, "Run history requires a SQLite catalog", nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.History.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	dtos := make([]RunRecordDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunRecordDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RUNS
// =============================================================================

// CreateRun computes a month from uploaded exports.
// POST /api/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	files, err := uploadedFiles(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read uploaded files", err)
		return
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "At least one file is required in the 'files' field", nil)
		return
	}

	period, err := h.requestPeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid process period", err)
		return
	}

	policy := h.Pipeline.Policy
	if id := r.FormValue("policy"); id != "" {
		policy, err = generic.LookupPolicy(generic.PolicyID(id))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown policy", err)
			return
		}
	}
	if raw := r.FormValue("mode"); raw != "" {
		mode, err := generic.ParseOutputMode(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid output mode", err)
			return
		}
		policy = policy.WithOutputMode(mode)
	}

	out, err := h.Pipeline.RunWithPolicy(r.Context(), period, policy, files)
	if err != nil {
		if generic.IsFatal(err) {
			status := http.StatusInternalServerError
			if generic.IsClientError(err) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status, fatalMessage(err), errors.New(report.ErrorReport(err)))
			return
		}
		writeError(w, http.StatusInternalServerError, "Run failed", err)
		return
	}

	w.Header().Set(HeaderRunID, out.RunID)
	if r.URL.Query().Get("format") == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Report.FileName))
		w.WriteHeader(http.StatusOK)
		w.Write(out.Report.Workbook)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(out))
}

func uploadedFiles(r *http.Request) ([]ingest.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []ingest.File
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		files = append(files, ingest.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func (h *Handler) requestPeriod(r *http.Request) (generic.Period, error) {
	rawMonth, rawYear := r.FormValue("month"), r.FormValue("year")
	if rawMonth == "" && rawYear == "" && !h.Period.Start.IsZero() {
		return h.Period, nil
	}
	month, err := strconv.Atoi(rawMonth)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: month %q", generic.ErrInvalidPeriod, rawMonth)
	}
	year, err := strconv.Atoi(rawYear)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: year %q", generic.ErrInvalidPeriod, rawYear)
	}
	return generic.NewMonthPeriod(year, month)
}

// fatalMessage is the one-line message shown to the user.
func fatalMessage(err error) string {
	switch {
	case errors.Is(err, generic.ErrMissingCredential):
		return "The adjudication API key is not configured"
	case errors.Is(err, generic.ErrEmptyRegistry):
		return "No employees found in the uploaded files"
	case errors.Is(err, generic.ErrUnreadableSource):
		return "An uploaded file could not be read"
	default:
		return "The run could not be completed"
	}
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
