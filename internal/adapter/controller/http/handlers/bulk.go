package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NaeeemJatt/FlashThreat/internal/usecase/bulk"
)

// BulkHandler serves bulk job submission, progress and download
type BulkHandler struct {
	runner   *bulk.Runner
	maxItems int
	logger   *slog.Logger
}

// NewBulkHandler creates a new bulk handler
func NewBulkHandler(runner *bulk.Runner, maxItems int, logger *slog.Logger) *BulkHandler {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &BulkHandler{runner: runner, maxItems: maxItems, logger: logger}
}

// Submit accepts a CSV body (first column holds the indicator) and
// starts a background bulk job
func (h *BulkHandler) Submit(w http.ResponseWriter, r *http.Request) {
	lines, err := readFirstColumn(r.Body, h.maxItems)
	if err != nil {
		if err == errTooManyItems {
			ErrorResponse(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("too many items, the limit is %d", h.maxItems), nil)
			return
		}
		ErrorResponse(w, http.StatusBadRequest, "invalid CSV body", err)
		return
	}
	if len(lines) == 0 {
		ErrorResponse(w, http.StatusBadRequest, "empty submission", nil)
		return
	}

	forceRefresh := r.URL.Query().Get("force_refresh") == "true"
	job := h.runner.Submit(r.Context(), lines, forceRefresh)

	JSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"total":  job.Total,
		"status": job.Status,
	})
}

// Progress returns a job's counters
func (h *BulkHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.runner.Progress(id)
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "bulk job not found", nil)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"job":            job,
		"download_ready": job.Terminal(),
	})
}

// Download streams the job results as CSV
func (h *BulkHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.runner.Progress(id)
	if !ok {
		ErrorResponse(w, http.StatusNotFound, "bulk job not found", nil)
		return
	}
	if !job.Terminal() {
		ErrorResponse(w, http.StatusConflict, "bulk job still running", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bulk-%s.csv"`, id))
	if err := h.runner.WriteCSV(w, id); err != nil {
		h.logger.Error("bulk csv download failed", "job_id", id, "error", err)
	}
}

var errTooManyItems = fmt.Errorf("too many items")

// readFirstColumn extracts the first CSV column of each record,
// skipping a header row when one is detected
func readFirstColumn(body io.Reader, maxItems int) ([]string, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var lines []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		value := strings.TrimSpace(record[0])
		if len(lines) == 0 && strings.EqualFold(value, "ioc") {
			continue
		}
		lines = append(lines, value)
		if len(lines) > maxItems {
			return nil, errTooManyItems
		}
	}
	return lines, nil
}
