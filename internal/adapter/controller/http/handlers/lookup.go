package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
	"github.com/NaeeemJatt/FlashThreat/internal/usecase/lookup"
)

// LookupHandler serves single-indicator enrichment
type LookupHandler struct {
	svc    *lookup.Service
	logger *slog.Logger
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(svc *lookup.Service, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{svc: svc, logger: logger}
}

// CheckRequest is the body of POST /ioc/check
type CheckRequest struct {
	IOC          string `json:"ioc"`
	ForceRefresh bool   `json:"force_refresh"`
}

// CheckIOC runs a blocking lookup and returns the aggregate result
func (h *LookupHandler) CheckIOC(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.svc.Check(r.Context(), req.IOC, req.ForceRefresh)
	if err != nil {
		var ce *entity.ClassificationError
		if errors.As(err, &ce) {
			ErrorResponse(w, http.StatusBadRequest, "unrecognized indicator", err)
			return
		}
		ErrorResponse(w, http.StatusInternalServerError, "lookup failed", err)
		return
	}

	JSONResponse(w, http.StatusOK, res)
}

// StreamIOC runs a lookup and streams provider settlements over SSE.
// Events: one "provider" per settlement in arrival order, then a
// single "done" carrying the aggregate, or "error" when the input
// cannot be classified.
func (h *LookupHandler) StreamIOC(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ErrorResponse(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ioc := r.URL.Query().Get("ioc")
	forceRefresh := r.URL.Query().Get("force_refresh") == "true"

	res, err := h.svc.Stream(r.Context(), ioc, forceRefresh, func(pr entity.ProviderResult) {
		writeSSE(w, "provider", pr)
		flusher.Flush()
	})
	if err != nil {
		writeSSE(w, "error", map[string]string{"error": err.Error()})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", res)
	flusher.Flush()
}

// Providers lists every provider and its configuration state
func (h *LookupHandler) Providers(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"providers": h.svc.ProviderStatus(),
	})
}

func writeSSE(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"error":"encode failed"}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
