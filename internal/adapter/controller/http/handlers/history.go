package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/repository/clickhouse"
	"github.com/NaeeemJatt/FlashThreat/internal/domain/classify"
)

// HistoryHandler serves past lookups from ClickHouse
type HistoryHandler struct {
	repo   *clickhouse.LookupsRepository
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(repo *clickhouse.LookupsRepository, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, logger: logger}
}

// History returns recent lookups, or the history of one indicator
// when ?ioc= is given
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if ioc := r.URL.Query().Get("ioc"); ioc != "" {
		ind, err := classify.Classify(ioc)
		if err != nil {
			ErrorResponse(w, http.StatusBadRequest, "unrecognized indicator", err)
			return
		}
		entries, err := h.repo.IndicatorHistory(r.Context(), ind.Canonical, limit)
		if err != nil {
			h.logger.Error("indicator history query failed", "indicator", ind.Canonical, "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "history query failed", nil)
			return
		}
		JSONResponse(w, http.StatusOK, map[string]interface{}{"history": entries})
		return
	}

	entries, err := h.repo.RecentLookups(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent lookups query failed", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "history query failed", nil)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]interface{}{"history": entries})
}
