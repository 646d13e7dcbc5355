package handlers

import (
	"net/http"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/cache"
)

// StatsSource exposes cache hit/miss counters. Only the in-memory
// backend implements it; Redis keeps its own metrics.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheStats returns a handler for cache statistics
func CacheStats(source StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			ErrorResponse(w, http.StatusNotFound, "cache statistics unavailable for this backend", nil)
			return
		}
		JSONResponse(w, http.StatusOK, source.Stats())
	}
}
