package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// LookupsRepository records completed lookups and serves history
// queries. One row per lookup; provider details are stored flattened
// as parallel arrays.
type LookupsRepository struct {
	conn *Connection
}

// NewLookupsRepository creates a new lookups repository
func NewLookupsRepository(conn *Connection) *LookupsRepository {
	return &LookupsRepository{conn: conn}
}

// HistoryEntry is one row of lookup history
type HistoryEntry struct {
	LookupID    string    `json:"lookup_id" ch:"lookup_id"`
	Indicator   string    `json:"indicator" ch:"indicator"`
	Kind        string    `json:"kind" ch:"kind"`
	Score       uint8     `json:"score" ch:"score"`
	Category    string    `json:"category" ch:"category"`
	Providers   []string  `json:"providers" ch:"providers"`
	Statuses    []string  `json:"statuses" ch:"statuses"`
	TotalMs     int64     `json:"total_ms" ch:"total_ms"`
	CompletedAt time.Time `json:"completed_at" ch:"completed_at"`
}

// SaveLookup inserts one completed lookup
func (r *LookupsRepository) SaveLookup(ctx context.Context, res *entity.AggregateResult) error {
	providers := make([]string, 0, len(res.ProviderResults))
	statuses := make([]string, 0, len(res.ProviderResults))
	for _, pr := range res.ProviderResults {
		providers = append(providers, pr.Provider)
		statuses = append(statuses, string(pr.Status))
	}

	query := `
		INSERT INTO ioc_lookups
			(lookup_id, indicator, kind, score, category, providers, statuses, total_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := r.conn.Conn().Exec(ctx, query,
		res.LookupID,
		res.Indicator.Canonical,
		string(res.Indicator.Kind),
		uint8(res.Verdict.Score),
		string(res.Verdict.Category),
		providers,
		statuses,
		res.TotalMs,
		res.CompletedAt,
	); err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	return nil
}

// RecentLookups returns the latest lookups, newest first
func (r *LookupsRepository) RecentLookups(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT lookup_id, indicator, kind, score, category, providers, statuses, total_ms, completed_at
		FROM ioc_lookups
		ORDER BY completed_at DESC
		LIMIT ?
	`
	rows, err := r.conn.Conn().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent lookups: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.LookupID, &e.Indicator, &e.Kind, &e.Score, &e.Category,
			&e.Providers, &e.Statuses, &e.TotalMs, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan lookup row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// IndicatorHistory returns past lookups of one canonical indicator
func (r *LookupsRepository) IndicatorHistory(ctx context.Context, canonical string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	query := `
		SELECT lookup_id, indicator, kind, score, category, providers, statuses, total_ms, completed_at
		FROM ioc_lookups
		WHERE indicator = ?
		ORDER BY completed_at DESC
		LIMIT ?
	`
	rows, err := r.conn.Conn().Query(ctx, query, canonical, limit)
	if err != nil {
		return nil, fmt.Errorf("query indicator history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.LookupID, &e.Indicator, &e.Kind, &e.Score, &e.Category,
			&e.Providers, &e.Statuses, &e.TotalMs, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan lookup row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
