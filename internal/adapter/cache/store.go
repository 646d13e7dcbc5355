// Package cache stores normalized provider results keyed by
// provider and canonical indicator form.
package cache

import (
	"context"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// Store is a TTL cache for provider results. Get reports the
// remaining TTL so callers can derive the entry's age. Both
// operations are best-effort: a broken backend degrades to misses.
type Store interface {
	Get(ctx context.Context, provider, canonical string) (*entity.ProviderResult, time.Duration, bool)
	Put(ctx context.Context, provider, canonical string, res *entity.ProviderResult, ttl time.Duration)
	Close() error
}

// TTLPolicy selects a TTL by indicator kind. IPs churn, hashes
// never change, domains and URLs sit in between.
type TTLPolicy struct {
	IP     time.Duration
	Domain time.Duration
	URL    time.Duration
	Hash   time.Duration
}

// DefaultTTLPolicy mirrors the per-kind lifetimes the engine ships with
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		IP:     30 * time.Minute,
		Domain: 2 * time.Hour,
		URL:    1 * time.Hour,
		Hash:   24 * time.Hour,
	}
}

// For returns the TTL for an indicator kind
func (p TTLPolicy) For(kind entity.IndicatorKind) time.Duration {
	switch {
	case kind.IsIP():
		return p.IP
	case kind.IsHash():
		return p.Hash
	case kind == entity.KindURL:
		return p.URL
	default:
		return p.Domain
	}
}
