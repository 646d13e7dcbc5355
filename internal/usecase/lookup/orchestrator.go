// Package lookup runs single-indicator enrichment: fan-out across
// providers, cache consultation, deadline enforcement and scoring.
package lookup

import (
	"context"
	"log/slog"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/cache"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/external/threatintel"
	"github.com/NaeeemJatt/FlashThreat/internal/domain/scoring"
	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// Options controls a single orchestrator run. Callbacks are invoked
// from the collector goroutine, never concurrently.
type Options struct {
	ForceRefresh      bool
	OnProviderSettled func(entity.ProviderResult)
	OnComplete        func(*entity.AggregateResult)
}

// Orchestrator fans a lookup out across all eligible providers and
// collects exactly one settlement per provider.
type Orchestrator struct {
	providers       []threatintel.Provider
	store           cache.Store
	ttl             cache.TTLPolicy
	overallTimeout  time.Duration
	providerTimeout time.Duration
	logger          *slog.Logger
}

// NewOrchestrator creates an orchestrator over a fixed provider set
func NewOrchestrator(providers []threatintel.Provider, store cache.Store, ttl cache.TTLPolicy,
	overallTimeout, providerTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if overallTimeout == 0 {
		overallTimeout = 15 * time.Second
	}
	if providerTimeout == 0 || providerTimeout > overallTimeout {
		providerTimeout = overallTimeout
	}
	return &Orchestrator{
		providers:       providers,
		store:           store,
		ttl:             ttl,
		overallTimeout:  overallTimeout,
		providerTimeout: providerTimeout,
		logger:          logger,
	}
}

// Providers returns the configured provider set
func (o *Orchestrator) Providers() []threatintel.Provider {
	return o.providers
}

// Run executes the lookup and blocks until every eligible provider has
// settled or the overall deadline has passed. Results arrive in
// settlement order; providers still in flight at the deadline are
// recorded as timeouts and their requests cancelled, not awaited.
func (o *Orchestrator) Run(ctx context.Context, ind entity.Indicator, opts Options) *entity.AggregateResult {
	started := time.Now()

	eligible := make([]threatintel.Provider, 0, len(o.providers))
	for _, p := range o.providers {
		if p.Supports(ind.Kind) {
			eligible = append(eligible, p)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.overallTimeout)
	defer cancel()

	// Buffered so late goroutines never block after the deadline fired.
	settled := make(chan entity.ProviderResult, len(eligible))
	for _, p := range eligible {
		go o.query(runCtx, p, ind, opts.ForceRefresh, settled)
	}

	results := make([]entity.ProviderResult, 0, len(eligible))
	seen := make(map[string]bool, len(eligible))

collect:
	for len(results) < len(eligible) {
		select {
		case res := <-settled:
			if seen[res.Provider] {
				continue
			}
			seen[res.Provider] = true
			results = append(results, res)
			if opts.OnProviderSettled != nil {
				opts.OnProviderSettled(res)
			}
		case <-runCtx.Done():
			break collect
		}
	}
	cancel()

	// Synthesize timeouts for providers that never settled.
	for _, p := range eligible {
		if seen[p.Name()] {
			continue
		}
		res := entity.ProviderResult{
			Provider:   p.Name(),
			Status:     entity.StatusTimeout,
			Message:    "provider did not respond before the lookup deadline",
			LatencyMs:  time.Since(started).Milliseconds(),
			SourceLink: p.LinkOut(ind),
		}
		results = append(results, res)
		if opts.OnProviderSettled != nil {
			opts.OnProviderSettled(res)
		}
	}

	agg := &entity.AggregateResult{
		Indicator:       ind,
		ProviderResults: results,
		Verdict:         scoring.Score(results),
		TotalMs:         time.Since(started).Milliseconds(),
		CompletedAt:     time.Now().UTC(),
	}
	if opts.OnComplete != nil {
		opts.OnComplete(agg)
	}
	return agg
}

// query resolves one provider: immediate settlement for unconfigured
// providers, then cache, then the network.
func (o *Orchestrator) query(ctx context.Context, p threatintel.Provider, ind entity.Indicator,
	forceRefresh bool, settled chan<- entity.ProviderResult) {
	name := p.Name()

	if !p.IsConfigured() {
		settled <- entity.ProviderResult{
			Provider:   name,
			Status:     entity.StatusAuthError,
			Message:    "API key not configured",
			SourceLink: p.LinkOut(ind),
		}
		return
	}

	ttl := o.ttl.For(ind.Kind)
	if !forceRefresh {
		if cached, remaining, ok := o.store.Get(ctx, name, ind.Canonical); ok {
			cached.Cached = true
			age := int64((ttl - remaining).Seconds())
			if age < 0 {
				age = 0
			}
			cached.CacheAgeSeconds = &age
			settled <- *cached
			return
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()

	res := p.Fetch(fetchCtx, ind)
	if res.Status.Cacheable() {
		o.store.Put(ctx, name, ind.Canonical, &res, ttl)
	} else {
		o.logger.Debug("provider settled without cacheable result",
			"provider", name, "status", res.Status, "indicator", ind.Canonical)
	}
	settled <- res
}
