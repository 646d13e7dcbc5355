package lookup

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/cache"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/external/threatintel"
	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

type fakeProvider struct {
	name       string
	configured bool
	kinds      map[entity.IndicatorKind]bool
	delay      time.Duration
	result     entity.ProviderResult
	calls      int64
}

func (f *fakeProvider) Name() string       { return f.name }
func (f *fakeProvider) IsConfigured() bool { return f.configured }

func (f *fakeProvider) Supports(kind entity.IndicatorKind) bool {
	if f.kinds == nil {
		return true
	}
	return f.kinds[kind]
}

func (f *fakeProvider) LinkOut(entity.Indicator) string { return "https://example.test/" + f.name }

func (f *fakeProvider) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return entity.ProviderResult{Provider: f.name, Status: entity.StatusTimeout}
		}
	}
	res := f.result
	res.Provider = f.name
	return res
}

func okProvider(name string, reputation int, delay time.Duration) *fakeProvider {
	return &fakeProvider{
		name:       name,
		configured: true,
		delay:      delay,
		result:     entity.ProviderResult{Status: entity.StatusOK, Reputation: &reputation},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newOrchestrator(t *testing.T, providers []threatintel.Provider, overall, per time.Duration) (*Orchestrator, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	return NewOrchestrator(providers, store, cache.DefaultTTLPolicy(), overall, per, testLogger()), store
}

func ipIndicator(ip string) entity.Indicator {
	return entity.Indicator{Value: ip, Kind: entity.KindIPv4, Canonical: ip}
}

func TestRunFansOutConcurrently(t *testing.T) {
	providers := []threatintel.Provider{
		okProvider("virustotal", 90, 50*time.Millisecond),
		okProvider("otx", 95, 50*time.Millisecond),
		okProvider("abuseipdb", 100, 50*time.Millisecond),
	}
	orch, _ := newOrchestrator(t, providers, 5*time.Second, time.Second)

	started := time.Now()
	res := orch.Run(context.Background(), ipIndicator("8.8.8.8"), Options{})

	// Serial execution would take 150ms+.
	assert.Less(t, time.Since(started), 140*time.Millisecond)
	require.Len(t, res.ProviderResults, 3)
	assert.Equal(t, entity.VerdictClean, res.Verdict.Category)
}

func TestRunSettlesEachProviderOnce(t *testing.T) {
	providers := []threatintel.Provider{
		okProvider("virustotal", 90, 0),
		okProvider("otx", 90, 10*time.Millisecond),
	}
	orch, _ := newOrchestrator(t, providers, 5*time.Second, time.Second)

	var settled []string
	var completes int
	orch.Run(context.Background(), ipIndicator("8.8.8.8"), Options{
		OnProviderSettled: func(r entity.ProviderResult) { settled = append(settled, r.Provider) },
		OnComplete:        func(*entity.AggregateResult) { completes++ },
	})

	assert.ElementsMatch(t, []string{"virustotal", "otx"}, settled)
	assert.Equal(t, 1, completes)
}

func TestRunCachesAndReusesResults(t *testing.T) {
	p := okProvider("virustotal", 80, 0)
	orch, _ := newOrchestrator(t, []threatintel.Provider{p}, 5*time.Second, time.Second)
	ind := ipIndicator("1.2.3.4")

	first := orch.Run(context.Background(), ind, Options{})
	require.False(t, first.ProviderResults[0].Cached)

	second := orch.Run(context.Background(), ind, Options{})
	require.True(t, second.ProviderResults[0].Cached)
	require.NotNil(t, second.ProviderResults[0].CacheAgeSeconds)
	assert.GreaterOrEqual(t, *second.ProviderResults[0].CacheAgeSeconds, int64(0))
	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls))

	// Cached and fresh runs must produce the same verdict.
	assert.Equal(t, first.Verdict.Score, second.Verdict.Score)
	assert.Equal(t, first.Verdict.Category, second.Verdict.Category)
}

func TestRunForceRefreshBypassesCache(t *testing.T) {
	p := okProvider("virustotal", 80, 0)
	orch, _ := newOrchestrator(t, []threatintel.Provider{p}, 5*time.Second, time.Second)
	ind := ipIndicator("1.2.3.4")

	orch.Run(context.Background(), ind, Options{})
	res := orch.Run(context.Background(), ind, Options{ForceRefresh: true})

	assert.False(t, res.ProviderResults[0].Cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))

	// The refreshed result replaced the cache entry.
	third := orch.Run(context.Background(), ind, Options{})
	assert.True(t, third.ProviderResults[0].Cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))
}

func TestRunDoesNotCacheFailures(t *testing.T) {
	p := &fakeProvider{
		name:       "otx",
		configured: true,
		result:     entity.ProviderResult{Status: entity.StatusError, Message: "boom"},
	}
	orch, _ := newOrchestrator(t, []threatintel.Provider{p}, 5*time.Second, time.Second)
	ind := ipIndicator("9.9.9.9")

	orch.Run(context.Background(), ind, Options{})
	orch.Run(context.Background(), ind, Options{})

	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))
}

func TestRunUnconfiguredSettlesImmediately(t *testing.T) {
	p := &fakeProvider{name: "abuseipdb", configured: false}
	orch, _ := newOrchestrator(t, []threatintel.Provider{p}, 5*time.Second, time.Second)

	res := orch.Run(context.Background(), ipIndicator("8.8.8.8"), Options{})

	require.Len(t, res.ProviderResults, 1)
	assert.Equal(t, entity.StatusAuthError, res.ProviderResults[0].Status)
	assert.Equal(t, "API key not configured", res.ProviderResults[0].Message)
	assert.Equal(t, int64(0), atomic.LoadInt64(&p.calls))
}

func TestRunSkipsUnsupportedProviders(t *testing.T) {
	ipOnly := okProvider("abuseipdb", 90, 0)
	ipOnly.kinds = map[entity.IndicatorKind]bool{entity.KindIPv4: true, entity.KindIPv6: true}
	all := okProvider("virustotal", 90, 0)

	orch, _ := newOrchestrator(t, []threatintel.Provider{ipOnly, all}, 5*time.Second, time.Second)
	res := orch.Run(context.Background(), entity.Indicator{
		Value: "example.com", Kind: entity.KindDomain, Canonical: "example.com",
	}, Options{})

	require.Len(t, res.ProviderResults, 1)
	assert.Equal(t, "virustotal", res.ProviderResults[0].Provider)
}

func TestRunDeadlineSynthesizesTimeouts(t *testing.T) {
	slow := okProvider("otx", 90, 10*time.Second)
	fast := okProvider("virustotal", 90, 0)
	orch, _ := newOrchestrator(t, []threatintel.Provider{fast, slow}, 80*time.Millisecond, 10*time.Second)

	started := time.Now()
	res := orch.Run(context.Background(), ipIndicator("8.8.8.8"), Options{})

	assert.Less(t, time.Since(started), 500*time.Millisecond)
	require.Len(t, res.ProviderResults, 2)

	byName := map[string]entity.ProviderResult{}
	for _, pr := range res.ProviderResults {
		byName[pr.Provider] = pr
	}
	assert.Equal(t, entity.StatusOK, byName["virustotal"].Status)
	assert.Equal(t, entity.StatusTimeout, byName["otx"].Status)

	// The fast provider's signal still counts.
	assert.Equal(t, []string{"virustotal"}, res.Verdict.ContributingProviders)
}

func TestRunStreamOrderMatchesArrival(t *testing.T) {
	fast := okProvider("virustotal", 90, 0)
	slow := okProvider("otx", 90, 60*time.Millisecond)
	orch, _ := newOrchestrator(t, []threatintel.Provider{slow, fast}, 5*time.Second, time.Second)

	var order []string
	orch.Run(context.Background(), ipIndicator("8.8.8.8"), Options{
		OnProviderSettled: func(r entity.ProviderResult) { order = append(order, r.Provider) },
	})

	assert.Equal(t, []string{"virustotal", "otx"}, order)
}
