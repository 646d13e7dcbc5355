// Command lookup runs a one-shot enrichment from the terminal:
//
//	lookup [-refresh] [-json] <indicator>
//
// Provider API keys come from the same environment variables the API
// server uses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/cache"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/external/threatintel"
	"github.com/NaeeemJatt/FlashThreat/internal/config"
	"github.com/NaeeemJatt/FlashThreat/internal/entity"
	"github.com/NaeeemJatt/FlashThreat/internal/usecase/lookup"
)

func main() {
	refresh := flag.Bool("refresh", false, "bypass cached provider results")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lookup [-refresh] [-json] <indicator>")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load configuration:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store := cache.NewMemoryStore()
	defer store.Close()

	ttl := cache.TTLPolicy{
		IP:     cfg.Cache.TTLIP,
		Domain: cfg.Cache.TTLDomain,
		URL:    cfg.Cache.TTLURL,
		Hash:   cfg.Cache.TTLHash,
	}
	orch := lookup.NewOrchestrator(buildProviders(cfg), store, ttl,
		cfg.Lookup.OverallTimeout, cfg.Lookup.ProviderTimeout, logger)
	svc := lookup.NewService(orch, nil, logger)

	res, err := svc.Stream(context.Background(), flag.Arg(0), *refresh, func(pr entity.ProviderResult) {
		if !*asJSON {
			fmt.Printf("  %-12s %-12s %5dms\n", pr.Provider, pr.Status, pr.LatencyMs)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintln(os.Stderr, "encode result:", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("\n%s (%s)\n", res.Indicator.Canonical, res.Indicator.Kind)
	fmt.Printf("verdict: %s  score: %d/100\n", res.Verdict.Category, res.Verdict.Score)
	fmt.Printf("%s\n", res.Verdict.Explanation)
	if res.Verdict.Category == entity.VerdictMalicious || res.Verdict.Category == entity.VerdictSuspicious {
		os.Exit(1)
	}
}

func buildProviders(cfg *config.Config) []threatintel.Provider {
	timeout := cfg.Lookup.ProviderTimeout
	return []threatintel.Provider{
		threatintel.NewVirusTotalClient(threatintel.VirusTotalConfig{
			APIKey: cfg.Providers.VirusTotalKey, Timeout: timeout,
		}),
		threatintel.NewAbuseIPDBClient(threatintel.AbuseIPDBConfig{
			APIKey: cfg.Providers.AbuseIPDBKey, Timeout: timeout,
		}),
		threatintel.NewOTXClient(threatintel.OTXConfig{
			APIKey: cfg.Providers.OTXKey, Timeout: timeout,
		}),
		threatintel.NewURLhausClient(threatintel.URLhausConfig{
			APIKey: cfg.Providers.URLhausKey, Timeout: timeout,
		}),
		threatintel.NewThreatFoxClient(threatintel.ThreatFoxConfig{
			APIKey: cfg.Providers.ThreatFoxKey, Timeout: timeout,
		}),
	}
}
