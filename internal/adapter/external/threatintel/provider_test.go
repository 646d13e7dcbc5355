package threatintel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

func ipIndicator(ip string) entity.Indicator {
	return entity.Indicator{Value: ip, Kind: entity.KindIPv4, Canonical: ip}
}

func TestVirusTotalFetchDetections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))
		assert.Equal(t, "/ip_addresses/8.8.8.8", r.URL.Path)
		w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{"harmless":60,"malicious":12,"suspicious":2,"undetected":6,"timeout":0}}}}`))
	}))
	defer srv.Close()

	c := NewVirusTotalClient(VirusTotalConfig{APIKey: "test-key", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), ipIndicator("8.8.8.8"))

	require.Equal(t, entity.StatusOK, res.Status)
	require.NotNil(t, res.MaliciousCount)
	require.NotNil(t, res.TotalChecks)
	assert.Equal(t, 12, *res.MaliciousCount)
	assert.Equal(t, 80, *res.TotalChecks)
	assert.Nil(t, res.Reputation)
	require.NotEmpty(t, res.Evidence)
	assert.Equal(t, entity.EvidenceDetection, res.Evidence[0].Category)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))
}

func TestVirusTotalStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want entity.ProviderStatus
	}{
		{"unauthorized", http.StatusUnauthorized, entity.StatusAuthError},
		{"forbidden", http.StatusForbidden, entity.StatusAuthError},
		{"not found", http.StatusNotFound, entity.StatusNotFound},
		{"rate limited", http.StatusTooManyRequests, entity.StatusRateLimited},
		{"server error", http.StatusInternalServerError, entity.StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			c := NewVirusTotalClient(VirusTotalConfig{APIKey: "k", BaseURL: srv.URL})
			res := c.Fetch(context.Background(), ipIndicator("1.2.3.4"))
			assert.Equal(t, tt.want, res.Status)
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewVirusTotalClient(VirusTotalConfig{APIKey: "k", BaseURL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := c.Fetch(ctx, ipIndicator("1.2.3.4"))
	assert.Equal(t, entity.StatusTimeout, res.Status)
}

func TestAbuseIPDBReputation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Key"))
		assert.Equal(t, "185.220.101.1", r.URL.Query().Get("ipAddress"))
		w.Write([]byte(`{"data":{"ipAddress":"185.220.101.1","abuseConfidenceScore":97,"totalReports":412,"numDistinctUsers":120,"isTor":true,"lastReportedAt":"2026-08-20T00:00:00+00:00"}}`))
	}))
	defer srv.Close()

	c := NewAbuseIPDBClient(AbuseIPDBConfig{APIKey: "test-key", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), ipIndicator("185.220.101.1"))

	require.Equal(t, entity.StatusOK, res.Status)
	require.NotNil(t, res.Reputation)
	assert.Equal(t, 3, *res.Reputation)
	require.Len(t, res.Evidence, 2)
	assert.Equal(t, entity.SeverityCritical, res.Evidence[0].Severity)
	assert.Equal(t, "Tor exit node", res.Evidence[1].Title)
}

func TestAbuseIPDBSupportsOnlyIPs(t *testing.T) {
	c := NewAbuseIPDBClient(AbuseIPDBConfig{APIKey: "k"})

	assert.True(t, c.Supports(entity.KindIPv4))
	assert.True(t, c.Supports(entity.KindIPv6))
	assert.False(t, c.Supports(entity.KindDomain))
	assert.False(t, c.Supports(entity.KindSHA256))
}

func TestOTXPulseReputation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-OTX-API-KEY"))
		assert.Equal(t, "/indicators/domain/evil.example/general", r.URL.Path)
		w.Write([]byte(`{"pulse_info":{"count":4,"pulses":[{"name":"Campaign X","tags":["phishing"],"malware_families":["AgentTesla"]}]}}`))
	}))
	defer srv.Close()

	c := NewOTXClient(OTXConfig{APIKey: "test-key", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), entity.Indicator{
		Value: "evil.example", Kind: entity.KindDomain, Canonical: "evil.example",
	})

	require.Equal(t, entity.StatusOK, res.Status)
	require.NotNil(t, res.Reputation)
	assert.Equal(t, 60, *res.Reputation)
	require.Len(t, res.Evidence, 1)
	assert.Equal(t, entity.EvidencePulse, res.Evidence[0].Category)
	assert.Equal(t, entity.SeverityMedium, res.Evidence[0].Severity)
}

func TestOTXNoPulsesIsCleanStanding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pulse_info":{"count":0,"pulses":[]}}`))
	}))
	defer srv.Close()

	c := NewOTXClient(OTXConfig{APIKey: "k", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), ipIndicator("8.8.8.8"))

	require.Equal(t, entity.StatusOK, res.Status)
	require.NotNil(t, res.Reputation)
	assert.Equal(t, 100, *res.Reputation)
	assert.Empty(t, res.Evidence)
}

func TestURLhausHostListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "evil.example", r.PostForm.Get("host"))
		w.Write([]byte(`{"query_status":"ok","host":"evil.example","url_count":"7","blacklists":{"spamhaus_dbl":"spammer_domain","surbl":"not listed"},"urls":[{"url":"http://evil.example/a","url_status":"online","threat":"malware_download"}]}`))
	}))
	defer srv.Close()

	c := NewURLhausClient(URLhausConfig{APIKey: "k", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), entity.Indicator{
		Value: "evil.example", Kind: entity.KindDomain, Canonical: "evil.example",
	})

	require.Equal(t, entity.StatusOK, res.Status)
	require.Len(t, res.Evidence, 2)
	assert.Equal(t, entity.EvidenceBlocklist, res.Evidence[0].Category)
	assert.Equal(t, entity.SeverityHigh, res.Evidence[0].Severity)
	assert.Equal(t, entity.EvidenceMalware, res.Evidence[1].Category)
	assert.Equal(t, entity.SeverityCritical, res.Evidence[1].Severity)
}

func TestURLhausNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query_status":"no_results"}`))
	}))
	defer srv.Close()

	c := NewURLhausClient(URLhausConfig{APIKey: "k", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), ipIndicator("8.8.8.8"))

	assert.Equal(t, entity.StatusNotFound, res.Status)
	assert.Empty(t, res.Evidence)
}

func TestThreatFoxHit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("Auth-Key"))
		w.Write([]byte(`{"query_status":"ok","data":[{"ioc":"bad.example","threat_type":"botnet_cc","malware":"win.cobalt_strike","malware_printable":"Cobalt Strike","confidence_level":90,"first_seen":"2026-08-01 10:00:00 UTC","tags":["c2"]}]}`))
	}))
	defer srv.Close()

	c := NewThreatFoxClient(ThreatFoxConfig{APIKey: "k", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), entity.Indicator{
		Value: "bad.example", Kind: entity.KindDomain, Canonical: "bad.example",
	})

	require.Equal(t, entity.StatusOK, res.Status)
	require.Len(t, res.Evidence, 1)
	assert.Equal(t, "IOC for Cobalt Strike", res.Evidence[0].Title)
	assert.Equal(t, entity.EvidenceMalware, res.Evidence[0].Category)
	assert.Equal(t, entity.SeverityCritical, res.Evidence[0].Severity)
}

func TestThreatFoxNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query_status":"no_result"}`))
	}))
	defer srv.Close()

	c := NewThreatFoxClient(ThreatFoxConfig{APIKey: "k", BaseURL: srv.URL})
	res := c.Fetch(context.Background(), entity.Indicator{
		Value: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Kind:  entity.KindSHA256, Canonical: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	})

	assert.Equal(t, entity.StatusNotFound, res.Status)
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewVirusTotalClient(VirusTotalConfig{}).IsConfigured())
	assert.True(t, NewVirusTotalClient(VirusTotalConfig{APIKey: "k"}).IsConfigured())
	assert.False(t, NewOTXClient(OTXConfig{}).IsConfigured())
	assert.False(t, NewURLhausClient(URLhausConfig{}).IsConfigured())
	assert.False(t, NewThreatFoxClient(ThreatFoxConfig{}).IsConfigured())
}
