package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// OTXClient queries AlienVault OTX for pulse membership. Supports
// every indicator kind. Pulse count drives the reputation: each pulse
// referencing the indicator lowers its standing by 10 points.
type OTXClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// OTXConfig holds OTX client configuration
type OTXConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewOTXClient creates a new OTX client
func NewOTXClient(cfg OTXConfig) *OTXClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://otx.alienvault.com/api/v1"
	}
	return &OTXClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

type otxResponse struct {
	PulseInfo struct {
		Count  int `json:"count"`
		Pulses []struct {
			Name     string   `json:"name"`
			Tags     []string `json:"tags"`
			Malware  []string `json:"malware_families"`
			Modified string   `json:"modified"`
		} `json:"pulses"`
	} `json:"pulse_info"`
}

func (c *OTXClient) Name() string { return "otx" }

func (c *OTXClient) IsConfigured() bool { return c.apiKey != "" }

func (c *OTXClient) Supports(entity.IndicatorKind) bool { return true }

// LinkOut returns the OTX indicator page
func (c *OTXClient) LinkOut(ind entity.Indicator) string {
	section, value := otxSection(ind)
	return fmt.Sprintf("https://otx.alienvault.com/indicator/%s/%s", section, url.PathEscape(value))
}

// Fetch queries OTX and normalizes pulse membership
func (c *OTXClient) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	started := time.Now()
	res := entity.ProviderResult{Provider: c.Name(), SourceLink: c.LinkOut(ind)}

	section, value := otxSection(ind)
	reqURL := fmt.Sprintf("%s/indicators/%s/%s/general", c.baseURL, section, url.PathEscape(value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("create request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}
	req.Header.Set("X-OTX-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	var body otxResponse
	res.Status, res.Message = execute(c.httpClient, req, &body)
	res.LatencyMs = elapsedMs(started)
	if res.Status != entity.StatusOK {
		return res
	}

	count := body.PulseInfo.Count
	rep := 100 - 10*count
	if rep < 0 {
		rep = 0
	}
	res.Reputation = intp(rep)

	for i, pulse := range body.PulseInfo.Pulses {
		if i >= 5 {
			break
		}
		ev := entity.Evidence{
			Title:    pulse.Name,
			Category: entity.EvidencePulse,
			Severity: pulseSeverity(count),
		}
		if len(pulse.Tags) > 0 {
			ev.Description = "tags: " + strings.Join(pulse.Tags, ", ")
		}
		if len(pulse.Malware) > 0 {
			ev.Attributes = map[string]string{"malware_families": strings.Join(pulse.Malware, ",")}
		}
		res.Evidence = append(res.Evidence, ev)
	}
	return res
}

func otxSection(ind entity.Indicator) (string, string) {
	switch ind.Kind {
	case entity.KindIPv4:
		return "IPv4", ind.Canonical
	case entity.KindIPv6:
		return "IPv6", ind.Canonical
	case entity.KindDomain:
		return "domain", ind.Canonical
	case entity.KindURL:
		return "url", ind.Canonical
	default:
		return "file", ind.Canonical
	}
}

func pulseSeverity(count int) entity.Severity {
	switch {
	case count >= 10:
		return entity.SeverityHigh
	case count >= 3:
		return entity.SeverityMedium
	case count >= 1:
		return entity.SeverityLow
	default:
		return entity.SeverityInfo
	}
}
