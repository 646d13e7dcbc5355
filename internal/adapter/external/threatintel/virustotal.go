package threatintel

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// VirusTotalClient queries the VirusTotal v3 API. Supports every
// indicator kind; URL identifiers are unpadded base64url of the URL.
type VirusTotalClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// VirusTotalConfig holds VirusTotal client configuration
type VirusTotalConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewVirusTotalClient creates a new VirusTotal client
func NewVirusTotalClient(cfg VirusTotalConfig) *VirusTotalClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.virustotal.com/api/v3"
	}
	return &VirusTotalClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Harmless   int `json:"harmless"`
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
				Timeout    int `json:"timeout"`
			} `json:"last_analysis_stats"`
			Categories map[string]string `json:"categories"`
			Tags       []string          `json:"tags"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *VirusTotalClient) Name() string { return "virustotal" }

func (c *VirusTotalClient) IsConfigured() bool { return c.apiKey != "" }

func (c *VirusTotalClient) Supports(entity.IndicatorKind) bool { return true }

// LinkOut returns the VirusTotal GUI page for the indicator
func (c *VirusTotalClient) LinkOut(ind entity.Indicator) string {
	switch {
	case ind.Kind.IsIP():
		return "https://www.virustotal.com/gui/ip-address/" + ind.Canonical
	case ind.Kind.IsHash():
		return "https://www.virustotal.com/gui/file/" + ind.Canonical
	case ind.Kind == entity.KindURL:
		return "https://www.virustotal.com/gui/url/" + vtURLID(ind.Canonical)
	default:
		return "https://www.virustotal.com/gui/domain/" + ind.Canonical
	}
}

// Fetch queries VirusTotal and normalizes the detection stats
func (c *VirusTotalClient) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	started := time.Now()
	res := entity.ProviderResult{Provider: c.Name(), SourceLink: c.LinkOut(ind)}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(ind), nil)
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("create request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	var body vtResponse
	res.Status, res.Message = execute(c.httpClient, req, &body)
	res.LatencyMs = elapsedMs(started)
	if res.Status != entity.StatusOK {
		return res
	}

	stats := body.Data.Attributes.LastAnalysisStats
	total := stats.Harmless + stats.Malicious + stats.Suspicious + stats.Undetected + stats.Timeout
	if total > 0 {
		res.MaliciousCount = intp(stats.Malicious)
		res.TotalChecks = intp(total)
		if stats.Malicious > 0 {
			res.Evidence = append(res.Evidence, entity.Evidence{
				Title:       fmt.Sprintf("Detected by %d/%d engines", stats.Malicious, total),
				Category:    entity.EvidenceDetection,
				Severity:    detectionSeverity(stats.Malicious, total),
				Description: fmt.Sprintf("%d malicious, %d suspicious, %d harmless", stats.Malicious, stats.Suspicious, stats.Harmless),
			})
		}
	}
	for engine, category := range body.Data.Attributes.Categories {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:      category,
			Category:   entity.EvidenceContext,
			Severity:   entity.SeverityInfo,
			Attributes: map[string]string{"engine": engine},
		})
	}
	return res
}

func (c *VirusTotalClient) endpoint(ind entity.Indicator) string {
	switch {
	case ind.Kind.IsIP():
		return c.baseURL + "/ip_addresses/" + url.PathEscape(ind.Canonical)
	case ind.Kind.IsHash():
		return c.baseURL + "/files/" + ind.Canonical
	case ind.Kind == entity.KindURL:
		return c.baseURL + "/urls/" + vtURLID(ind.Canonical)
	default:
		return c.baseURL + "/domains/" + url.PathEscape(ind.Canonical)
	}
}

func vtURLID(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func detectionSeverity(malicious, total int) entity.Severity {
	ratio := float64(malicious) / float64(total)
	switch {
	case ratio >= 0.5:
		return entity.SeverityCritical
	case ratio >= 0.2:
		return entity.SeverityHigh
	case ratio >= 0.05:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}
