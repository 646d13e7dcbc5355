package threatintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// ThreatFoxClient queries the abuse.ch ThreatFox IOC database.
// A hit means the indicator is a published IOC tied to a malware
// family, which yields categorical malware evidence.
type ThreatFoxClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ThreatFoxConfig holds ThreatFox client configuration
type ThreatFoxConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewThreatFoxClient creates a new ThreatFox client
func NewThreatFoxClient(cfg ThreatFoxConfig) *ThreatFoxClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://threatfox-api.abuse.ch/api/v1"
	}
	return &ThreatFoxClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

type threatFoxResponse struct {
	QueryStatus string `json:"query_status"`
	Data        []struct {
		IOC              string   `json:"ioc"`
		ThreatType       string   `json:"threat_type"`
		Malware          string   `json:"malware"`
		MalwarePrintable string   `json:"malware_printable"`
		ConfidenceLevel  int      `json:"confidence_level"`
		FirstSeen        string   `json:"first_seen"`
		Tags             []string `json:"tags"`
	} `json:"data"`
}

func (c *ThreatFoxClient) Name() string { return "threatfox" }

func (c *ThreatFoxClient) IsConfigured() bool { return c.apiKey != "" }

func (c *ThreatFoxClient) Supports(kind entity.IndicatorKind) bool {
	return kind != entity.KindIPv6
}

// LinkOut returns the ThreatFox browse page for the indicator
func (c *ThreatFoxClient) LinkOut(ind entity.Indicator) string {
	return "https://threatfox.abuse.ch/browse.php?search=ioc%3A" + url.QueryEscape(ind.Canonical)
}

// Fetch searches ThreatFox for the indicator
func (c *ThreatFoxClient) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	started := time.Now()
	res := entity.ProviderResult{Provider: c.Name(), SourceLink: c.LinkOut(ind)}

	payload, err := json.Marshal(map[string]any{
		"query":       "search_ioc",
		"search_term": ind.Canonical,
	})
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("encode request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("create request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}
	req.Header.Set("Auth-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var body threatFoxResponse
	res.Status, res.Message = execute(c.httpClient, req, &body)
	res.LatencyMs = elapsedMs(started)
	if res.Status != entity.StatusOK {
		return res
	}

	switch body.QueryStatus {
	case "ok":
	case "no_result", "no_results":
		res.Status = entity.StatusNotFound
		return res
	default:
		res.Status = entity.StatusError
		res.Message = "query_status " + body.QueryStatus
		return res
	}

	for i, ioc := range body.Data {
		if i >= 5 {
			break
		}
		name := ioc.MalwarePrintable
		if name == "" {
			name = ioc.Malware
		}
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:       "IOC for " + name,
			Category:    entity.EvidenceMalware,
			Severity:    threatFoxSeverity(ioc.ConfidenceLevel),
			Description: fmt.Sprintf("%s, first seen %s", ioc.ThreatType, ioc.FirstSeen),
			Attributes:  map[string]string{"tags": strings.Join(ioc.Tags, ",")},
		})
	}
	return res
}

func threatFoxSeverity(confidence int) entity.Severity {
	switch {
	case confidence >= 75:
		return entity.SeverityCritical
	case confidence >= 50:
		return entity.SeverityHigh
	case confidence >= 25:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}
