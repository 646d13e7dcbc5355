package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// AbuseIPDBClient queries the AbuseIPDB v2 check endpoint. IP
// addresses only. The abuse confidence score c (0 clean, 100 abusive)
// maps onto reputation as 100−c.
type AbuseIPDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// AbuseIPDBConfig holds AbuseIPDB client configuration
type AbuseIPDBConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewAbuseIPDBClient creates a new AbuseIPDB client
func NewAbuseIPDBClient(cfg AbuseIPDBConfig) *AbuseIPDBClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.abuseipdb.com/api/v2"
	}
	return &AbuseIPDBClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

type abuseIPDBResponse struct {
	Data struct {
		IPAddress            string `json:"ipAddress"`
		AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
		CountryCode          string `json:"countryCode"`
		UsageType            string `json:"usageType"`
		ISP                  string `json:"isp"`
		Domain               string `json:"domain"`
		TotalReports         int    `json:"totalReports"`
		NumDistinctUsers     int    `json:"numDistinctUsers"`
		LastReportedAt       string `json:"lastReportedAt"`
		IsTor                bool   `json:"isTor"`
		IsWhitelisted        bool   `json:"isWhitelisted"`
	} `json:"data"`
}

func (c *AbuseIPDBClient) Name() string { return "abuseipdb" }

func (c *AbuseIPDBClient) IsConfigured() bool { return c.apiKey != "" }

func (c *AbuseIPDBClient) Supports(kind entity.IndicatorKind) bool { return kind.IsIP() }

// LinkOut returns the AbuseIPDB page for the address
func (c *AbuseIPDBClient) LinkOut(ind entity.Indicator) string {
	return "https://www.abuseipdb.com/check/" + ind.Canonical
}

// Fetch queries AbuseIPDB and normalizes the confidence score
func (c *AbuseIPDBClient) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	started := time.Now()
	res := entity.ProviderResult{Provider: c.Name(), SourceLink: c.LinkOut(ind)}

	reqURL := fmt.Sprintf("%s/check?ipAddress=%s&maxAgeInDays=90",
		c.baseURL, url.QueryEscape(ind.Canonical))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("create request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}
	req.Header.Set("Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	var body abuseIPDBResponse
	res.Status, res.Message = execute(c.httpClient, req, &body)
	res.LatencyMs = elapsedMs(started)
	if res.Status != entity.StatusOK {
		return res
	}

	data := body.Data
	res.Reputation = intp(100 - data.AbuseConfidenceScore)

	if data.TotalReports > 0 {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:       fmt.Sprintf("%d abuse reports from %d reporters", data.TotalReports, data.NumDistinctUsers),
			Category:    entity.EvidenceDetection,
			Severity:    confidenceSeverity(data.AbuseConfidenceScore),
			Description: fmt.Sprintf("abuse confidence %d%%, last reported %s", data.AbuseConfidenceScore, data.LastReportedAt),
			Attributes: map[string]string{
				"country":    data.CountryCode,
				"isp":        data.ISP,
				"usage_type": data.UsageType,
			},
		})
	}
	if data.IsTor {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:    "Tor exit node",
			Category: entity.EvidenceContext,
			Severity: entity.SeverityMedium,
		})
	}
	if data.IsWhitelisted {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:    "Whitelisted by AbuseIPDB",
			Category: entity.EvidenceContext,
			Severity: entity.SeverityInfo,
			Attributes: map[string]string{
				"confidence": strconv.Itoa(data.AbuseConfidenceScore),
			},
		})
	}
	return res
}

func confidenceSeverity(confidence int) entity.Severity {
	switch {
	case confidence >= 90:
		return entity.SeverityCritical
	case confidence >= 70:
		return entity.SeverityHigh
	case confidence >= 40:
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}
