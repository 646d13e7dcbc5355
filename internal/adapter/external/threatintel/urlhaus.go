package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// URLhausClient queries the abuse.ch URLhaus API for malicious URL
// and host listings. Hosts (domains, IPv4) and URLs only. Blocklist
// membership yields categorical blocklist evidence.
type URLhausClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// URLhausConfig holds URLhaus client configuration. The Auth-Key is
// shared with ThreatFox (auth.abuse.ch).
type URLhausConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewURLhausClient creates a new URLhaus client
func NewURLhausClient(cfg URLhausConfig) *URLhausClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://urlhaus-api.abuse.ch/v1"
	}
	return &URLhausClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

type urlhausResponse struct {
	QueryStatus string `json:"query_status"`
	Host        string `json:"host"`
	URLCount    string `json:"url_count"`
	Blacklists  struct {
		SpamhausDBL string `json:"spamhaus_dbl"`
		SURBL       string `json:"surbl"`
	} `json:"blacklists"`
	URLs []struct {
		URL       string   `json:"url"`
		URLStatus string   `json:"url_status"`
		Threat    string   `json:"threat"`
		Tags      []string `json:"tags"`
	} `json:"urls"`
	// url endpoint fields
	URLStatus string   `json:"url_status"`
	Threat    string   `json:"threat"`
	Tags      []string `json:"tags"`
}

func (c *URLhausClient) Name() string { return "urlhaus" }

func (c *URLhausClient) IsConfigured() bool { return c.apiKey != "" }

func (c *URLhausClient) Supports(kind entity.IndicatorKind) bool {
	return kind == entity.KindDomain || kind == entity.KindURL || kind == entity.KindIPv4
}

// LinkOut returns the URLhaus browse page for the indicator
func (c *URLhausClient) LinkOut(ind entity.Indicator) string {
	if ind.Kind == entity.KindURL {
		return "https://urlhaus.abuse.ch/browse.php?search=" + url.QueryEscape(ind.Canonical)
	}
	return "https://urlhaus.abuse.ch/host/" + ind.Canonical + "/"
}

// Fetch queries URLhaus and normalizes listings and blocklist flags
func (c *URLhausClient) Fetch(ctx context.Context, ind entity.Indicator) entity.ProviderResult {
	started := time.Now()
	res := entity.ProviderResult{Provider: c.Name(), SourceLink: c.LinkOut(ind)}

	endpoint := c.baseURL + "/host/"
	form := url.Values{"host": {ind.Canonical}}
	if ind.Kind == entity.KindURL {
		endpoint = c.baseURL + "/url/"
		form = url.Values{"url": {ind.Canonical}}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		res.Status, res.Message = entity.StatusError, fmt.Sprintf("create request: %v", err)
		res.LatencyMs = elapsedMs(started)
		return res
	}
	req.Header.Set("Auth-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body urlhausResponse
	res.Status, res.Message = execute(c.httpClient, req, &body)
	res.LatencyMs = elapsedMs(started)
	if res.Status != entity.StatusOK {
		return res
	}

	switch body.QueryStatus {
	case "ok":
	case "no_results":
		res.Status = entity.StatusNotFound
		return res
	default:
		res.Status = entity.StatusError
		res.Message = "query_status " + body.QueryStatus
		return res
	}

	if listed(body.Blacklists.SpamhausDBL) {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:       "Listed on Spamhaus DBL",
			Category:    entity.EvidenceBlocklist,
			Severity:    entity.SeverityHigh,
			Description: body.Blacklists.SpamhausDBL,
		})
	}
	if listed(body.Blacklists.SURBL) {
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:       "Listed on SURBL",
			Category:    entity.EvidenceBlocklist,
			Severity:    entity.SeverityHigh,
			Description: body.Blacklists.SURBL,
		})
	}

	if ind.Kind == entity.KindURL {
		if body.Threat != "" {
			res.Evidence = append(res.Evidence, entity.Evidence{
				Title:       "Known malware distribution URL",
				Category:    entity.EvidenceMalware,
				Severity:    urlStatusSeverity(body.URLStatus),
				Description: body.Threat,
				Attributes:  map[string]string{"tags": strings.Join(body.Tags, ",")},
			})
		}
	} else if n, _ := strconv.Atoi(body.URLCount); n > 0 {
		active := 0
		for _, u := range body.URLs {
			if u.URLStatus == "online" {
				active++
			}
		}
		res.Evidence = append(res.Evidence, entity.Evidence{
			Title:       fmt.Sprintf("Hosts %d known malicious URLs", n),
			Category:    entity.EvidenceMalware,
			Severity:    hostURLSeverity(active),
			Description: fmt.Sprintf("%d currently online", active),
		})
	}
	return res
}

// URLhaus reports blocklist state as e.g. "spammer_domain" or
// "not listed"
func listed(state string) bool {
	return state != "" && state != "not listed"
}

func urlStatusSeverity(status string) entity.Severity {
	if status == "online" {
		return entity.SeverityCritical
	}
	return entity.SeverityHigh
}

func hostURLSeverity(active int) entity.Severity {
	if active > 0 {
		return entity.SeverityCritical
	}
	return entity.SeverityHigh
}
