package entity

import (
	"fmt"
	"strings"
	"time"
)

// ProviderStatus is the terminal state of a single provider query.
// Provider failures are data, not errors.
type ProviderStatus string

const (
	StatusOK          ProviderStatus = "ok"
	StatusNotFound    ProviderStatus = "not_found"
	StatusAuthError   ProviderStatus = "auth_error"
	StatusRateLimited ProviderStatus = "rate_limited"
	StatusTimeout     ProviderStatus = "timeout"
	StatusError       ProviderStatus = "error"
)

// Cacheable reports whether a result with this status may be stored.
// Transient failures are never cached.
func (s ProviderStatus) Cacheable() bool {
	return s == StatusOK || s == StatusNotFound
}

// Severity grades a single piece of evidence
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Evidence is one normalized finding from a provider (a detection,
// a blocklist entry, a malware-family association)
type Evidence struct {
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	Severity    Severity          `json:"severity"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Evidence categories treated as categorically malicious by scoring
const (
	EvidenceBlocklist = "blocklist"
	EvidenceMalware   = "malware"
	EvidenceDetection = "detection"
	EvidencePulse     = "pulse"
	EvidenceContext   = "context"
)

// ProviderResult is the normalized outcome of one provider query.
// Numeric fields are pointers: a provider that does not report a value
// leaves it nil, which is distinct from reporting zero.
//
// Reputation expresses the provider's view of the indicator's standing
// on a 0..100 scale where 100 is pristine and 0 is known-bad.
type ProviderResult struct {
	Provider        string         `json:"provider"`
	Status          ProviderStatus `json:"status"`
	LatencyMs       int64          `json:"latency_ms"`
	Reputation      *int           `json:"reputation,omitempty"`
	MaliciousCount  *int           `json:"malicious_count,omitempty"`
	TotalChecks     *int           `json:"total_checks,omitempty"`
	Evidence        []Evidence     `json:"evidence,omitempty"`
	SourceLink      string         `json:"source_link,omitempty"`
	Message         string         `json:"message,omitempty"`
	Cached          bool           `json:"cached"`
	CacheAgeSeconds *int64         `json:"cache_age_seconds,omitempty"`
}

// VerdictCategory buckets the aggregate score
type VerdictCategory string

const (
	VerdictClean      VerdictCategory = "clean"
	VerdictUnknown    VerdictCategory = "unknown"
	VerdictSuspicious VerdictCategory = "suspicious"
	VerdictMalicious  VerdictCategory = "malicious"
)

// Aggregate score thresholds. Scores land in [0,100] with 100 worst.
const (
	ScoreMaliciousMin  = 80
	ScoreSuspiciousMin = 50
	ScoreUnknownMin    = 20
)

// CategoryForScore maps an aggregate score onto its verdict bucket
func CategoryForScore(score int) VerdictCategory {
	switch {
	case score >= ScoreMaliciousMin:
		return VerdictMalicious
	case score >= ScoreSuspiciousMin:
		return VerdictSuspicious
	case score >= ScoreUnknownMin:
		return VerdictUnknown
	default:
		return VerdictClean
	}
}

// Verdict is the weighted aggregate over all provider results
type Verdict struct {
	Score                 int             `json:"score"`
	Category              VerdictCategory `json:"category"`
	Explanation           string          `json:"explanation"`
	ContributingProviders []string        `json:"contributing_providers"`
}

// AggregateResult is the full outcome of one lookup
type AggregateResult struct {
	LookupID        string           `json:"lookup_id"`
	Indicator       Indicator        `json:"indicator"`
	ProviderResults []ProviderResult `json:"provider_results"`
	Verdict         Verdict          `json:"verdict"`
	TotalMs         int64            `json:"total_ms"`
	CompletedAt     time.Time        `json:"completed_at"`
}

// Summary renders a one-line description for logs and CSV export
func (r *AggregateResult) Summary() string {
	var ok int
	for _, pr := range r.ProviderResults {
		if pr.Status == StatusOK {
			ok++
		}
	}
	return fmt.Sprintf("%s %s score=%d (%s) providers=%d/%d",
		r.Indicator.Kind, r.Indicator.Canonical, r.Verdict.Score,
		r.Verdict.Category, ok, len(r.ProviderResults))
}

// ProviderStatuses returns "provider=status" pairs in result order
func (r *AggregateResult) ProviderStatuses() string {
	parts := make([]string, 0, len(r.ProviderResults))
	for _, pr := range r.ProviderResults {
		parts = append(parts, pr.Provider+"="+string(pr.Status))
	}
	return strings.Join(parts, ",")
}
