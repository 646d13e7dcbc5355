// Package scoring computes the aggregate verdict from normalized
// provider results. It is pure and deterministic: the same inputs
// always produce the same verdict and explanation.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// Per-provider weights reflecting source reliability. Providers not
// listed here contribute with defaultWeight.
var providerWeights = map[string]float64{
	"virustotal": 0.5,
	"otx":        0.3,
	"abuseipdb":  0.2,
	"urlhaus":    0.1,
	"threatfox":  0.1,
}

const defaultWeight = 0.1

// Weight returns the scoring weight for a provider name
func Weight(provider string) float64 {
	if w, ok := providerWeights[provider]; ok {
		return w
	}
	return defaultWeight
}

type contribution struct {
	provider string
	weight   float64
	score    float64
	detail   string
}

// Score aggregates provider results into a verdict. Only providers
// that returned usable signal contribute; the weighted average runs
// over contributing weights, so a single provider's signal is never
// diluted by providers that failed or had nothing to say.
func Score(results []entity.ProviderResult) entity.Verdict {
	var contribs []contribution
	var silent []string

	for _, r := range results {
		c, ok := contribute(r)
		if !ok {
			silent = append(silent, fmt.Sprintf("%s (%s)", r.Provider, r.Status))
			continue
		}
		contribs = append(contribs, c)
	}

	if len(contribs) == 0 {
		return entity.Verdict{
			Score:                 0,
			Category:              entity.VerdictUnknown,
			Explanation:           "No provider returned usable signal: " + strings.Join(silent, ", ") + ".",
			ContributingProviders: []string{},
		}
	}

	var weighted, totalWeight float64
	for _, c := range contribs {
		weighted += c.weight * c.score
		totalWeight += c.weight
	}
	score := int(math.Round(weighted / totalWeight))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].score != contribs[j].score {
			return contribs[i].score > contribs[j].score
		}
		return contribs[i].provider < contribs[j].provider
	})

	names := make([]string, len(contribs))
	details := make([]string, len(contribs))
	for i, c := range contribs {
		names[i] = c.provider
		details[i] = c.detail
	}

	return entity.Verdict{
		Score:                 score,
		Category:              entity.CategoryForScore(score),
		Explanation:           explanation(entity.CategoryForScore(score), details),
		ContributingProviders: names,
	}
}

// contribute derives a provider's sub-score on the 0..100 badness
// scale, or reports that the provider has nothing to contribute.
// Precedence: reputation, then detection ratio, then bare
// categorically-malicious evidence.
func contribute(r entity.ProviderResult) (contribution, bool) {
	if r.Status != entity.StatusOK {
		return contribution{}, false
	}

	c := contribution{provider: r.Provider, weight: Weight(r.Provider)}

	switch {
	case r.Reputation != nil:
		c.score = clamp(100 - float64(*r.Reputation))
		c.detail = fmt.Sprintf("%s reputation %d/100", r.Provider, *r.Reputation)
	case r.MaliciousCount != nil && r.TotalChecks != nil && *r.TotalChecks > 0:
		c.score = clamp(100 * float64(*r.MaliciousCount) / float64(*r.TotalChecks))
		c.detail = fmt.Sprintf("%s flagged by %d/%d engines", r.Provider, *r.MaliciousCount, *r.TotalChecks)
	case hasMaliciousEvidence(r.Evidence):
		c.score = 100
		c.detail = fmt.Sprintf("%s lists it as known-bad", r.Provider)
	default:
		return contribution{}, false
	}
	return c, true
}

func hasMaliciousEvidence(evidence []entity.Evidence) bool {
	for _, ev := range evidence {
		if ev.Category != entity.EvidenceBlocklist && ev.Category != entity.EvidenceMalware {
			continue
		}
		if ev.Severity == entity.SeverityHigh || ev.Severity == entity.SeverityCritical {
			return true
		}
	}
	return false
}

func explanation(category entity.VerdictCategory, details []string) string {
	var lead string
	switch category {
	case entity.VerdictMalicious:
		lead = "Strong malicious consensus"
	case entity.VerdictSuspicious:
		lead = "Suspicious signals reported"
	case entity.VerdictUnknown:
		lead = "Weak or conflicting signals"
	default:
		lead = "No significant threat signals"
	}
	return lead + ": " + strings.Join(details, "; ") + "."
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
