package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

func intp(v int) *int { return &v }

func okResult(provider string, reputation int) entity.ProviderResult {
	return entity.ProviderResult{
		Provider:   provider,
		Status:     entity.StatusOK,
		Reputation: intp(reputation),
	}
}

func TestScoreCleanConsensus(t *testing.T) {
	v := Score([]entity.ProviderResult{
		okResult("virustotal", 98),
		okResult("otx", 95),
		okResult("abuseipdb", 100),
	})

	assert.Equal(t, entity.VerdictClean, v.Category)
	assert.Less(t, v.Score, entity.ScoreUnknownMin)
	assert.Len(t, v.ContributingProviders, 3)
}

func TestScoreMaliciousConsensus(t *testing.T) {
	v := Score([]entity.ProviderResult{
		okResult("virustotal", 5),
		okResult("otx", 10),
		okResult("abuseipdb", 0),
	})

	assert.Equal(t, entity.VerdictMalicious, v.Category)
	assert.GreaterOrEqual(t, v.Score, entity.ScoreMaliciousMin)
}

func TestScoreDetectionRatio(t *testing.T) {
	v := Score([]entity.ProviderResult{
		{
			Provider:       "virustotal",
			Status:         entity.StatusOK,
			MaliciousCount: intp(45),
			TotalChecks:    intp(50),
		},
	})

	assert.Equal(t, 90, v.Score)
	assert.Equal(t, entity.VerdictMalicious, v.Category)
	assert.Equal(t, []string{"virustotal"}, v.ContributingProviders)
}

func TestScoreIgnoresFailedProviders(t *testing.T) {
	v := Score([]entity.ProviderResult{
		okResult("virustotal", 0),
		{Provider: "otx", Status: entity.StatusTimeout},
		{Provider: "abuseipdb", Status: entity.StatusAuthError},
	})

	// Failed providers must not dilute the single real signal.
	assert.Equal(t, 100, v.Score)
	assert.Equal(t, entity.VerdictMalicious, v.Category)
	assert.Equal(t, []string{"virustotal"}, v.ContributingProviders)
}

func TestScoreNoContributors(t *testing.T) {
	v := Score([]entity.ProviderResult{
		{Provider: "virustotal", Status: entity.StatusTimeout},
		{Provider: "otx", Status: entity.StatusNotFound},
	})

	assert.Equal(t, 0, v.Score)
	assert.Equal(t, entity.VerdictUnknown, v.Category)
	assert.Empty(t, v.ContributingProviders)
	assert.Contains(t, v.Explanation, "virustotal (timeout)")
	assert.Contains(t, v.Explanation, "otx (not_found)")
}

func TestScoreCategoricalEvidence(t *testing.T) {
	v := Score([]entity.ProviderResult{
		{
			Provider: "urlhaus",
			Status:   entity.StatusOK,
			Evidence: []entity.Evidence{{
				Title:    "Spamhaus DBL",
				Category: entity.EvidenceBlocklist,
				Severity: entity.SeverityHigh,
			}},
		},
	})

	assert.Equal(t, 100, v.Score)
	assert.Equal(t, entity.VerdictMalicious, v.Category)
}

func TestScoreLowSeverityEvidenceDoesNotContribute(t *testing.T) {
	v := Score([]entity.ProviderResult{
		{
			Provider: "otx",
			Status:   entity.StatusOK,
			Evidence: []entity.Evidence{{
				Title:    "community pulse",
				Category: entity.EvidencePulse,
				Severity: entity.SeverityLow,
			}},
		},
	})

	assert.Equal(t, entity.VerdictUnknown, v.Category)
	assert.Empty(t, v.ContributingProviders)
}

func TestScoreDeterministic(t *testing.T) {
	results := []entity.ProviderResult{
		okResult("virustotal", 40),
		okResult("abuseipdb", 70),
		{
			Provider:       "otx",
			Status:         entity.StatusOK,
			MaliciousCount: intp(3),
			TotalChecks:    intp(10),
		},
	}

	first := Score(results)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(results))
	}
}

func TestCategoryBucketsMonotonic(t *testing.T) {
	prev := entity.VerdictClean
	rank := map[entity.VerdictCategory]int{
		entity.VerdictClean:      0,
		entity.VerdictUnknown:    1,
		entity.VerdictSuspicious: 2,
		entity.VerdictMalicious:  3,
	}
	for s := 0; s <= 100; s++ {
		cur := entity.CategoryForScore(s)
		require.GreaterOrEqual(t, rank[cur], rank[prev], "score %d", s)
		prev = cur
	}
	assert.Equal(t, entity.VerdictClean, entity.CategoryForScore(19))
	assert.Equal(t, entity.VerdictUnknown, entity.CategoryForScore(20))
	assert.Equal(t, entity.VerdictSuspicious, entity.CategoryForScore(50))
	assert.Equal(t, entity.VerdictMalicious, entity.CategoryForScore(80))
}
