package lookup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/NaeeemJatt/FlashThreat/internal/domain/classify"
	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// HistoryRecorder persists completed lookups. Implementations must
// tolerate being called concurrently; failures only get logged.
type HistoryRecorder interface {
	SaveLookup(ctx context.Context, res *entity.AggregateResult) error
}

// ProviderInfo describes one provider for the status endpoint
type ProviderInfo struct {
	Name       string                 `json:"name"`
	Configured bool                   `json:"configured"`
	Supports   []entity.IndicatorKind `json:"supports"`
}

// Service is the lookup use case: classification, orchestration and
// history persistence behind a single entry point.
type Service struct {
	orch    *Orchestrator
	history HistoryRecorder
	logger  *slog.Logger
}

// NewService creates the lookup service. history may be nil when
// persistence is not configured.
func NewService(orch *Orchestrator, history HistoryRecorder, logger *slog.Logger) *Service {
	return &Service{orch: orch, history: history, logger: logger}
}

// Check classifies raw input and runs a full enrichment lookup.
// The only error it returns is a classification failure.
func (s *Service) Check(ctx context.Context, raw string, forceRefresh bool) (*entity.AggregateResult, error) {
	return s.run(ctx, raw, Options{ForceRefresh: forceRefresh})
}

// Stream behaves like Check but reports each provider settlement as
// it arrives. onSettled is invoked serially, in arrival order.
func (s *Service) Stream(ctx context.Context, raw string, forceRefresh bool,
	onSettled func(entity.ProviderResult)) (*entity.AggregateResult, error) {
	return s.run(ctx, raw, Options{ForceRefresh: forceRefresh, OnProviderSettled: onSettled})
}

func (s *Service) run(ctx context.Context, raw string, opts Options) (*entity.AggregateResult, error) {
	ind, err := classify.Classify(raw)
	if err != nil {
		return nil, err
	}

	res := s.orch.Run(ctx, ind, opts)
	res.LookupID = uuid.New().String()

	s.logger.Info("lookup completed",
		"lookup_id", res.LookupID,
		"kind", ind.Kind,
		"indicator", ind.Canonical,
		"score", res.Verdict.Score,
		"category", res.Verdict.Category,
		"total_ms", res.TotalMs)

	if s.history != nil {
		go s.saveLookup(res)
	}
	return res, nil
}

// saveLookup persists history without blocking the response
func (s *Service) saveLookup(res *entity.AggregateResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.SaveLookup(ctx, res); err != nil {
		s.logger.Error("failed to save lookup history",
			"lookup_id", res.LookupID, "error", err)
	}
}

// ProviderStatus lists every registered provider and whether it can
// be queried.
func (s *Service) ProviderStatus() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(s.orch.Providers()))
	for _, p := range s.orch.Providers() {
		info := ProviderInfo{Name: p.Name(), Configured: p.IsConfigured()}
		for _, kind := range entity.AllKinds() {
			if p.Supports(kind) {
				info.Supports = append(info.Supports, kind)
			}
		}
		infos = append(infos, info)
	}
	return infos
}
