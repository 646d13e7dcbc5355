// Package bulk processes many indicators through the lookup engine
// with a bounded worker pool and a shared rate limit.
package bulk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/NaeeemJatt/FlashThreat/internal/domain/classify"
	"github.com/NaeeemJatt/FlashThreat/internal/entity"
)

// Checker runs one enrichment lookup. Satisfied by lookup.Service.
type Checker interface {
	Check(ctx context.Context, raw string, forceRefresh bool) (*entity.AggregateResult, error)
}

type job struct {
	mu    sync.Mutex
	meta  entity.BulkJob
	items []entity.BulkItem
}

// Runner owns the in-memory job registry and the worker pool settings
type Runner struct {
	checker Checker
	workers int
	limiter *rate.Limiter
	logger  *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewRunner creates a bulk runner. ratePerSecond bounds how fast
// items may start across all jobs; zero disables throttling.
func NewRunner(checker Checker, workers int, ratePerSecond float64, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Runner{
		checker: checker,
		workers: workers,
		limiter: rate.NewLimiter(limit, workers),
		logger:  logger,
		jobs:    make(map[string]*job),
	}
}

type workItem struct {
	line  int
	input string
	ind   entity.Indicator
}

// Submit registers a job for the given input lines and starts
// processing in the background. Blank lines are ignored; lines that
// fail classification are recorded as failed items without any
// provider calls.
func (r *Runner) Submit(ctx context.Context, lines []string, forceRefresh bool) *entity.BulkJob {
	j := &job{meta: entity.BulkJob{
		ID:        uuid.New().String(),
		Status:    entity.BulkPending,
		CreatedAt: time.Now().UTC(),
	}}

	var queue []workItem
	lineNo := 0
	for _, raw := range lines {
		lineNo++
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		j.meta.Total++
		ind, err := classify.Classify(trimmed)
		if err != nil {
			j.items = append(j.items, entity.BulkItem{Line: lineNo, Input: trimmed, Error: err.Error()})
			j.meta.Processed++
			j.meta.Failed++
			continue
		}
		queue = append(queue, workItem{line: lineNo, input: trimmed, ind: ind})
	}

	r.mu.Lock()
	r.jobs[j.meta.ID] = j
	r.mu.Unlock()

	r.logger.Info("bulk job submitted",
		"job_id", j.meta.ID, "total", j.meta.Total, "malformed", j.meta.Failed)

	if len(queue) == 0 {
		j.finish()
		snapshot := j.snapshot()
		return &snapshot
	}

	j.mu.Lock()
	j.meta.Status = entity.BulkRunning
	j.mu.Unlock()

	// Detach from the caller's context: the submitting request
	// finishes long before the job does.
	go r.process(context.WithoutCancel(ctx), j, queue, forceRefresh)

	snapshot := j.snapshot()
	return &snapshot
}

func (r *Runner) process(ctx context.Context, j *job, queue []workItem, forceRefresh bool) {
	feed := make(chan workItem)
	var wg sync.WaitGroup

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range feed {
				r.processItem(ctx, j, item, forceRefresh)
			}
		}()
	}

	for _, item := range queue {
		feed <- item
	}
	close(feed)
	wg.Wait()

	j.finish()
	r.logger.Info("bulk job finished",
		"job_id", j.meta.ID, "completed", j.meta.Completed, "failed", j.meta.Failed)
}

// processItem runs one lookup. A panicking provider stack must not
// take the worker down, so the item is failed and the pool moves on.
func (r *Runner) processItem(ctx context.Context, j *job, item workItem, forceRefresh bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("bulk item panicked", "job_id", j.meta.ID, "line", item.line, "panic", rec)
			j.record(entity.BulkItem{Line: item.line, Input: item.input,
				Error: fmt.Sprintf("internal error: %v", rec)}, false)
		}
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		j.record(entity.BulkItem{Line: item.line, Input: item.input, Error: err.Error()}, false)
		return
	}

	res, err := r.checker.Check(ctx, item.input, forceRefresh)
	if err != nil {
		j.record(entity.BulkItem{Line: item.line, Input: item.input, Error: err.Error()}, false)
		return
	}
	j.record(entity.BulkItem{Line: item.line, Input: item.input, Result: res}, true)
}

// Progress returns a snapshot of the job's counters
func (r *Runner) Progress(id string) (*entity.BulkJob, bool) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	snapshot := j.snapshot()
	return &snapshot, true
}

// Results returns the items recorded so far, ordered by input line
func (r *Runner) Results(id string) ([]entity.BulkItem, bool) {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	j.mu.Lock()
	items := make([]entity.BulkItem, len(j.items))
	copy(items, j.items)
	j.mu.Unlock()

	sort.Slice(items, func(a, b int) bool { return items[a].Line < items[b].Line })
	return items, true
}

// WriteCSV streams the job's results as CSV
func (r *Runner) WriteCSV(w io.Writer, id string) error {
	items, ok := r.Results(id)
	if !ok {
		return fmt.Errorf("bulk job %s not found", id)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"input", "kind", "canonical", "score", "category", "providers", "error"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range items {
		row := []string{item.Input, "", "", "", "", "", item.Error}
		if res := item.Result; res != nil {
			row[1] = string(res.Indicator.Kind)
			row[2] = res.Indicator.Canonical
			row[3] = strconv.Itoa(res.Verdict.Score)
			row[4] = string(res.Verdict.Category)
			row[5] = res.ProviderStatuses()
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (j *job) record(item entity.BulkItem, completed bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.items = append(j.items, item)
	j.meta.Processed++
	if completed {
		j.meta.Completed++
	} else {
		j.meta.Failed++
	}
}

func (j *job) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.meta.Status = entity.BulkCompleted
	now := time.Now().UTC()
	j.meta.DoneAt = &now
}

func (j *job) snapshot() entity.BulkJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.meta
}
