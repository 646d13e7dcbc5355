package entity

import "time"

// BulkJobStatus is the lifecycle state of a bulk lookup job
type BulkJobStatus string

const (
	BulkPending   BulkJobStatus = "pending"
	BulkRunning   BulkJobStatus = "running"
	BulkCompleted BulkJobStatus = "completed"
)

// BulkItem is the outcome of a single line in a bulk submission.
// Failed items carry Error and no Result.
type BulkItem struct {
	Line   int              `json:"line"`
	Input  string           `json:"input"`
	Error  string           `json:"error,omitempty"`
	Result *AggregateResult `json:"result,omitempty"`
}

// BulkJob tracks a bulk lookup run. Counters satisfy
// Completed+Failed == Processed <= Total at every observable point;
// the job is terminal when Processed == Total.
type BulkJob struct {
	ID        string        `json:"job_id"`
	Status    BulkJobStatus `json:"status"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	CreatedAt time.Time     `json:"created_at"`
	DoneAt    *time.Time    `json:"done_at,omitempty"`
}

// Terminal reports whether the job has processed every item
func (j *BulkJob) Terminal() bool {
	return j.Processed == j.Total
}
