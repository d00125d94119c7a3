package models

import "time"

// OutcomeStatus classifies what happened to one ISBN of a batch.
type OutcomeStatus string

const (
	StatusFetched   OutcomeStatus = "fetched"
	StatusDropped   OutcomeStatus = "dropped"
	StatusNotFound  OutcomeStatus = "not_found"
	StatusFailed    OutcomeStatus = "failed"
	StatusDuplicate OutcomeStatus = "duplicate"
)

// Outcome is the per-item result of one lookup attempt.
type Outcome struct {
	ISBN       string
	Position   int
	Status     OutcomeStatus
	StatusCode int
	Attempts   int
	ErrorType  string
	Err        error
}

// BatchReport holds the overall result of an ingestion run.
type BatchReport struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	FetchedCount int
	DroppedCount int
	FailedCount  int
	Duplicates   int
	RetryCount   int
	ErrorsByType map[string]int
	Outcomes     []Outcome
}

// NewBatchReport returns an empty report stamped with the current time.
func NewBatchReport(total int) *BatchReport {
	return &BatchReport{
		StartTime:    time.Now(),
		TotalCount:   total,
		ErrorsByType: make(map[string]int),
	}
}

// Record appends an outcome and updates the counters.
func (r *BatchReport) Record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Attempts > 1 {
		r.RetryCount += o.Attempts - 1
	}
	switch o.Status {
	case StatusFetched:
		r.FetchedCount++
	case StatusDropped:
		r.DroppedCount++
	case StatusDuplicate:
		r.Duplicates++
	case StatusNotFound, StatusFailed:
		r.FailedCount++
		if o.ErrorType != "" {
			r.ErrorsByType[o.ErrorType]++
		}
	}
}

// Failed returns the ISBNs that could not be fetched.
func (r *BatchReport) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == StatusNotFound || o.Status == StatusFailed {
			out = append(out, o.ISBN)
		}
	}
	return out
}
