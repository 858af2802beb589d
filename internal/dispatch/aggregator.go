package dispatch

import (
	"sync"

	"github.com/notifyhub/weekly-dispatch/internal/domain"
)

// Tally is a counter set owned by a single worker. It is not safe for
// concurrent use; workers fill their own and merge into an Aggregator.
type Tally struct {
	summary domain.RunSummary
}

// Add rolls one per-user result into the counters.
func (t *Tally) Add(r domain.Result) {
	s := &t.summary
	s.UsersChecked++
	switch r {
	case domain.ResultSkipped, domain.ResultDuplicate:
		s.Skipped++
	case domain.ResultSent:
		s.Generated++
		s.Sent++
	case domain.ResultDeliveryFailed:
		s.Generated++
		s.Errors++
	default:
		s.Errors++
	}
}

// Summary returns the tally's counters.
func (t *Tally) Summary() domain.RunSummary {
	return t.summary
}

// Aggregator combines results from concurrent workers for one run.
// Every method is safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	total domain.RunSummary
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Accumulate adds a single result.
func (a *Aggregator) Accumulate(r domain.Result) {
	var t Tally
	t.Add(r)
	a.Merge(&t)
}

// Merge adds a worker's tally in one step.
func (a *Aggregator) Merge(t *Tally) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total.UsersChecked += t.summary.UsersChecked
	a.total.Generated += t.summary.Generated
	a.total.Sent += t.summary.Sent
	a.total.Skipped += t.summary.Skipped
	a.total.Errors += t.summary.Errors
}

// Summary returns a snapshot of the run's counters.
func (a *Aggregator) Summary() domain.RunSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
