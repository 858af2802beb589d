package domain

import "time"

// Result classifies what happened to one user in one run. The values are
// mutually exclusive; every user loaded for a run yields exactly one.
type Result int

const (
	ResultSkipped Result = iota
	ResultDuplicate
	ResultSent
	ResultDeliveryFailed
	ResultGenerationFailed
	ResultUnclassified
)

func (r Result) String() string {
	switch r {
	case ResultSkipped:
		return "skipped"
	case ResultDuplicate:
		return "duplicate"
	case ResultSent:
		return "sent"
	case ResultDeliveryFailed:
		return "delivery_failed"
	case ResultGenerationFailed:
		return "generation_failed"
	case ResultUnclassified:
		return "error"
	}
	return "unknown"
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RunSummary holds the counters of one run.
//
//	UsersChecked = Skipped + Sent + Errors
//	Generated    = Sent + (delivery failures, which are also Errors)
type RunSummary struct {
	UsersChecked int `json:"usersChecked"`
	Generated    int `json:"generated"`
	Sent         int `json:"sent"`
	Skipped      int `json:"skipped"`
	Errors       int `json:"errors"`
}

// RunReport is what a finished run hands back to its trigger.
type RunReport struct {
	RunID       string     `json:"runId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt time.Time  `json:"timestamp"`
	Summary     RunSummary `json:"summary"`
}
