package models

import "time"

// SummaryStatus is the terminal state of a summarization run for one paper.
type SummaryStatus string

const (
	// StatusSucceeded means a provider produced all four sections.
	StatusSucceeded SummaryStatus = "succeeded"

	// StatusDegraded means every provider failed and the rule-based
	// fallback template filled the sections from the abstract.
	StatusDegraded SummaryStatus = "degraded"

	// StatusFailed is reserved for results that could not be produced at
	// all. The engine never emits it for a completed run; it exists so
	// stored rows from interrupted runs are representable.
	StatusFailed SummaryStatus = "failed"
)

// Terminal reports whether the status is a terminal summarization state.
func (s SummaryStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusDegraded || s == StatusFailed
}

// SummarySections holds the four structured parts of a paper summary.
// All four are non-empty when the producing run succeeded; the degraded
// template also fills all four.
type SummarySections struct {
	Problem    string `json:"problem"`
	Innovation string `json:"innovation"`
	Impact     string `json:"impact"`
	Analogy    string `json:"analogy"`
}

// Complete reports whether every section has content.
func (s *SummarySections) Complete() bool {
	return s != nil && s.Problem != "" && s.Innovation != "" && s.Impact != "" && s.Analogy != ""
}

// SummaryResult is the outcome of summarizing one paper. It is immutable
// once Status is terminal; regeneration supersedes it with a new result
// rather than mutating in place.
type SummaryResult struct {
	PaperID     string          `json:"paper_id"`
	ContentHash string          `json:"content_hash"`
	Sections    SummarySections `json:"sections"`

	// Provider names the backend that produced the sections, or
	// "fallback" for a degraded result.
	Provider string        `json:"provider"`
	Status   SummaryStatus `json:"status"`
	Attempts int           `json:"attempts"`

	CreatedAt time.Time `json:"created_at"`
}
