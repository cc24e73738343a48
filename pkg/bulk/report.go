package bulk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/planfinder/pkg/probe"
	"github.com/coolbeans/planfinder/pkg/types"
)

// Outcome is the per-authority result of a bulk run.
type Outcome struct {
	AuthorityID types.AuthorityID `json:"authority"`

	// Skipped marks authorities excluded from automated resolution.
	Skipped bool `json:"skipped,omitempty"`

	// Resolution is the probe outcome, nil when skipped.
	Resolution *probe.Resolution `json:"resolution,omitempty"`
}

// Report accumulates outcomes of a bulk resolution run.
type Report struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	NotFound int `json:"not_found"`
	Skipped  int `json:"skipped"`

	// TierCounts breaks down resolved authorities by winning tier.
	TierCounts map[types.Tier]int `json:"tier_counts"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Outcomes preserves input order.
	Outcomes []Outcome `json:"outcomes"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		TierCounts: make(map[types.Tier]int),
		Outcomes:   make([]Outcome, 0),
	}
}

// Add appends an outcome and updates the summary counters.
func (report *Report) Add(outcome Outcome) {
	report.Outcomes = append(report.Outcomes, outcome)
	report.Total++

	switch {
	case outcome.Skipped:
		report.Skipped++
	case outcome.Resolution != nil && outcome.Resolution.Found:
		report.Resolved++
		report.TierCounts[outcome.Resolution.Tier]++
	default:
		report.NotFound++
	}
}

// Finalize completes the report with timing information.
func (report *Report) Finalize() {
	report.CompletedAt = time.Now()
	report.DurationMs = report.CompletedAt.Sub(report.StartedAt).Milliseconds()
}

// ToJSON serializes the report to indented JSON.
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// String returns a human-readable summary of the run.
func (report *Report) String() string {
	var summaryBuilder strings.Builder

	summaryBuilder.WriteString("Local Plan Resolution Report\n")
	summaryBuilder.WriteString("============================\n\n")
	summaryBuilder.WriteString(fmt.Sprintf("Authorities:  %d\n", report.Total))
	summaryBuilder.WriteString(fmt.Sprintf("Resolved:     %d\n", report.Resolved))
	summaryBuilder.WriteString(fmt.Sprintf("Not found:    %d\n", report.NotFound))
	summaryBuilder.WriteString(fmt.Sprintf("Skipped:      %d\n", report.Skipped))
	summaryBuilder.WriteString(fmt.Sprintf("Duration:     %dms\n", report.DurationMs))

	if len(report.TierCounts) > 0 {
		summaryBuilder.WriteString("\nResolved by tier:\n")
		for _, tier := range []types.Tier{types.TierJointPlan, types.TierSuccessor, types.TierOfficialDomain, types.TierPattern} {
			if count := report.TierCounts[tier]; count > 0 {
				summaryBuilder.WriteString(fmt.Sprintf("  %-16s %d\n", tier, count))
			}
		}
	}

	notFound := report.NotFoundAuthorities()
	if len(notFound) > 0 {
		summaryBuilder.WriteString(fmt.Sprintf("\nNot found (%d):\n", len(notFound)))
		for _, id := range notFound {
			summaryBuilder.WriteString(fmt.Sprintf("  - %s\n", id))
		}
	}

	return summaryBuilder.String()
}

// NotFoundAuthorities returns the authorities that exhausted every
// candidate, in input order.
func (report *Report) NotFoundAuthorities() []types.AuthorityID {
	var ids []types.AuthorityID
	for _, outcome := range report.Outcomes {
		if !outcome.Skipped && (outcome.Resolution == nil || !outcome.Resolution.Found) {
			ids = append(ids, outcome.AuthorityID)
		}
	}
	return ids
}
