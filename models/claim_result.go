// models/claim_result.go
package models

import "time"

// ClaimResult is the outcome of one account's check-in for a single run.
type ClaimResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Rewards string `json:"rewards"`
}

// RunBatch holds one ClaimResult per configured profile, in configuration order.
type RunBatch []ClaimResult

// AllSucceeded reports whether every result in the batch succeeded.
// An empty batch counts as successful.
func (b RunBatch) AllSucceeded() bool {
	for _, r := range b {
		if !r.Success {
			return false
		}
	}
	return true
}

// Counts returns the number of succeeded and failed results.
func (b RunBatch) Counts() (succeeded, failed int) {
	for _, r := range b {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// RunSummary is what notifiers receive once a batch has finished.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Results    RunBatch  `json:"results"`
}
