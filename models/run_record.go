// models/run_record.go
package models

import (
	"sort"
	"time"
)

// CheckInRun is one orchestration pass over all configured accounts.
// Table name: check_in_runs
type CheckInRun struct {
	ID         string        `gorm:"primaryKey;type:uuid;not null" json:"id"`
	StartedAt  time.Time     `gorm:"not null;index" json:"started_at"`
	FinishedAt time.Time     `gorm:"not null" json:"finished_at"`
	Total      int           `gorm:"not null" json:"total"`
	Succeeded  int           `gorm:"not null" json:"succeeded"`
	Failed     int           `gorm:"not null" json:"failed"`
	Results    []ClaimRecord `gorm:"foreignKey:RunID" json:"results"`
}

// ClaimRecord persists a ClaimResult. Tokens and credentials are never stored.
type ClaimRecord struct {
	ID          string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	RunID       string    `gorm:"type:uuid;not null;index" json:"run_id"`
	Position    int       `gorm:"not null" json:"position"`
	AccountName string    `gorm:"type:varchar(128);not null" json:"account_name"`
	Success     bool      `gorm:"not null" json:"success"`
	Status      string    `gorm:"type:text" json:"status"`
	Rewards     string    `gorm:"type:text" json:"rewards"`
	CreatedAt   time.Time `json:"created_at"`
}

// Batch rebuilds the RunBatch from stored records, ordered by Position.
func (r *CheckInRun) Batch() RunBatch {
	records := make([]ClaimRecord, len(r.Results))
	copy(records, r.Results)
	sort.SliceStable(records, func(i, j int) bool { return records[i].Position < records[j].Position })

	batch := make(RunBatch, 0, len(records))
	for _, rec := range records {
		batch = append(batch, ClaimResult{
			Name:    rec.AccountName,
			Success: rec.Success,
			Status:  rec.Status,
			Rewards: rec.Rewards,
		})
	}
	return batch
}
