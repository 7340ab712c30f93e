package models

import "time"

// Job is one tracked background run (sync, parse, rebuild). run_id is
// handed back to the caller immediately; progress is polled via the jobs
// API. Description carries the failure text, including per-entity
// failures when a multi-merchant run partially succeeds.
type Job struct {
	RunId        string    `gorm:"primaryKey;size:64" json:"run_id"`
	JobType      JobType   `gorm:"size:30;not null;index;index:idx_job_type_status,priority:1" json:"job_type"`
	Platform     string    `gorm:"size:50;index" json:"platform"`
	AccountLabel string    `gorm:"size:64;index" json:"account_label"`
	FromDate     *DateOnly `gorm:"type:date" json:"from_date"`
	ToDate       *DateOnly `gorm:"type:date" json:"to_date"`

	Status            JobStatus `gorm:"size:20;not null;index;index:idx_job_type_status,priority:2" json:"status"`
	Filename          string    `gorm:"size:255" json:"filename"`
	TransactionsCount int       `gorm:"not null;default:0" json:"transactions_count"`
	Description       string    `gorm:"type:text" json:"description"`

	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
