package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

// Run kinds: pulling bills from Zoho vs applying synced bills to stock.
const (
	SyncRunKindBillSync       = "bill_sync"
	SyncRunKindBillProcessing = "bill_processing"
)

type SyncRun struct {
	ID             uint       `gorm:"primary_key" json:"id"`
	Kind           string     `gorm:"index;size:50;not null" json:"kind"`
	Status         string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy    string     `gorm:"size:20" json:"triggered_by"`
	StatsJSON      []byte     `gorm:"type:json" json:"stats"`
	RecordsSynced  int        `json:"records_synced"`
	RecordsSkipped int        `json:"records_skipped"`
	ErrorCount     int        `json:"error_count"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	DurationMs     int64      `json:"duration_ms"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type SyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// StartSyncRun inserts a running run row and returns it.
func StartSyncRun(ctx context.Context, db *gorm.DB, kind string, triggeredBy string) (*SyncRun, error) {
	now := time.Now()
	run := SyncRun{
		Kind:        kind,
		Status:      SyncRunStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   &now,
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FinishSyncRun closes a run with its final status and counters.
func FinishSyncRun(ctx context.Context, db *gorm.DB, run *SyncRun, status string, synced int, skipped int, errCount int, statsJSON []byte) error {
	now := time.Now()
	var durationMs int64
	if run.StartedAt != nil {
		durationMs = now.Sub(*run.StartedAt).Milliseconds()
	}
	updates := map[string]interface{}{
		"status":          status,
		"records_synced":  synced,
		"records_skipped": skipped,
		"error_count":     errCount,
		"finished_at":     &now,
		"duration_ms":     durationMs,
	}
	if len(statsJSON) > 0 {
		updates["stats_json"] = statsJSON
	}
	return db.WithContext(ctx).Model(&SyncRun{}).Where("id = ?", run.ID).Updates(updates).Error
}

// CreateSyncError records one per-record failure under a run. Errors here are
// logged by callers but never abort the run.
func CreateSyncError(ctx context.Context, db *gorm.DB, runID uint, entityType string, externalID string, message string, payloadJSON []byte, retryable bool) error {
	return db.WithContext(ctx).Create(&SyncError{
		SyncRunId:   runID,
		EntityType:  entityType,
		ExternalId:  externalID,
		Message:     message,
		PayloadJSON: payloadJSON,
		Retryable:   retryable,
	}).Error
}

// GetSyncRun returns a run with its recorded errors. (nil, nil) when missing.
func GetSyncRun(ctx context.Context, db *gorm.DB, runID uint) (*SyncRun, []SyncError, error) {
	var run SyncRun
	err := db.WithContext(ctx).Where("id = ?", runID).Take(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	var syncErrors []SyncError
	if err := db.WithContext(ctx).Where("sync_run_id = ?", runID).Order("id").Find(&syncErrors).Error; err != nil {
		return nil, nil, err
	}
	return &run, syncErrors, nil
}

// ListSyncRuns returns the most recent runs, newest first.
func ListSyncRuns(ctx context.Context, db *gorm.DB, kind string, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := db.WithContext(ctx).Model(&SyncRun{}).Order("id DESC").Limit(limit)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var runs []SyncRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
