package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ArchiveLog records one scheduled or manual archive attempt.
type ArchiveLog struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID     string       `gorm:"type:varchar(36);not null;index" json:"tenant_id"`
	Filename     string       `gorm:"type:varchar(255);not null" json:"filename"`
	ObjectKey    string       `gorm:"type:text" json:"object_key,omitempty"`
	SizeBytes    int64        `gorm:"not null;default:0" json:"size_bytes"`
	RecordCount  int          `gorm:"not null;default:0" json:"record_count"`
	DurationMS   int64        `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	Status       Status       `gorm:"type:varchar(20);not null" json:"status"`
	ErrorMessage *string      `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;index" json:"created_at"`
}

func (ArchiveLog) TableName() string { return "archive_logs" }
