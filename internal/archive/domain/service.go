package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Archive(ctx context.Context, tenantID string) (*ArchiveLog, error)
	ArchiveAll(ctx context.Context) (*ArchiveAllResult, error)
	List(ctx context.Context, tenantID string, page pagination.Pagination) (*ListResponse, error)
	Download(ctx context.Context, tenantID string, id snowflake.ID) (*Download, error)
	Prune(ctx context.Context, now time.Time) (*PruneResult, error)
}

type ListResponse struct {
	Archives []ArchiveLog `json:"archives"`
	pagination.PageInfo
}

// Download is a decrypted archive ready to serve.
type Download struct {
	Filename string
	Data     []byte
}

type ArchiveAllResult struct {
	Archived []string `json:"archived"`
	Skipped  []string `json:"skipped"`
	Failed   []string `json:"failed"`
}

type PruneResult struct {
	Removed       int `json:"removed"`
	BlobsRetained int `json:"blobs_retained"`
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, log *ArchiveLog) error
	List(ctx context.Context, db *gorm.DB, tenantID string, page pagination.Pagination) ([]*ArchiveLog, error)
	FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*ArchiveLog, error)
	ListOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]*ArchiveLog, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
