package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyroom/internal/archive/domain"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, log *domain.ArchiveLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID string, page pagination.Pagination) ([]*domain.ArchiveLog, error) {
	keyset, err := pagination.Keyset(page)
	if err != nil {
		return nil, err
	}

	var logs []*domain.ArchiveLog
	err = db.WithContext(ctx).
		Model(&domain.ArchiveLog{}).
		Where("tenant_id = ?", tenantID).
		Scopes(keyset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID string, id snowflake.ID) (*domain.ArchiveLog, error) {
	var log domain.ArchiveLog
	err := db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id.Int64(), tenantID).
		Take(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repo) ListOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]*domain.ArchiveLog, error) {
	var logs []*domain.ArchiveLog
	err := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("id ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id.Int64()).Delete(&domain.ArchiveLog{}).Error
}
