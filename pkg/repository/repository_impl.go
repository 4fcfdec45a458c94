package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, scopes ...Scope) ([]*T, error) {
	var result []*T
	err := r.buildQuery(ctx, scopes...).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, scopes ...Scope) (*T, error) {
	var result T
	err := r.buildQuery(ctx, scopes...).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Pluck(ctx context.Context, column string, dest any, scopes ...Scope) error {
	return r.buildQuery(ctx, scopes...).Pluck(column, dest).Error
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

// Delete removes the rows matched by scopes. At least one scope is required so
// a missing filter never wipes a table.
func (r *store[T]) Delete(ctx context.Context, scopes ...Scope) (int64, error) {
	if len(scopes) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	var dummy T
	res := r.buildQuery(ctx, scopes...).Delete(&dummy)
	return res.RowsAffected, res.Error
}

func (r *store[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var count int64
	err := r.buildQuery(ctx, scopes...).Count(&count).Error
	return count, err
}

func (s *store[T]) buildQuery(ctx context.Context, scopes ...Scope) *gorm.DB {
	db := s.db.WithContext(ctx).Model(new(T))
	for _, scope := range scopes {
		db = scope(db)
	}
	return db
}
