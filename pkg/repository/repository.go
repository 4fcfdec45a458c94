package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query. It has the shape gorm expects for db.Scopes.
type Scope func(*gorm.DB) *gorm.DB

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, scopes ...Scope) (*T, error)
	Pluck(ctx context.Context, column string, dest any, scopes ...Scope) error
	Create(ctx context.Context, resource *T) error
	Delete(ctx context.Context, scopes ...Scope) (int64, error)
	Count(ctx context.Context, scopes ...Scope) (int64, error)
}

func Where(query any, args ...any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}

func OrderBy(order string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

func Limit(n int) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(n)
	}
}

func Select(columns ...string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select(columns)
	}
}
