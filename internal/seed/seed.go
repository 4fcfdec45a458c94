package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"github.com/smallbiznis/flyroom/pkg/db"
	"gorm.io/gorm"
)

const defaultTenantSlug = "default-lab"

// EnsureDefaultTenant returns the tenant whose slug derives from name,
// creating it when missing.
func EnsureDefaultTenant(ctx context.Context, conn *gorm.DB, name string) (*inv.Tenant, error) {
	if conn == nil {
		return nil, errors.New("seed database handle is required")
	}
	name = strings.TrimSpace(name)
	tenantSlug := slug.Make(name)
	if tenantSlug == "" {
		tenantSlug = defaultTenantSlug
	}
	if name == "" {
		name = tenantSlug
	}

	var tenant inv.Tenant
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slug = ?", tenantSlug).First(&tenant).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		tenant = inv.Tenant{
			ID:        uuid.NewString(),
			Name:      name,
			Slug:      tenantSlug,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&tenant).Error
	})
	if db.IsDuplicateKeyErr(err) {
		// Another replica seeded the tenant between our read and insert.
		tenant = inv.Tenant{}
		err = conn.WithContext(ctx).Where("slug = ?", tenantSlug).First(&tenant).Error
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
