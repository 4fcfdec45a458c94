package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"github.com/smallbiznis/flyroom/pkg/repository"
	"gorm.io/gorm"
)

const tenantStocks = "stock_id IN (SELECT id FROM stocks WHERE tenant_id = ?)"

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *repo) FindTenant(ctx context.Context, tenantID string) (*inv.Tenant, error) {
	return repository.ProvideStore[inv.Tenant](r.db).FindOne(ctx, repository.Where("id = ?", tenantID))
}

func (r *repo) ListTenants(ctx context.Context) ([]inv.Tenant, error) {
	rows, err := repository.ProvideStore[inv.Tenant](r.db).Find(ctx,
		repository.Where("is_active = ?", true),
		repository.OrderBy("slug ASC"),
	)
	if err != nil {
		return nil, err
	}
	tenants := make([]inv.Tenant, 0, len(rows))
	for _, t := range rows {
		tenants = append(tenants, *t)
	}
	return tenants, nil
}

// tableScope restricts table to tenantID. Tables without a tenant column
// are owned through their stock.
func tableScope(table domain.Table, tenantID string) repository.Scope {
	if table.TenantOwned() {
		return repository.Where("tenant_id = ?", tenantID)
	}
	return repository.Where(tenantStocks, tenantID)
}

func (r *repo) Fetch(ctx context.Context, table domain.Table, dest any, tenantID string, stockIDs []string, order string) error {
	scope := repository.Where("tenant_id = ?", tenantID)
	if !table.TenantOwned() {
		if len(stockIDs) == 0 {
			return nil
		}
		scope = repository.Where("stock_id IN ?", stockIDs)
	}
	return r.db.WithContext(ctx).
		Table(table.String()).
		Scopes(scope, repository.OrderBy(order)).
		Find(dest).Error
}

type identityRow struct {
	ID        string
	Secondary string
}

type stockTagRow struct {
	StockID string
	TagID   string
}

func (r *repo) ExistingIdentities(ctx context.Context, table domain.Table, secondaryField, tenantID string) (*domain.Identities, error) {
	ids := &domain.Identities{IDs: map[string]struct{}{}, Secondary: map[string]string{}}
	query := r.db.WithContext(ctx).Table(table.String()).Scopes(tableScope(table, tenantID))

	if table == domain.TableStockTags {
		var rows []stockTagRow
		if err := query.Select("stock_id, tag_id").Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			ids.IDs[domain.StockTagIdentity(row.StockID, row.TagID)] = struct{}{}
		}
		return ids, nil
	}

	columns := "id, '' AS secondary"
	if secondaryField != "" {
		columns = fmt.Sprintf("id, %s AS secondary", secondaryField)
	}
	var rows []identityRow
	if err := query.Select(columns).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		ids.IDs[row.ID] = struct{}{}
		if secondaryField != "" {
			ids.Secondary[row.Secondary] = row.ID
		}
	}
	return ids, nil
}

func (r *repo) Insert(ctx context.Context, table domain.Table, entity any) error {
	if entity == nil {
		return fmt.Errorf("backup repository: nil %s entity", table)
	}
	return r.db.WithContext(ctx).Create(entity).Error
}

// Delete removes one row of table identified within tenantID. Rows of tables
// without a tenant column are only removed when their stock belongs to the
// tenant.
func (r *repo) Delete(ctx context.Context, table domain.Table, model any, tenantID, identity string) error {
	match := repository.Where("id = ?", identity)
	if table == domain.TableStockTags {
		stockID, tagID, ok := domain.SplitStockTagIdentity(identity)
		if !ok {
			return errors.New("backup repository: malformed stock tag identity")
		}
		match = repository.Where("stock_id = ? AND tag_id = ?", stockID, tagID)
	}
	return r.db.WithContext(ctx).
		Scopes(match, tableScope(table, tenantID)).
		Delete(model).Error
}

func (r *repo) Repoint(ctx context.Context, table domain.Table, field, from, to string) error {
	return r.db.WithContext(ctx).
		Table(table.String()).
		Where(field+" = ?", from).
		Update(field, to).Error
}
