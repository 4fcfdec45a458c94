package domain

import (
	"context"
	"strings"

	inventorydomain "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"gorm.io/gorm"
)

type Service interface {
	Export(ctx context.Context, tenantID string) (*Snapshot, error)
	Validate(ctx context.Context, snapshot *Snapshot, tenantID string) (*ValidationResult, error)
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)
	GetTenant(ctx context.Context, tenantID string) (*inventorydomain.Tenant, error)
	ListTenants(ctx context.Context) ([]inventorydomain.Tenant, error)
}

// ImportGuard serializes import runs per tenant. Acquire returns
// ErrImportInProgress when another run holds the tenant.
type ImportGuard interface {
	Acquire(ctx context.Context, tenantID string) (release func(), err error)
}

// Identities is the set of natural keys already present in a tenant's table.
type Identities struct {
	IDs map[string]struct{}
	// Secondary maps a secondary unique key (email, stock_id, name) to the id
	// of the row holding it.
	Secondary map[string]string
}

// StockTagIdentity is the composite identity of a stock-tag association.
func StockTagIdentity(stockID, tagID string) string {
	return stockID + ":" + tagID
}

func SplitStockTagIdentity(identity string) (stockID, tagID string, ok bool) {
	return strings.Cut(identity, ":")
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	FindTenant(ctx context.Context, tenantID string) (*inventorydomain.Tenant, error)
	ListTenants(ctx context.Context) ([]inventorydomain.Tenant, error)

	// Fetch loads the rows of table owned by tenantID into dest, a pointer to
	// a slice of models, in the given order. Tables without their own tenant
	// column are resolved through stockIDs.
	Fetch(ctx context.Context, table Table, dest any, tenantID string, stockIDs []string, order string) error
	// ExistingIdentities snapshots the identities of table within tenantID.
	// secondaryField, when set, also fills Identities.Secondary.
	ExistingIdentities(ctx context.Context, table Table, secondaryField, tenantID string) (*Identities, error)
	Insert(ctx context.Context, table Table, entity any) error
	// Delete removes the row of table with identity, using model for the
	// statement.
	Delete(ctx context.Context, table Table, model any, tenantID, identity string) error
	// Repoint rewrites field of table from one referenced id to another.
	Repoint(ctx context.Context, table Table, field, from, to string) error
}
