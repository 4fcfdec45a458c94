package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/flyroom/internal/backup/codec"
	"github.com/smallbiznis/flyroom/internal/backup/domain"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
)

// tableOps is everything the engine does with one table: decode a record,
// fetch the tenant's rows, snapshot existing identities and delete a row.
type tableOps struct {
	table     domain.Table
	order     string
	secondary secondaryKey

	decode func(rec domain.Record, tenantID string) (any, error)
	model  func() any
	fetch  func(ctx context.Context, repo domain.Repository, tenantID string, stockIDs []string) ([]any, error)
}

func (o tableOps) existing(ctx context.Context, repo domain.Repository, tenantID string) (*domain.Identities, error) {
	return repo.ExistingIdentities(ctx, o.table, o.secondary.Field, tenantID)
}

func (o tableOps) delete(ctx context.Context, repo domain.Repository, tenantID, identity string) error {
	return repo.Delete(ctx, o.table, o.model(), tenantID, identity)
}

// registry holds the operations of every table, keyed by Table. It is built
// once and covers exactly domain.ImportOrder.
var registry = newRegistry()

func newRegistry() map[domain.Table]tableOps {
	entries := []tableOps{
		register(domain.TableUsers, "created_at ASC, id ASC", codec.DecodeUser),
		register(domain.TableTrays, "created_at ASC, id ASC", codec.DecodeTray),
		register(domain.TableTags, "name ASC, id ASC", codec.DecodeTag),
		register(domain.TableStocks, "created_at ASC, id ASC", codec.DecodeStock),
		register(domain.TableStockTags, "stock_id ASC, tag_id ASC", tenantless(codec.DecodeStockTag)),
		register(domain.TableCrosses, "created_at ASC, id ASC", codec.DecodeCross),
		register(domain.TableExternalReferences, "stock_id ASC, source ASC", tenantless(codec.DecodeExternalReference)),
		register(domain.TablePrintAgents, "created_at ASC, id ASC", codec.DecodePrintAgent),
		register(domain.TablePrintJobs, "created_at ASC, id ASC", codec.DecodePrintJob),
		register(domain.TableFlipEvents, "flipped_at ASC, id ASC", tenantless(codec.DecodeFlipEvent)),
	}

	ops := make(map[domain.Table]tableOps, len(entries))
	for _, entry := range entries {
		entry.secondary = secondaryKeys[entry.table]
		ops[entry.table] = entry
	}
	for _, table := range domain.ImportOrder {
		if _, ok := ops[table]; !ok {
			panic(fmt.Sprintf("backup: table %q has no registry entry", table))
		}
	}
	if len(ops) != len(domain.ImportOrder) {
		panic("backup: registry holds tables outside the import order")
	}
	return ops
}

// opsFor returns the operations of a known table.
func opsFor(table domain.Table) (tableOps, error) {
	ops, ok := registry[table]
	if !ok {
		return tableOps{}, fmt.Errorf("backup: unknown table %q", table)
	}
	return ops, nil
}

func register[T any](table domain.Table, order string, decode func(domain.Record, string) (*T, error)) tableOps {
	return tableOps{
		table: table,
		order: order,
		decode: func(rec domain.Record, tenantID string) (any, error) {
			entity, err := decode(rec, tenantID)
			if err != nil {
				return nil, err
			}
			return entity, nil
		},
		model: func() any { return new(T) },
		fetch: func(ctx context.Context, repo domain.Repository, tenantID string, stockIDs []string) ([]any, error) {
			var rows []*T
			if err := repo.Fetch(ctx, table, &rows, tenantID, stockIDs, order); err != nil {
				return nil, err
			}
			out := make([]any, 0, len(rows))
			for _, row := range rows {
				out = append(out, row)
			}
			return out, nil
		},
	}
}

// tenantless adapts decoders of tables that carry no tenant column.
func tenantless[T any](decode func(domain.Record) (*T, error)) func(domain.Record, string) (*T, error) {
	return func(rec domain.Record, _ string) (*T, error) {
		return decode(rec)
	}
}

// stockIDOf reports the row id of exported stocks, which scopes the tables
// that have no tenant column.
func stockIDOf(row any) (string, bool) {
	stock, ok := row.(*inv.Stock)
	if !ok {
		return "", false
	}
	return stock.ID, true
}
