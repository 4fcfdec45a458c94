package service

import (
	"encoding/json"
	"fmt"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
)

// reference declares one foreign-key field of a table. The same declarations
// drive snapshot validation and id remapping during import.
type reference struct {
	Field    string
	Target   domain.Table
	Role     string
	Required bool
}

var references = map[domain.Table][]reference{
	domain.TableStocks: {
		{Field: "tray_id", Target: domain.TableTrays, Role: "tray"},
		{Field: "owner_id", Target: domain.TableUsers, Role: "owner"},
		{Field: "created_by_id", Target: domain.TableUsers, Role: "creator"},
		{Field: "modified_by_id", Target: domain.TableUsers, Role: "modifier"},
	},
	domain.TableStockTags: {
		{Field: "stock_id", Target: domain.TableStocks, Role: "stock", Required: true},
		{Field: "tag_id", Target: domain.TableTags, Role: "tag", Required: true},
	},
	domain.TableCrosses: {
		{Field: "parent_female_id", Target: domain.TableStocks, Role: "female parent", Required: true},
		{Field: "parent_male_id", Target: domain.TableStocks, Role: "male parent", Required: true},
		{Field: "offspring_id", Target: domain.TableStocks, Role: "offspring"},
		{Field: "created_by_id", Target: domain.TableUsers, Role: "creator"},
	},
	domain.TableExternalReferences: {
		{Field: "stock_id", Target: domain.TableStocks, Role: "stock", Required: true},
	},
	domain.TablePrintJobs: {
		{Field: "agent_id", Target: domain.TablePrintAgents, Role: "agent"},
		{Field: "created_by_id", Target: domain.TableUsers, Role: "creator"},
	},
	domain.TableFlipEvents: {
		{Field: "stock_id", Target: domain.TableStocks, Role: "stock", Required: true},
		{Field: "flipped_by_id", Target: domain.TableUsers, Role: "flipper"},
	},
}

// secondaryKey is a per-tenant unique natural key other than the id.
type secondaryKey struct {
	Field string
	Issue domain.IssueType
}

var secondaryKeys = map[domain.Table]secondaryKey{
	domain.TableUsers:  {Field: "email", Issue: domain.IssueDuplicateEmail},
	domain.TableTrays:  {Field: "name", Issue: domain.IssueDuplicateName},
	domain.TableTags:   {Field: "name", Issue: domain.IssueDuplicateName},
	domain.TableStocks: {Field: "stock_id", Issue: domain.IssueDuplicateStockID},
}

// stringField reads a record field as a string. Absent and null fields read as
// the empty string.
func stringField(rec domain.Record, field string) string {
	switch v := rec[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// identityOf returns the natural identity of a record within its table.
func identityOf(table domain.Table, rec domain.Record) string {
	if table == domain.TableStockTags {
		stockID, tagID := stringField(rec, "stock_id"), stringField(rec, "tag_id")
		if stockID == "" || tagID == "" {
			return ""
		}
		return domain.StockTagIdentity(stockID, tagID)
	}
	return stringField(rec, "id")
}

// incomingReference is a reference declared on source.
type incomingReference struct {
	reference
	source domain.Table
}

// referencesTo lists the fields of every table that point at target, in
// import order.
func referencesTo(target domain.Table) []incomingReference {
	var out []incomingReference
	for _, source := range domain.ImportOrder {
		for _, ref := range references[source] {
			if ref.Target == target {
				out = append(out, incomingReference{reference: ref, source: source})
			}
		}
	}
	return out
}
