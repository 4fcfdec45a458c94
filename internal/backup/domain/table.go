package domain

// Table names one backup-eligible entity kind. The set is closed: only the
// constants below are valid tables.
type Table string

const (
	TableUsers              Table = "users"
	TableTrays              Table = "trays"
	TableTags               Table = "tags"
	TableStocks             Table = "stocks"
	TableStockTags          Table = "stock_tags"
	TableCrosses            Table = "crosses"
	TableExternalReferences Table = "external_references"
	TablePrintAgents        Table = "print_agents"
	TablePrintJobs          Table = "print_jobs"
	TableFlipEvents         Table = "flip_events"
)

// ImportOrder is the dependency order of all tables. A table only references
// tables that appear before it.
var ImportOrder = []Table{
	TableUsers,
	TableTrays,
	TableTags,
	TableStocks,
	TableStockTags,
	TableCrosses,
	TableExternalReferences,
	TablePrintAgents,
	TablePrintJobs,
	TableFlipEvents,
}

var entityNames = map[Table]string{
	TableUsers:              "User",
	TableTrays:              "Tray",
	TableTags:               "Tag",
	TableStocks:             "Stock",
	TableStockTags:          "StockTag",
	TableCrosses:            "Cross",
	TableExternalReferences: "ExternalReference",
	TablePrintAgents:        "PrintAgent",
	TablePrintJobs:          "PrintJob",
	TableFlipEvents:         "FlipEvent",
}

// ParseTable resolves a snapshot data key to a known table.
func ParseTable(name string) (Table, bool) {
	t := Table(name)
	_, ok := entityNames[t]
	return t, ok
}

func (t Table) String() string { return string(t) }

// Entity returns the singular display name used in messages.
func (t Table) Entity() string {
	if name, ok := entityNames[t]; ok {
		return name
	}
	return string(t)
}

// Position returns the index of t in ImportOrder, or -1.
func (t Table) Position() int {
	for i, candidate := range ImportOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

// TenantOwned reports whether rows of t carry their own tenant_id column.
func (t Table) TenantOwned() bool {
	switch t {
	case TableStockTags, TableExternalReferences, TableFlipEvents:
		return false
	default:
		return true
	}
}
