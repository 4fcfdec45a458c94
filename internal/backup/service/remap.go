package service

import "github.com/smallbiznis/flyroom/internal/backup/domain"

// remapTable records snapshot ids that were resolved to different rows of the
// target tenant, keyed by the table the id belongs to.
type remapTable map[domain.Table]map[string]string

func (m remapTable) set(table domain.Table, from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	if m[table] == nil {
		m[table] = map[string]string{}
	}
	m[table][from] = to
}

func (m remapTable) lookup(table domain.Table, id string) (string, bool) {
	to, ok := m[table][id]
	return to, ok
}

// apply returns a copy of rec with every declared foreign key rewritten
// through the table. rec itself is never modified.
func (m remapTable) apply(table domain.Table, rec domain.Record) domain.Record {
	out := make(domain.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, ref := range references[table] {
		id := stringField(rec, ref.Field)
		if id == "" {
			continue
		}
		if to, ok := m.lookup(ref.Target, id); ok {
			out[ref.Field] = to
		}
	}
	return out
}
