package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	// CurrentSchemaVersion identifies the relational schema this build exports
	// and accepts. Snapshots from any other version are rejected.
	CurrentSchemaVersion = "008"
	// ExportVersion is the version of the snapshot document layout.
	ExportVersion = "1.0"

	unknownSchemaVersion = "unknown"
)

// Record is one entity in its JSON-safe form.
type Record map[string]any

// Snapshot is the portable export of a single tenant.
//
// Metadata and Data are nil when the corresponding key is missing from a
// decoded document. Data only holds known tables after decoding; any other
// data key is kept verbatim in Unknown.
type Snapshot struct {
	Metadata *Metadata                  `json:"metadata"`
	Data     map[string][]Record        `json:"data"`
	Unknown  map[string]json.RawMessage `json:"-"`
}

type snapshotDocument struct {
	Metadata *Metadata                  `json:"metadata"`
	Data     map[string]json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes known tables into records. Unknown tables are not
// interpreted, so their shape can never fail the document.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var doc snapshotDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	s.Metadata = doc.Metadata
	s.Data = nil
	s.Unknown = nil
	if doc.Data == nil {
		return nil
	}

	s.Data = make(map[string][]Record, len(doc.Data))
	for name, raw := range doc.Data {
		if _, known := ParseTable(name); !known {
			if s.Unknown == nil {
				s.Unknown = map[string]json.RawMessage{}
			}
			s.Unknown[name] = raw
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return fmt.Errorf("data.%s: %w", name, err)
		}
		s.Data[name] = records
	}
	return nil
}

type Metadata struct {
	SchemaVersion string         `json:"schema_version"`
	ExportVersion string         `json:"export_version"`
	ExportedAt    string         `json:"exported_at"`
	TenantID      string         `json:"tenant_id"`
	TenantName    string         `json:"tenant_name"`
	RecordCounts  map[string]int `json:"record_counts"`
}

// ParseSnapshot decodes a snapshot document. Only syntactically broken JSON is
// an error here; structural problems are reported by validation.
func ParseSnapshot(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &snap, nil
}

// ParseSnapshotBytes is ParseSnapshot for an in-memory document.
func ParseSnapshotBytes(b []byte) (*Snapshot, error) {
	return ParseSnapshot(bytes.NewReader(b))
}

// SchemaVersion returns the declared schema version or "unknown".
func (s *Snapshot) SchemaVersion() string {
	if s == nil || s.Metadata == nil || s.Metadata.SchemaVersion == "" {
		return unknownSchemaVersion
	}
	return s.Metadata.SchemaVersion
}

// Records returns the record list for a known table.
func (s *Snapshot) Records(t Table) ([]Record, bool) {
	if s == nil || s.Data == nil {
		return nil, false
	}
	records, ok := s.Data[string(t)]
	return records, ok
}

// TableNames lists every data key of the snapshot, known or not.
func (s *Snapshot) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Data)+len(s.Unknown))
	for name := range s.Data {
		names = append(names, name)
	}
	for name := range s.Unknown {
		if _, dup := s.Data[name]; !dup {
			names = append(names, name)
		}
	}
	return names
}

// RecordCounts counts the records of every table present in data. Unknown
// tables are counted when they hold a list.
func (s *Snapshot) RecordCounts() map[string]int {
	counts := make(map[string]int, len(s.Data)+len(s.Unknown))
	for table, records := range s.Data {
		counts[table] = len(records)
	}
	for table, raw := range s.Unknown {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err == nil {
			counts[table] = len(items)
		}
	}
	return counts
}

// NewMetadata stamps export metadata for the given tenant.
func NewMetadata(tenantID, tenantName string, exportedAt time.Time, counts map[string]int) *Metadata {
	return &Metadata{
		SchemaVersion: CurrentSchemaVersion,
		ExportVersion: ExportVersion,
		ExportedAt:    FormatTimestamp(exportedAt),
		TenantID:      tenantID,
		TenantName:    tenantName,
		RecordCounts:  counts,
	}
}

// TimestampLayout is the wire form of every timestamp in a snapshot.
const TimestampLayout = "2006-01-02T15:04:05.999999"

// FormatTimestamp renders t in UTC without a zone suffix.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
