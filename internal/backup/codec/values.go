package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
	"gorm.io/datatypes"
)

var parseLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

// now stamps created_at-style fields that are absent from a record.
var now = func() time.Time { return time.Now().UTC() }

// reader pulls typed fields out of a record. The first failure is kept and
// every later read becomes a no-op, so decoders can read all fields and check
// err once.
type reader struct {
	table domain.Table
	rec   domain.Record
	err   error
}

func newReader(table domain.Table, rec domain.Record) *reader {
	return &reader{table: table, rec: rec}
}

func (r *reader) fail(field, reason string) {
	if r.err == nil {
		r.err = &domain.MalformedRecordError{Table: r.table, Field: field, Reason: reason}
	}
}

func (r *reader) value(field string) (any, bool) {
	if r.err != nil {
		return nil, false
	}
	v, ok := r.rec[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *reader) requiredString(field string) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.value(field)
	if !ok {
		r.fail(field, "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, fmt.Sprintf("must be a string, got %T", v))
		return ""
	}
	return s
}

func (r *reader) optionalString(field string) *string {
	v, ok := r.value(field)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, fmt.Sprintf("must be a string, got %T", v))
		return nil
	}
	return &s
}

func (r *reader) stringOr(field, def string) string {
	if s := r.optionalString(field); s != nil && *s != "" {
		return *s
	}
	return def
}

func (r *reader) boolOr(field string, def bool) bool {
	v, ok := r.value(field)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, fmt.Sprintf("must be a boolean, got %T", v))
		return def
	}
	return b
}

func (r *reader) optionalInt(field string) *int {
	v, ok := r.value(field)
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		r.fail(field, err.Error())
		return nil
	}
	return &n
}

func (r *reader) intOr(field string, def int) int {
	if n := r.optionalInt(field); n != nil {
		return *n
	}
	return def
}

func (r *reader) optionalTime(field string) *time.Time {
	v, ok := r.value(field)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, fmt.Sprintf("must be a timestamp string, got %T", v))
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		r.fail(field, err.Error())
		return nil
	}
	return &t
}

// timeOrNow reads a timestamp that is mandatory in the store but optional in a
// record.
func (r *reader) timeOrNow(field string) time.Time {
	if t := r.optionalTime(field); t != nil {
		return *t
	}
	return now()
}

func (r *reader) jsonBlob(field string, def string) datatypes.JSON {
	v, ok := r.value(field)
	if !ok {
		if def == "" {
			return nil
		}
		return datatypes.JSON(def)
	}
	switch raw := v.(type) {
	case json.RawMessage:
		return datatypes.JSON(slices.Clone(raw))
	case datatypes.JSON:
		return slices.Clone(raw)
	default:
		b, err := json.Marshal(raw)
		if err != nil {
			r.fail(field, "is not JSON encodable")
			return nil
		}
		return datatypes.JSON(b)
	}
}

// enumOr reads an enum field. Absent, empty and unrecognised values all yield
// def.
func enumOr[T ~string](r *reader, field string, allowed []T, def T) T {
	s := r.optionalString(field)
	if s == nil || *s == "" {
		return def
	}
	if v := T(*s); slices.Contains(allowed, v) {
		return v
	}
	return def
}

// optionalEnum reads a nullable enum field without a default. Unrecognised
// values are malformed.
func optionalEnum[T ~string](r *reader, field string, allowed []T) *T {
	s := r.optionalString(field)
	if s == nil || *s == "" {
		return nil
	}
	v := T(*s)
	if !slices.Contains(allowed, v) {
		r.fail(field, fmt.Sprintf("has unknown value %q", *s))
		return nil
	}
	return &v
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %s", n.String())
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", v)
	}
}

// ParseTimestamp accepts the snapshot timestamp form plus zoned RFC 3339 and
// date-only values. The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("has unparseable timestamp %q", s)
}

func formatTime(t time.Time) string {
	return domain.FormatTimestamp(t)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func stringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intPtr(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func enumPtr[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func rawJSON(b datatypes.JSON) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(slices.Clone(b))
}
