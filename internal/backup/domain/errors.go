package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrTenantNotFound      = errors.New("tenant_not_found")
	ErrInvalidConflictMode = errors.New("invalid_conflict_mode")
	ErrInvalidDocument     = errors.New("invalid_document")
	ErrInvalidSnapshot     = errors.New("invalid_snapshot")
	ErrMalformedRecord     = errors.New("malformed_record")
	ErrImportInProgress    = errors.New("import_in_progress")
)

// MalformedRecordError reports a record that cannot be decoded into an entity.
type MalformedRecordError struct {
	Table  Table
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed %s record: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("malformed %s record: field %q %s", e.Table, e.Field, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// InvalidSnapshotError is returned when an import is refused because the
// snapshot did not pass validation.
type InvalidSnapshotError struct {
	Validation *ValidationResult
}

func (e *InvalidSnapshotError) Error() string {
	if e.Validation == nil || len(e.Validation.Errors) == 0 {
		return ErrInvalidSnapshot.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSnapshot.Error(), e.Validation.Errors[0])
}

func (e *InvalidSnapshotError) Is(target error) bool {
	return target == ErrInvalidSnapshot
}
