package domain

import (
	"fmt"
	"strings"
)

// ConflictMode decides what happens when an incoming record collides with
// existing data in the target tenant.
type ConflictMode string

const (
	ConflictModeFail      ConflictMode = "fail"
	ConflictModeSkip      ConflictMode = "skip"
	ConflictModeOverwrite ConflictMode = "overwrite"
)

// ParseConflictMode accepts the mode names case-insensitively. An empty value
// selects fail.
func ParseConflictMode(raw string) (ConflictMode, error) {
	switch ConflictMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConflictModeFail:
		return ConflictModeFail, nil
	case ConflictModeSkip:
		return ConflictModeSkip, nil
	case ConflictModeOverwrite:
		return ConflictModeOverwrite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidConflictMode, raw)
	}
}

type IssueType string

const (
	IssueDuplicateID      IssueType = "duplicate_id"
	IssueDuplicateEmail   IssueType = "duplicate_email"
	IssueDuplicateStockID IssueType = "duplicate_stock_id"
	IssueDuplicateName    IssueType = "duplicate_name"
)

// ValidationIssue is an advisory conflict between a snapshot record and the
// target tenant's existing data.
type ValidationIssue struct {
	Table     string    `json:"table"`
	RecordID  string    `json:"record_id"`
	IssueType IssueType `json:"issue_type"`
	Message   string    `json:"message"`
}

type ValidationResult struct {
	IsValid              bool              `json:"is_valid"`
	SchemaVersion        string            `json:"schema_version"`
	CurrentSchemaVersion string            `json:"current_schema_version"`
	SchemaCompatible     bool              `json:"schema_compatible"`
	RecordCounts         map[string]int    `json:"record_counts"`
	Conflicts            []ValidationIssue `json:"conflicts"`
	Warnings             []string          `json:"warnings"`
	Errors               []string          `json:"errors"`
}

type ImportRequest struct {
	TenantID     string
	Snapshot     *Snapshot
	ConflictMode ConflictMode
	DryRun       bool
}

type ImportResult struct {
	RunID              string         `json:"run_id"`
	Success            bool           `json:"success"`
	DryRun             bool           `json:"dry_run"`
	ConflictMode       ConflictMode   `json:"conflict_mode"`
	RecordsImported    map[string]int `json:"records_imported"`
	RecordsSkipped     map[string]int `json:"records_skipped"`
	RecordsOverwritten map[string]int `json:"records_overwritten"`
	Errors             []string       `json:"errors"`
	Warnings           []string       `json:"warnings"`
}
