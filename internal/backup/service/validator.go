package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Validate checks a snapshot against the target tenant without writing.
// Conflicts with existing data are advisory; only structural, schema and
// referential problems make the snapshot invalid.
func (s *Service) Validate(ctx context.Context, snap *domain.Snapshot, tenantID string) (*domain.ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "backup.Validate")
	defer span.End()

	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.validate(ctx, s.repo, snap, tenant.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("backup.valid", result.IsValid),
		attribute.Int("backup.conflicts", len(result.Conflicts)),
	)
	s.metrics.RecordValidation(ctx, result.IsValid)
	s.log.Debug("snapshot validated",
		zap.String("tenant_id", tenant.ID),
		zap.Bool("is_valid", result.IsValid),
		zap.Int("errors", len(result.Errors)),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

func (s *Service) validate(ctx context.Context, repo domain.Repository, snap *domain.Snapshot, tenantID string) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{
		SchemaVersion:        snap.SchemaVersion(),
		CurrentSchemaVersion: domain.CurrentSchemaVersion,
		RecordCounts:         map[string]int{},
		Conflicts:            []domain.ValidationIssue{},
		Warnings:             []string{},
		Errors:               []string{},
	}

	if snap == nil || snap.Metadata == nil {
		result.SchemaVersion = "unknown"
		result.Errors = append(result.Errors, "Missing 'metadata' section in backup file")
		return result, nil
	}
	if snap.Data == nil {
		result.SchemaVersion = "unknown"
		result.Errors = append(result.Errors, "Missing 'data' section in backup file")
		return result, nil
	}

	result.SchemaCompatible = result.SchemaVersion == domain.CurrentSchemaVersion
	if !result.SchemaCompatible {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"Schema version '%s' is not compatible with current version '%s'",
			result.SchemaVersion, domain.CurrentSchemaVersion,
		))
	}

	result.RecordCounts = snap.RecordCounts()
	result.Warnings = append(result.Warnings, unknownTableWarnings(snap)...)

	conflicts, err := findConflicts(ctx, repo, snap, tenantID)
	if err != nil {
		return nil, err
	}
	result.Conflicts = append(result.Conflicts, conflicts...)
	result.Errors = append(result.Errors, referenceErrors(snap)...)

	result.IsValid = len(result.Errors) == 0 && result.SchemaCompatible
	return result, nil
}

func unknownTableWarnings(snap *domain.Snapshot) []string {
	var names []string
	for _, name := range snap.TableNames() {
		if _, ok := domain.ParseTable(name); !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	warnings := make([]string, 0, len(names))
	for _, name := range names {
		warnings = append(warnings, fmt.Sprintf("Unknown table '%s' will be ignored", name))
	}
	return warnings
}

func findConflicts(ctx context.Context, repo domain.Repository, snap *domain.Snapshot, tenantID string) ([]domain.ValidationIssue, error) {
	var issues []domain.ValidationIssue

	for _, table := range domain.ImportOrder {
		records, ok := snap.Records(table)
		if !ok || len(records) == 0 {
			continue
		}

		ops, err := opsFor(table)
		if err != nil {
			return nil, err
		}
		existing, err := ops.existing(ctx, repo, tenantID)
		if err != nil {
			return nil, fmt.Errorf("load existing %s: %w", table, err)
		}
		key := ops.secondary

		for _, rec := range records {
			identity := identityOf(table, rec)
			if identity != "" {
				if _, ok := existing.IDs[identity]; ok {
					issues = append(issues, domain.ValidationIssue{
						Table:     table.String(),
						RecordID:  identity,
						IssueType: domain.IssueDuplicateID,
						Message: fmt.Sprintf(
							"%s record with ID '%s' already exists. Use 'skip' mode to skip duplicates or 'overwrite' mode to replace them.",
							table, identity,
						),
					})
				}
			}

			if key.Field == "" {
				continue
			}
			value := stringField(rec, key.Field)
			if value == "" {
				continue
			}
			if holder, ok := existing.Secondary[value]; ok && holder != identity {
				issues = append(issues, domain.ValidationIssue{
					Table:     table.String(),
					RecordID:  identity,
					IssueType: key.Issue,
					Message:   secondaryConflictMessage(table, value),
				})
			}
		}
	}
	return issues, nil
}

func secondaryConflictMessage(table domain.Table, value string) string {
	switch table {
	case domain.TableUsers:
		return fmt.Sprintf(
			"User with email '%s' already exists in this tenant. Use 'skip' mode to skip this user and remap their records, or 'overwrite' mode to replace the existing user.",
			value,
		)
	case domain.TableStocks:
		return fmt.Sprintf(
			"Stock ID '%s' already exists in this tenant. Use 'skip' mode to skip duplicates or 'overwrite' mode to replace them.",
			value,
		)
	default:
		return fmt.Sprintf(
			"%s name '%s' already exists in this tenant. Use 'skip' mode to skip duplicates or 'overwrite' mode to replace them.",
			table.Entity(), value,
		)
	}
}

// referenceErrors checks that every foreign key inside the snapshot resolves
// to a record of the snapshot. Each violation is its own error.
func referenceErrors(snap *domain.Snapshot) []string {
	ids := make(map[domain.Table]map[string]struct{}, len(domain.ImportOrder))
	for _, table := range domain.ImportOrder {
		set := map[string]struct{}{}
		records, _ := snap.Records(table)
		for _, rec := range records {
			if id := stringField(rec, "id"); id != "" {
				set[id] = struct{}{}
			}
		}
		ids[table] = set
	}

	var errs []string
	for _, table := range domain.ImportOrder {
		refs := references[table]
		if len(refs) == 0 {
			continue
		}
		records, _ := snap.Records(table)
		for _, rec := range records {
			subject := table.Entity()
			if table != domain.TableStockTags {
				subject = fmt.Sprintf("%s '%s'", table.Entity(), stringField(rec, "id"))
			}

			for _, ref := range refs {
				target := stringField(rec, ref.Field)
				if target == "" {
					if ref.Required {
						errs = append(errs, fmt.Sprintf("%s is missing required %s reference", subject, ref.Role))
					}
					continue
				}
				if _, ok := ids[ref.Target][target]; !ok {
					errs = append(errs, fmt.Sprintf("%s references non-existent %s '%s'", subject, ref.Role, target))
				}
			}
		}
	}
	return errs
}
