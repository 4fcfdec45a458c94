package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/flyroom/internal/backup/domain"
	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	"github.com/smallbiznis/flyroom/internal/observability/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errRollback ends the run transaction without reporting a failure.
var errRollback = errors.New("rollback")

// Import restores a snapshot into the target tenant. The snapshot is validated
// first and refused with an *domain.InvalidSnapshotError when invalid. Every
// other outcome, including store failures, is reported in the result.
func (s *Service) Import(ctx context.Context, req domain.ImportRequest) (*domain.ImportResult, error) {
	mode, err := domain.ParseConflictMode(string(req.ConflictMode))
	if err != nil {
		return nil, err
	}
	tenant, err := s.GetTenant(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	if s.guard != nil {
		release, err := s.guard.Acquire(ctx, tenant.ID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	runID := ulid.Make().String()
	ctx = obscontext.WithTenantID(ctx, tenant.ID)
	ctx = obscontext.WithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "backup.Import")
	defer span.End()
	span.SetAttributes(
		attribute.String("backup.run_id", runID),
		attribute.String("backup.conflict_mode", string(mode)),
		attribute.Bool("backup.dry_run", req.DryRun),
	)

	started := s.clock.Now()
	log := logger.WithContext(ctx, s.log)

	validation, err := s.validate(ctx, s.repo, req.Snapshot, tenant.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !validation.IsValid {
		s.metrics.RecordImport(ctx, string(mode), req.DryRun, "refused", s.clock.Now().Sub(started))
		log.Warn("import refused", zap.Strings("errors", validation.Errors))
		return nil, &domain.InvalidSnapshotError{Validation: validation}
	}

	run := &importRun{
		svc:      s,
		log:      log,
		tenantID: tenant.ID,
		mode:     mode,
		dryRun:   req.DryRun,
		remap:    remapTable{},
		result: &domain.ImportResult{
			RunID:              runID,
			DryRun:             req.DryRun,
			ConflictMode:       mode,
			RecordsImported:    map[string]int{},
			RecordsSkipped:     map[string]int{},
			RecordsOverwritten: map[string]int{},
			Errors:             []string{},
			Warnings:           append([]string{}, validation.Warnings...),
		},
	}
	result := run.execute(ctx, req.Snapshot)

	outcome := "success"
	if !result.Success {
		outcome = "failure"
		span.SetStatus(codes.Error, "import failed")
	}
	elapsed := s.clock.Now().Sub(started)
	s.metrics.RecordImport(ctx, string(mode), req.DryRun, outcome, elapsed)
	if !req.DryRun && run.committed {
		for table, n := range result.RecordsImported {
			s.metrics.RecordImportRecords(ctx, table, "imported", n)
		}
		for table, n := range result.RecordsSkipped {
			s.metrics.RecordImportRecords(ctx, table, "skipped", n)
		}
		for table, n := range result.RecordsOverwritten {
			s.metrics.RecordImportRecords(ctx, table, "overwritten", n)
		}
	}

	log.Info("import finished",
		zap.Bool("success", result.Success),
		zap.Bool("committed", run.committed),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// importRun holds the state of one import. It is used by a single goroutine.
type importRun struct {
	svc      *Service
	log      *zap.Logger
	tenantID string
	mode     domain.ConflictMode
	dryRun   bool
	remap    remapTable
	result   *domain.ImportResult

	// unrecoverable is set by record and store failures. It makes the run
	// unsuccessful in every conflict mode.
	unrecoverable bool
	committed     bool
}

func (r *importRun) execute(ctx context.Context, snap *domain.Snapshot) *domain.ImportResult {
	err := r.svc.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := r.svc.repo.WithTx(tx)
		for _, table := range domain.ImportOrder {
			records, ok := snap.Records(table)
			if !ok {
				continue
			}
			stop, err := r.importTable(ctx, repo, table, records)
			if err != nil {
				return err
			}
			if stop {
				break
			}
		}

		if r.dryRun {
			return errRollback
		}
		if r.mode == domain.ConflictModeFail && len(r.result.Errors) > 0 {
			return errRollback
		}
		return nil
	})

	switch {
	case err == nil:
		r.committed = true
	case errors.Is(err, errRollback):
	default:
		r.unrecoverable = true
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Import failed: %v", err))
		r.log.Error("import failed", zap.Error(err))
	}

	r.result.Success = len(r.result.Errors) == 0 ||
		(r.mode != domain.ConflictModeFail && !r.unrecoverable)
	return r.result
}

// importTable imports the records of one table. It returns stop=true when the
// run must not continue with later tables. A returned error is a store
// failure that aborts the whole run.
func (r *importRun) importTable(ctx context.Context, repo domain.Repository, table domain.Table, records []domain.Record) (bool, error) {
	name := table.String()
	r.result.RecordsImported[name] = 0
	r.result.RecordsSkipped[name] = 0
	r.result.RecordsOverwritten[name] = 0

	ops, err := opsFor(table)
	if err != nil {
		return true, err
	}
	existing, err := ops.existing(ctx, repo, r.tenantID)
	if err != nil {
		return true, fmt.Errorf("load existing %s: %w", table, err)
	}
	key := ops.secondary

	for _, raw := range records {
		rec := r.remap.apply(table, raw)
		sourceID := stringField(raw, "id")
		identity := identityOf(table, rec)
		secondary := ""
		if key.Field != "" {
			secondary = stringField(rec, key.Field)
		}

		match, bySecondary := "", false
		if _, ok := existing.IDs[identity]; ok && identity != "" {
			match = identity
		} else if holder, ok := existing.Secondary[secondary]; ok && secondary != "" {
			match, bySecondary = holder, true
		}

		if match != "" {
			switch r.mode {
			case domain.ConflictModeSkip:
				r.result.RecordsSkipped[name]++
				if table != domain.TableStockTags {
					r.remap.set(table, sourceID, match)
				}
				continue
			case domain.ConflictModeOverwrite:
				if r.overwrite(ctx, repo, ops, rec, identity, match) {
					r.result.RecordsOverwritten[name]++
					replaceIdentity(existing, match, identity, secondary)
				}
				continue
			default:
				r.result.Errors = append(r.result.Errors, stopMessage(table, rec, identity, match, bySecondary, key.Field))
				return true, nil
			}
		}

		entity, err := ops.decode(rec, r.tenantID)
		if err == nil {
			err = r.insert(ctx, repo, table, entity)
		}
		if err != nil {
			r.recordFailure(table, identity, err)
			if r.mode == domain.ConflictModeFail {
				return true, nil
			}
			continue
		}

		r.result.RecordsImported[name]++
		if identity != "" {
			existing.IDs[identity] = struct{}{}
		}
		if secondary != "" {
			existing.Secondary[secondary] = identity
		}
	}
	return false, nil
}

// overwrite replaces the existing row match with rec, which keeps its own
// identity. Store rows that referenced match are moved onto the new row.
func (r *importRun) overwrite(ctx context.Context, repo domain.Repository, ops tableOps, rec domain.Record, identity, match string) bool {
	entity, err := ops.decode(rec, r.tenantID)
	if err != nil {
		r.recordFailure(ops.table, identity, err)
		return false
	}

	err = repo.Transaction(ctx, func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		if err := ops.delete(ctx, txRepo, r.tenantID, match); err != nil {
			return err
		}
		if err := txRepo.Insert(ctx, ops.table, entity); err != nil {
			return err
		}
		if match == identity {
			return nil
		}
		for _, ref := range referencesTo(ops.table) {
			if err := txRepo.Repoint(ctx, ref.source, ref.Field, match, identity); err != nil {
				return fmt.Errorf("repoint %s.%s: %w", ref.source, ref.Field, err)
			}
		}
		return nil
	})
	if err != nil {
		r.recordFailure(ops.table, identity, err)
		return false
	}
	return true
}

// replaceIdentity drops every key held by the replaced row old and records the
// keys of the row that took its place.
func replaceIdentity(existing *domain.Identities, old, identity, secondary string) {
	delete(existing.IDs, old)
	for value, holder := range existing.Secondary {
		if holder == old {
			delete(existing.Secondary, value)
		}
	}
	if identity != "" {
		existing.IDs[identity] = struct{}{}
	}
	if secondary != "" {
		existing.Secondary[secondary] = identity
	}
}

// insert writes one entity inside a savepoint so a failed row does not poison
// the run transaction.
func (r *importRun) insert(ctx context.Context, repo domain.Repository, table domain.Table, entity any) error {
	return repo.Transaction(ctx, func(tx *gorm.DB) error {
		return repo.WithTx(tx).Insert(ctx, table, entity)
	})
}

func (r *importRun) recordFailure(table domain.Table, identity string, err error) {
	r.unrecoverable = true
	r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to import %s record '%s': %v", table, identity, err))
	r.log.Warn("record import failed",
		zap.String("table", table.String()),
		zap.String("record_id", identity),
		zap.Error(err),
	)
}

func stopMessage(table domain.Table, rec domain.Record, identity, match string, bySecondary bool, keyField string) string {
	if !bySecondary {
		return fmt.Sprintf(
			"Import stopped: %s record '%s' already exists. Use 'skip' mode to skip duplicates or 'overwrite' mode to replace them.",
			table, identity,
		)
	}
	if table == domain.TableUsers {
		var b strings.Builder
		fmt.Fprintf(&b, "Import stopped: User with email '%s' already exists (existing user ID: '%s'). ", stringField(rec, "email"), match)
		b.WriteString("\n\nTo resolve this:\n")
		b.WriteString("• Use 'skip' mode to skip duplicate users and import other data (foreign keys will be automatically remapped)\n")
		b.WriteString("• Use 'overwrite' mode to replace existing users with backup data")
		return b.String()
	}
	return fmt.Sprintf(
		"Import stopped: %s record '%s' already exists (%s '%s'). Use 'skip' mode to skip duplicates or 'overwrite' mode to replace them.",
		table, identity, keyField, stringField(rec, keyField),
	)
}
