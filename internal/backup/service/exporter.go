package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/flyroom/internal/backup/codec"
	"github.com/smallbiznis/flyroom/internal/backup/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Export captures every backup-eligible row of a tenant. All tables are read
// inside one transaction so the snapshot is consistent.
func (s *Service) Export(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "backup.Export")
	defer span.End()

	snap, err := s.export(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		s.metrics.RecordExport(ctx, "failure")
		return nil, err
	}

	total := 0
	for _, n := range snap.Metadata.RecordCounts {
		total += n
	}
	span.SetAttributes(attribute.Int("backup.records", total))
	s.metrics.RecordExport(ctx, "success")
	s.log.Info("tenant exported",
		zap.String("tenant_id", snap.Metadata.TenantID),
		zap.Int("records", total),
	)
	return snap, nil
}

func (s *Service) export(ctx context.Context, tenantID string) (*domain.Snapshot, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	data := make(map[string][]domain.Record, len(domain.ImportOrder))
	counts := make(map[string]int, len(domain.ImportOrder))

	err = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var stockIDs []string

		for _, table := range domain.ImportOrder {
			ops, err := opsFor(table)
			if err != nil {
				return err
			}
			rows, err := ops.fetch(ctx, repo, tenant.ID, stockIDs)
			if err != nil {
				return fmt.Errorf("export %s: %w", table, err)
			}

			records := make([]domain.Record, 0, len(rows))
			for _, row := range rows {
				rec, err := codec.Encode(row)
				if err != nil {
					return fmt.Errorf("export %s: %w", table, err)
				}
				records = append(records, rec)

				if id, ok := stockIDOf(row); ok {
					stockIDs = append(stockIDs, id)
				}
			}

			data[table.String()] = records
			counts[table.String()] = len(records)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.Snapshot{
		Metadata: domain.NewMetadata(tenant.ID, tenant.Name, s.clock.Now(), counts),
		Data:     data,
	}, nil
}
