package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyroom/internal/archive/domain"
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/smallbiznis/flyroom/internal/blob"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	"github.com/smallbiznis/flyroom/internal/observability/metrics"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	contentType     = "application/octet-stream"
	archiveSuffix   = ".json.sz.enc"
	timestampFormat = "20060102_150405"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Backup  backupdomain.Service
	Store   blob.Store
	Config  config.Config
	Policy  *config.BackupPolicyHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	backup  backupdomain.Service
	store   blob.Store
	prefix  string
	policy  *config.BackupPolicyHolder
	clock   clock.Clock
	metrics *metrics.Metrics
	tracer  trace.Tracer

	sealer *sealer
	keyErr error
}

func New(p Params) domain.Service {
	return NewService(p)
}

// NewService builds the archive service. An absent or malformed key does not
// fail construction; archive and download calls report it instead.
func NewService(p Params) *Service {
	log := p.Log.Named("archive.service")
	svc := &Service{
		db:      p.DB,
		log:     log,
		genID:   p.GenID,
		repo:    p.Repo,
		backup:  p.Backup,
		store:   p.Store,
		prefix:  strings.Trim(p.Config.Blob.Prefix, "/"),
		policy:  p.Policy,
		clock:   p.Clock,
		metrics: p.Metrics,
		tracer:  otel.Tracer("flyroom/archive"),
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if svc.policy == nil {
		svc.policy = config.NewStaticBackupPolicyHolder(config.DefaultBackupPolicy())
	}

	key, err := p.Config.Backup.DecodeEncryptionKey()
	if err == nil {
		svc.sealer, err = newSealer(key)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrEncryptionKeyInvalid) {
			err = fmt.Errorf("%w: %v", domain.ErrEncryptionKeyInvalid, err)
		}
		svc.keyErr = err
		log.Warn("archiving disabled", zap.Error(err))
	}
	return svc
}

func (s *Service) Archive(ctx context.Context, tenantID string) (*domain.ArchiveLog, error) {
	tenant, err := s.backup.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ctx = obscontext.WithTenantID(ctx, tenant.ID)
	ctx, span := s.tracer.Start(ctx, "archive.Archive")
	defer span.End()

	started := s.clock.Now()
	filename := fmt.Sprintf("%s_backup_%s%s", tenant.Slug, started.UTC().Format(timestampFormat), archiveSuffix)
	entry := &domain.ArchiveLog{
		ID:        s.genID.Generate(),
		TenantID:  tenant.ID,
		Filename:  filename,
		Status:    domain.StatusFailed,
		CreatedAt: started,
	}
	span.SetAttributes(attribute.String("archive.id", entry.ID.String()))

	if err := s.archive(ctx, tenant.Slug, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive failed")
		return nil, s.fail(ctx, entry, started, err)
	}

	entry.Status = domain.StatusSuccess
	entry.DurationMS = s.clock.Now().Sub(started).Milliseconds()
	if err := s.repo.Create(ctx, s.db, entry); err != nil {
		return nil, err
	}
	s.metrics.RecordArchive(ctx, "create", "success")
	s.log.Info("tenant archived",
		zap.String("tenant_id", entry.TenantID),
		zap.String("object_key", entry.ObjectKey),
		zap.Int64("size_bytes", entry.SizeBytes),
		zap.Int("record_count", entry.RecordCount),
	)
	return entry, nil
}

func (s *Service) archive(ctx context.Context, slug string, entry *domain.ArchiveLog) error {
	if s.keyErr != nil {
		return s.keyErr
	}

	snap, err := s.backup.Export(ctx, entry.TenantID)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	sealed, err := s.sealer.seal(doc)
	if err != nil {
		return err
	}

	key := path.Join(s.prefix, slug, entry.Filename)
	info, err := s.store.Put(ctx, key, bytes.NewReader(sealed), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"tenant-id":      entry.TenantID,
			"schema-version": snap.Metadata.SchemaVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBlobStore, err)
	}

	for _, n := range snap.Metadata.RecordCounts {
		entry.RecordCount += n
	}
	entry.ObjectKey = key
	entry.SizeBytes = info.Size
	return nil
}

func (s *Service) fail(ctx context.Context, entry *domain.ArchiveLog, started time.Time, cause error) error {
	msg := cause.Error()
	entry.ErrorMessage = &msg
	entry.DurationMS = s.clock.Now().Sub(started).Milliseconds()
	if err := s.repo.Create(ctx, s.db, entry); err != nil {
		s.log.Error("failed to record archive failure", zap.String("tenant_id", entry.TenantID), zap.Error(err))
	}
	s.metrics.RecordArchive(ctx, "create", "failure")
	s.log.Warn("tenant archive failed", zap.String("tenant_id", entry.TenantID), zap.Error(cause))
	return cause
}

// ArchiveAll archives every active tenant the policy allows. A failure for
// one tenant does not stop the others; the failures are joined.
func (s *Service) ArchiveAll(ctx context.Context) (*domain.ArchiveAllResult, error) {
	tenants, err := s.backup.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	policy := s.policy.Get()

	result := &domain.ArchiveAllResult{Archived: []string{}, Skipped: []string{}, Failed: []string{}}
	var errs []error
	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !policy.AllowsTenant(tenant.ID) {
			result.Skipped = append(result.Skipped, tenant.ID)
			continue
		}
		if _, err := s.Archive(ctx, tenant.ID); err != nil {
			result.Failed = append(result.Failed, tenant.ID)
			errs = append(errs, fmt.Errorf("archive %s: %w", tenant.ID, err))
			continue
		}
		result.Archived = append(result.Archived, tenant.ID)
	}
	return result, errors.Join(errs...)
}

func (s *Service) List(ctx context.Context, tenantID string, page pagination.Pagination) (*domain.ListResponse, error) {
	tenant, err := s.backup.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, tenant.ID, page)
	if err != nil {
		return nil, err
	}
	items, pageInfo, err := pagination.BuildCursorPageInfo(items, page.Size(), func(l *domain.ArchiveLog) pagination.Cursor {
		return pagination.Cursor{ID: l.ID.String(), CreatedAt: l.CreatedAt.Format(time.RFC3339)}
	})
	if err != nil {
		return nil, err
	}

	archives := make([]domain.ArchiveLog, 0, len(items))
	for _, item := range items {
		archives = append(archives, *item)
	}
	return &domain.ListResponse{Archives: archives, PageInfo: pageInfo}, nil
}

// Download returns the decrypted snapshot document of a successful archive.
func (s *Service) Download(ctx context.Context, tenantID string, id snowflake.ID) (*domain.Download, error) {
	tenant, err := s.backup.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "archive.Download")
	defer span.End()

	entry, err := s.repo.FindByID(ctx, s.db, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Status != domain.StatusSuccess || entry.ObjectKey == "" {
		return nil, domain.ErrNotFound
	}
	if s.keyErr != nil {
		return nil, s.keyErr
	}

	_, body, err := s.store.Get(ctx, entry.ObjectKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBlobStore, err)
	}
	defer body.Close()

	sealed, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBlobStore, err)
	}
	doc, err := s.sealer.open(sealed)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.RecordArchive(ctx, "download", "success")
	return &domain.Download{
		Filename: strings.TrimSuffix(entry.Filename, archiveSuffix) + ".json",
		Data:     doc,
	}, nil
}

// Prune removes archives older than the policy retention. Blob deletion is
// best effort: the log row goes even if the object could not be removed.
func (s *Service) Prune(ctx context.Context, now time.Time) (*domain.PruneResult, error) {
	cutoff := s.policy.Get().RetentionCutoff(now)
	entries, err := s.repo.ListOlderThan(ctx, s.db, cutoff)
	if err != nil {
		return nil, err
	}

	result := &domain.PruneResult{}
	for _, entry := range entries {
		if entry.ObjectKey != "" {
			if err := s.store.Delete(ctx, entry.ObjectKey); err != nil {
				result.BlobsRetained++
				s.log.Warn("archive object not deleted",
					zap.String("object_key", entry.ObjectKey),
					zap.Error(err),
				)
			}
		}
		if err := s.repo.Delete(ctx, s.db, entry.ID); err != nil {
			s.metrics.RecordArchive(ctx, "prune", "failure")
			return result, err
		}
		result.Removed++
	}

	s.metrics.RecordArchive(ctx, "prune", "success")
	if result.Removed > 0 {
		s.log.Info("archives pruned", zap.Int("removed", result.Removed), zap.Time("cutoff", cutoff))
	}
	return result, nil
}
