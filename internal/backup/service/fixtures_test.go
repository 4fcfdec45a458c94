package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/smallbiznis/flyroom/internal/backup/repository"
	"github.com/smallbiznis/flyroom/internal/clock"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db  *gorm.DB
	svc *Service
}

// newFixture opens a private in-memory database. label separates several
// databases inside one test.
func newFixture(t *testing.T, label string) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name() + "_" + label)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(inv.Models()...))

	svc := NewService(Params{
		Repo:  repository.NewRepository(db),
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(fixedNow),
	})
	return &fixture{db: db, svc: svc}
}

func (f *fixture) tenant(t *testing.T, id, name string) *inv.Tenant {
	t.Helper()
	tenant := &inv.Tenant{ID: id, Name: name, Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-")), IsActive: true, CreatedAt: fixedNow}
	require.NoError(t, f.db.Create(tenant).Error)
	return tenant
}

func (f *fixture) create(t *testing.T, rows ...any) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, f.db.Create(row).Error)
	}
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	stmt := f.db.Model(model)
	if query != "" {
		stmt = stmt.Where(query, args...)
	}
	require.NoError(t, stmt.Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }

// seedLab fills a tenant with one row of every backup table.
func (f *fixture) seedLab(t *testing.T, tenantID string) {
	t.Helper()
	repo := inv.StockRepositoryBDSC
	f.create(t,
		&inv.User{ID: "u-ana", TenantID: tenantID, Email: "ana@lab.test", PasswordHash: "h1", FullName: "Ana",
			Role: inv.UserRoleAdmin, Status: inv.UserStatusApproved, IsActive: true, CreatedAt: fixedNow},
		&inv.User{ID: "u-ben", TenantID: tenantID, Email: "ben@lab.test", PasswordHash: "h2", FullName: "Ben",
			Role: inv.UserRoleUser, Status: inv.UserStatusApproved, IsActive: true, CreatedAt: fixedNow.Add(time.Minute)},
		&inv.Tray{ID: "tr-a", TenantID: tenantID, Name: "Rack A", TrayType: inv.TrayTypeGrid, MaxPositions: 81,
			Rows: ptr(9), Cols: ptr(9), CreatedAt: fixedNow},
		&inv.Tag{ID: "tg-bal", TenantID: tenantID, Name: "balancer", Color: ptr("#00ff00")},
		&inv.Stock{ID: "s-100", TenantID: tenantID, StockID: "BL-100", Genotype: "w[1118]",
			Origin: inv.StockOriginRepository, Repository: &repo, RepositoryStockID: ptr("3605"),
			TrayID: ptr("tr-a"), Position: ptr("A1"), OwnerID: ptr("u-ben"), Visibility: inv.StockVisibilityLabOnly,
			IsActive: true, CreatedAt: fixedNow, CreatedByID: ptr("u-ana"),
			ExternalMetadata: datatypes.JSON(`{"flybase_id":"FBst0003605"}`)},
		&inv.Stock{ID: "s-200", TenantID: tenantID, StockID: "BL-200", Genotype: "y[1] w[*]",
			Origin: inv.StockOriginInternal, Visibility: inv.StockVisibilityOrganization,
			IsActive: true, CreatedAt: fixedNow.Add(time.Minute), CreatedByID: ptr("u-ben")},
		&inv.StockTag{StockID: "s-100", TagID: "tg-bal"},
		&inv.Cross{ID: "c-1", TenantID: tenantID, ParentFemaleID: "s-100", ParentMaleID: "s-200",
			Status: inv.CrossStatusPlanned, CreatedAt: fixedNow, CreatedByID: ptr("u-ana")},
		&inv.ExternalReference{ID: "x-1", StockID: "s-100", Source: "flybase", ExternalID: "FBst0003605",
			Data: datatypes.JSON(`{"genotype":"w[1118]"}`), FetchedAt: ptr(fixedNow)},
		&inv.PrintAgent{ID: "pa-1", TenantID: tenantID, Name: "bench", APIKey: "key-" + tenantID,
			LabelFormat: inv.DefaultLabelFormat, IsActive: true, CreatedAt: fixedNow},
		&inv.PrintJob{ID: "pj-1", TenantID: tenantID, AgentID: ptr("pa-1"), CreatedByID: ptr("u-ana"),
			Status: inv.PrintJobStatusCompleted, StockIDs: datatypes.JSON(`["s-100","s-200"]`),
			LabelFormat: inv.DefaultLabelFormat, Copies: 2, CodeType: inv.DefaultCodeType, CreatedAt: fixedNow},
		&inv.FlipEvent{ID: "f-1", StockID: "s-100", FlippedByID: ptr("u-ben"), FlippedAt: fixedNow, CreatedAt: fixedNow},
	)
}

func snapshotOf(data map[string][]domain.Record) *domain.Snapshot {
	counts := map[string]int{}
	for table, records := range data {
		counts[table] = len(records)
	}
	return &domain.Snapshot{
		Metadata: domain.NewMetadata("source-tenant", "Source Lab", fixedNow, counts),
		Data:     data,
	}
}

func userRecord(id, email string) domain.Record {
	return domain.Record{"id": id, "email": email, "password_hash": "h", "full_name": "User " + id}
}

func stockRecord(id, stockID string, extra domain.Record) domain.Record {
	rec := domain.Record{"id": id, "stock_id": stockID, "genotype": "w[1118]"}
	for k, v := range extra {
		rec[k] = v
	}
	return rec
}

func userRecordModel(id, tenantID, email string) *inv.User {
	return &inv.User{ID: id, TenantID: tenantID, Email: email, PasswordHash: "h", FullName: id,
		Role: inv.UserRoleUser, Status: inv.UserStatusApproved, IsActive: true, CreatedAt: fixedNow}
}
