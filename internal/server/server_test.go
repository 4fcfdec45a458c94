package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	archiverepo "github.com/smallbiznis/flyroom/internal/archive/repository"
	archiveservice "github.com/smallbiznis/flyroom/internal/archive/service"
	backuprepo "github.com/smallbiznis/flyroom/internal/backup/repository"
	backupservice "github.com/smallbiznis/flyroom/internal/backup/service"
	"github.com/smallbiznis/flyroom/internal/blob"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"github.com/smallbiznis/flyroom/internal/observability"
	obsmetrics "github.com/smallbiznis/flyroom/internal/observability/metrics"
	"github.com/smallbiznis/flyroom/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(append(inv.Models(), &archivedomain.ArchiveLog{})...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(start)

	cfg := config.Config{
		Blob:   config.BlobConfig{Prefix: "backups"},
		Backup: config.BackupConfig{EncryptionKey: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))},
	}
	backupSvc := backupservice.NewService(backupservice.Params{
		Repo:  backuprepo.NewRepository(db),
		Log:   zap.NewNop(),
		Clock: fake,
		Guard: ratelimit.NewImportGuardWithLocker(ratelimit.NewLocalLocker(), time.Minute),
	})
	archiveSvc := archiveservice.NewService(archiveservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   archiverepo.Provide(),
		Backup: backupSvc,
		Store:  blob.NewMemory(),
		Config: cfg,
		Policy: config.NewStaticBackupPolicyHolder(config.DefaultBackupPolicy()),
		Clock:  fake,
	})

	engine := NewEngine(observability.Config{}, obsmetrics.NewHTTPMetricsForTest(prometheus.NewRegistry()))
	srv := NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        zap.NewNop(),
		Clock:      fake,
		BackupSvc:  backupSvc,
		ArchiveSvc: archiveSvc,
	})

	require.NoError(t, db.Create(&inv.Tenant{ID: "lab-a", Name: "Lab A", Slug: "lab-a", IsActive: true, CreatedAt: start}).Error)
	require.NoError(t, db.Create(&inv.User{ID: "u-1", TenantID: "lab-a", Email: "owner@lab.test", PasswordHash: "h",
		FullName: "Owner", Role: inv.UserRoleAdmin, Status: inv.UserStatusApproved, IsActive: true, CreatedAt: start}).Error)

	return srv, db
}

func do(srv *Server, req *http.Request, tenantID string) *httptest.ResponseRecorder {
	if tenantID != "" {
		req.Header.Set(HeaderTenant, tenantID)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, target string, body []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", "backup.json")
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestExportSetsAttachmentFilename(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(srv, httptest.NewRequest(method, "/api/backup/export", nil), "lab-a")
		require.Equal(t, http.StatusOK, w.Code, method)
		assert.Equal(t, `attachment; filename="lab-a_backup_20250601_120000.json"`, w.Header().Get("Content-Disposition"))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Contains(t, doc, "metadata")
		assert.Contains(t, doc, "data")
	}
}

func TestRequestsWithoutTenantAreRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/export", nil), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_tenant", payload.Errors[0].Code)
}

func TestExportUnknownTenantIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/export", nil), "ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateRejectsNonJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, uploadRequest(t, "/api/backup/validate", []byte("not json at all"), nil), "lab-a")
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_file", payload.Errors[0].Code)
}

func TestValidateRequiresFile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/backup/validate", strings.NewReader(""))
	w := do(srv, req, "lab-a")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file", decodeError(t, w).Errors[0].Field)
}

func TestValidateReportsResult(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, uploadRequest(t, "/api/backup/validate", []byte(`{"metadata":{"schema_version":"001"},"data":{}}`), nil), "lab-a")
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, false, res["is_valid"])
	assert.Equal(t, "001", res["schema_version"])
}

func TestImportRefusesInvalidSnapshot(t *testing.T) {
	srv, db := newTestServer(t)

	w := do(srv, uploadRequest(t, "/api/backup/import?conflict_mode=skip", []byte(`{"metadata":{"schema_version":"001"},"data":{}}`), nil), "lab-a")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	payload := decodeError(t, w)
	assert.Equal(t, "invalid_snapshot", payload.Type)
	require.NotNil(t, payload.Validation)
	assert.False(t, payload.Validation.IsValid)
	assert.Equal(t, []string{"Schema version '001' is not compatible with current version '008'"}, payload.Validation.Errors)

	var users int64
	require.NoError(t, db.Model(&inv.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestImportRejectsUnknownConflictMode(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, uploadRequest(t, "/api/backup/import", []byte(`{"metadata":{"schema_version":"008"},"data":{}}`),
		map[string]string{"conflict_mode": "merge"}), "lab-a")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_conflict_mode", decodeError(t, w).Errors[0].Code)
}

func TestExportImportRoundTripDryRun(t *testing.T) {
	srv, db := newTestServer(t)

	export := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/export", nil), "lab-a")
	require.Equal(t, http.StatusOK, export.Code)

	w := do(srv, uploadRequest(t, "/api/backup/import", export.Body.Bytes(),
		map[string]string{"conflict_mode": "skip", "dry_run": "true"}), "lab-a")
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, true, res["dry_run"])
	assert.Equal(t, "skip", res["conflict_mode"])
	assert.NotEmpty(t, res["run_id"])
	assert.Equal(t, res["run_id"], w.Header().Get("X-Run-ID"))

	var users int64
	require.NoError(t, db.Model(&inv.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestArchiveCreateListDownload(t *testing.T) {
	srv, _ := newTestServer(t)

	created := do(srv, httptest.NewRequest(http.MethodPost, "/api/backup/archives", nil), "lab-a")
	require.Equal(t, http.StatusCreated, created.Code)
	var entry struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))
	assert.Equal(t, "success", entry.Status)

	list := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/archives?page_size=10", nil), "lab-a")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), entry.ID)

	dl := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/archives/"+entry.ID+"/download", nil), "lab-a")
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, `attachment; filename="lab-a_backup_20250601_120000.json"`, dl.Header().Get("Content-Disposition"))

	other := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/archives/"+entry.ID+"/download", nil), "lab-b")
	assert.Equal(t, http.StatusNotFound, other.Code)

	bad := do(srv, httptest.NewRequest(http.MethodGet, "/api/backup/archives/abc/download", nil), "lab-a")
	assert.Equal(t, http.StatusNotFound, bad.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(srv, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
}
