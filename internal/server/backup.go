package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
)

const exportTimestampLayout = "20060102_150405"

func exportFilename(slug string, at time.Time) string {
	return fmt.Sprintf("%s_backup_%s.json", slug, at.UTC().Format(exportTimestampLayout))
}

func attachment(c *gin.Context, filename string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) ExportBackup(c *gin.Context) {
	ctx := c.Request.Context()
	tenant, err := s.backupSvc.GetTenant(ctx, tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	snap, err := s.backupSvc.Export(ctx, tenant.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	attachment(c, exportFilename(tenant.Slug, s.clock.Now()), body)
}

// readSnapshotFile decodes the multipart "file" field.
func readSnapshotFile(c *gin.Context) (*backupdomain.Snapshot, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, newValidationError("file", "required", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, newValidationError("file", "unreadable", "failed to read file")
	}
	defer f.Close()

	return backupdomain.ParseSnapshot(f)
}

func (s *Server) ValidateBackup(c *gin.Context) {
	snap, err := readSnapshotFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.backupSvc.Validate(c.Request.Context(), snap, tenantIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// formOrQuery reads key from the query string, falling back to the form body.
func formOrQuery(c *gin.Context, key string) string {
	if v := strings.TrimSpace(c.Query(key)); v != "" {
		return v
	}
	return strings.TrimSpace(c.PostForm(key))
}

func (s *Server) ImportBackup(c *gin.Context) {
	snap, err := readSnapshotFile(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	mode, err := backupdomain.ParseConflictMode(formOrQuery(c, "conflict_mode"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("conflict_mode", string(mode))

	dryRun, err := parseOptionalBool(formOrQuery(c, "dry_run"))
	if err != nil {
		AbortWithError(c, newValidationError("dry_run", "invalid_dry_run", "dry_run must be a boolean"))
		return
	}

	result, err := s.backupSvc.Import(c.Request.Context(), backupdomain.ImportRequest{
		TenantID:     tenantIDFrom(c),
		Snapshot:     snap,
		ConflictMode: mode,
		DryRun:       dryRun != nil && *dryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("X-Run-ID", result.RunID)
	c.JSON(http.StatusOK, result)
}
