package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/smallbiznis/flyroom/internal/observability"
	obsmiddleware "github.com/smallbiznis/flyroom/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/flyroom/internal/observability/metrics"
	obstracing "github.com/smallbiznis/flyroom/internal/observability/tracing"
	"github.com/smallbiznis/flyroom/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxUploadBytes caps backup files accepted by validate and import.
const maxUploadBytes = 64 << 20

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware(obstracing.MiddlewareConfig{SkipPaths: obsCfg.UntracedPaths}))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	backupSvc  backupdomain.Service
	archiveSvc archivedomain.Service
	limiter    *ratelimit.TenantLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	BackupSvc  backupdomain.Service
	ArchiveSvc archivedomain.Service
	Limiter    *ratelimit.TenantLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		clock:      c,
		backupSvc:  p.BackupSvc,
		archiveSvc: p.ArchiveSvc,
		limiter:    p.Limiter,
	}

	svc.registerBackupRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBackupRoutes() {
	api := s.engine.Group("/api/backup", TenantContext())

	api.GET("/export", s.TenantRateLimit("export"), s.ExportBackup)
	api.POST("/export", s.TenantRateLimit("export"), s.ExportBackup)
	api.POST("/validate", s.ValidateBackup)
	api.POST("/import", s.ImportBackup)

	// -------- Archives --------
	api.GET("/archives", s.ListArchives)
	api.POST("/archives", s.TenantRateLimit("archive"), s.CreateArchive)
	api.GET("/archives/:id/download", s.DownloadArchive)
}
