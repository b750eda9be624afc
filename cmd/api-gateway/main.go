package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admin-api/api/swagger"
	"github.com/noah-isme/admin-api/internal/handler"
	"github.com/noah-isme/admin-api/internal/middleware"
	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/registry"
	"github.com/noah-isme/admin-api/internal/repository"
	"github.com/noah-isme/admin-api/internal/service"
	"github.com/noah-isme/admin-api/pkg/cache"
	"github.com/noah-isme/admin-api/pkg/config"
	"github.com/noah-isme/admin-api/pkg/database"
	"github.com/noah-isme/admin-api/pkg/jobs"
	"github.com/noah-isme/admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/admin-api/pkg/storage"
	"github.com/noah-isme/admin-api/pkg/tracing"
)

// @title Admin API
// @version 1.0.0
// @description Metadata-driven admin backend for registered data models
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	tracer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logr.Sugar().Fatalw("tracing init failed", "error", err)
	}
	defer tracer.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := migrate(cfg.Database); err != nil {
			logr.Sugar().Fatalw("auto migration failed", "error", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	files, err := storage.New(cfg.Storage)
	if err != nil {
		logr.Sugar().Fatalw("file storage init failed", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	broker := jobs.NewBroker(cfg.Queue.Names, jobs.QueueConfig{
		Workers:    cfg.Queue.Workers,
		BufferSize: cfg.Queue.BufferSize,
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		Logger:     logr,
	})
	broker.Observe(metrics.ObserveJob)

	app := buildApp(cfg, db, files, metrics, broker, logr)
	defer app.close()

	broker.Start(ctx)
	defer broker.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, app)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "demo_mode", cfg.Admin.DemoMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

func migrate(cfg config.DatabaseConfig) error {
	m, err := database.NewMigrator(cfg)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck
	return m.Up()
}

type application struct {
	auth      *service.AuthService
	users     *repository.UserRepository
	metrics   *service.MetricsService
	admin     *handler.AdminHandler
	authH     *handler.AuthHandler
	userAdmin *handler.UserAdminHandler
	queries   *handler.SavedQueryHandler
	queues    *handler.QueueHandler
	site      *handler.SiteHandler
	media     *handler.MediaHandler
	metricsH  *handler.MetricsHandler
	closeFunc func()
}

func (a *application) close() {
	if a.closeFunc != nil {
		a.closeFunc()
	}
}

func buildApp(cfg *config.Config, db *sqlx.DB, files storage.FileStore, metrics *service.MetricsService, broker *jobs.Broker, logr *zap.Logger) *application {
	validate := validator.New()

	reg := registry.New(cfg.Admin.ListPerPage)
	if cfg.Admin.DemoMode {
		registry.RegisterDemo(reg, cfg.Admin.DashboardPrefix)
	}
	registry.RegisterBuiltins(reg)

	app := &application{metrics: metrics}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, cfg.Cache.KeyPrefix, logr)
			cacheRepo = repo
			app.closeFunc = func() { _ = repo.Close() }
		}
	}
	savedQueryCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.SavedQueriesTTL, logr, cacheRepo != nil)

	users := repository.NewUserRepository(db)
	records := repository.NewRecordRepository(db)
	app.users = users

	perms := service.NewPermissionService(users, logr)
	recordSvc := service.NewRecordService(db, reg, records, files, savedQueryCache, logr)
	extractor := service.NewFieldExtractor(reg, records, files, logr)
	copier := service.NewRecordCopier(db, reg, records, logr)
	actions := service.NewAdminActions(reg, perms, recordSvc, copier, metrics, cfg.Admin.DemoMode, logr)
	settings := service.NewAdminSettingsService(reg, reg, records, perms, cfg.Admin.DashboardPrefix, logr)
	exports := service.NewExportService(reg, recordSvc, files, logr)

	app.auth = service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
		Issuer:             cfg.JWT.Issuer,
		PasswordResetURL:   cfg.JWT.PasswordResetURL,
		PasswordResetTTL:   cfg.JWT.PasswordResetTTL,
	})

	email := service.NewEmailService(service.EmailConfig{
		Enabled: cfg.Email.Enabled && cfg.Env != config.EnvTest,
		URL:     cfg.Email.URL,
		APIKey:  cfg.Email.APIKey,
		Sender:  cfg.Email.Sender,
		Timeout: cfg.Email.Timeout,
	}, broker, logr)
	email.RegisterHandler(broker)
	app.auth.SetNotifier(service.NewAccountMailer(email))

	savedQueries := service.NewSavedQueryService(repository.NewSavedQueryRepository(db), reg, recordSvc, extractor, savedQueryCache, validate, logr)
	docCache := service.NewCacheService(cacheRepo, metrics, cfg.Cache.DocumentationTTL, logr, cacheRepo != nil)
	docs := service.NewDocumentationService(repository.NewDocumentationRepository(db), docCache, cfg.Cache.DocumentationTTL, logr)
	turnstile := service.NewTurnstileService(service.TurnstileConfig{
		SecretKey: cfg.Turnstile.SecretKey,
		VerifyURL: cfg.Turnstile.VerifyURL,
		Timeout:   cfg.Turnstile.Timeout,
	}, logr)

	app.admin = handler.NewAdminHandler(handler.AdminHandlerDeps{
		Schemas:  reg,
		Perms:    perms,
		Fields:   extractor,
		Settings: settings,
		Records:  recordSvc,
		Copier:   copier,
		Actions:  actions,
		Exports:  exports,
	})
	app.authH = handler.NewAuthHandler(app.auth)
	app.userAdmin = handler.NewUserAdminHandler(reg, perms, app.auth, service.NewLogEntryService(users, perms, logr))
	app.queries = handler.NewSavedQueryHandler(savedQueries)
	app.queues = handler.NewQueueHandler(service.NewQueueService(broker, logr))
	app.site = handler.NewSiteHandler(turnstile, docs, logr)
	app.metricsH = handler.NewMetricsHandler(metrics)
	if local, ok := files.(*storage.LocalStorage); ok {
		app.media = handler.NewMediaHandler(local)
	}
	return app
}

// mediaRoute turns the public media base url into the route serving it.
func mediaRoute(baseURL string) string {
	prefix := "/media"
	if u, err := url.Parse(baseURL); err == nil && u.Path != "" {
		prefix = strings.TrimRight(u.Path, "/")
	}
	return prefix + "/*key"
}

func registerRoutes(r *gin.Engine, cfg *config.Config, app *application) {
	r.GET("/health", app.metricsH.Health)
	r.GET("/metrics", app.metricsH.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if app.media != nil {
		r.GET(mediaRoute(cfg.Storage.PublicBaseURL), app.media.Serve)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", app.authH.Login)
	auth.POST("/refresh", app.authH.Refresh)
	auth.GET("/password-reset/:uid/:token", app.authH.VerifyPasswordReset)
	auth.POST("/password-reset/:uid/:token", app.authH.ResetPassword)
	secured := auth.Group("", middleware.JWT(app.auth))
	secured.POST("/logout", app.authH.Logout)
	secured.GET("/me", app.authH.Me)
	secured.POST("/change-password", app.authH.ChangePassword)

	admin := api.Group("/admin")
	admin.POST("/verify-token", app.site.VerifyToken)

	staff := admin.Group("", middleware.JWT(app.auth), middleware.RequireStaff())
	staff.GET("/apps", app.admin.Apps)
	staff.GET("/model-docs", app.site.ModelDocs)
	staff.GET("/model-docs/:app/:model", app.site.ModelDoc)
	staff.GET("/permissions", app.userAdmin.Permissions)
	staff.GET("/users/:id/permissions", app.userAdmin.UserPermissions)
	staff.POST("/users/:id/password-reset-link", app.userAdmin.SendPasswordResetLink)
	staff.GET("/log-entries", app.userAdmin.LogEntries)

	audited := func(action models.AuditAction) gin.HandlerFunc {
		return middleware.Audit(app.users, action, "records", nil)
	}
	model := staff.Group("/models/:app/:model")
	model.GET("/fields", app.admin.AddFields)
	model.GET("/:pk/fields", app.admin.EditFields)
	model.GET("/settings", app.admin.Settings)
	model.GET("/records", app.admin.ListRecords)
	model.POST("/records", audited(models.AuditActionRecordCreate), app.admin.CreateRecord)
	model.GET("/records/:pk", app.admin.GetRecord)
	model.PUT("/records/:pk", audited(models.AuditActionRecordUpdate), app.admin.UpdateRecord)
	model.DELETE("/records/:pk", audited(models.AuditActionRecordDelete), app.admin.DeleteRecord)
	model.POST("/records/:pk/copy", audited(models.AuditActionRecordCreate), app.admin.CopyRecord)
	model.GET("/records/:pk/inlines/:inline", app.admin.Inline)
	model.POST("/actions/:action", audited(models.AuditActionBulkAction), app.admin.RunAction)
	model.GET("/export", app.admin.Export)
	model.POST("/upload/:field", app.admin.Upload)

	queries := staff.Group("/saved-queries")
	queries.GET("", app.queries.List)
	queries.POST("", app.queries.Create)
	queries.POST("/run", app.queries.Run)
	queries.GET("/builder/:app/:model", app.queries.Builder)
	queries.GET("/:id", app.queries.Get)
	queries.PUT("/:id", app.queries.Update)
	queries.DELETE("/:id", app.queries.Delete)

	superuser := admin.Group("", middleware.JWT(app.auth), middleware.RequireSuperuser())
	superuser.GET("/system-metrics", app.metricsH.Summary)

	queues := superuser.Group("/queues")
	queues.GET("", app.queues.Queues)
	queues.GET("/:queue/failed", app.queues.FailedJobs)
	queues.GET("/:queue/jobs/:id", app.queues.Job)
	queueChange := middleware.Audit(app.users, models.AuditActionQueueChange, "queues", nil)
	queues.POST("/:queue/requeue", queueChange, app.queues.Requeue)
	queues.POST("/:queue/delete", queueChange, app.queues.DeleteJobs)
}
