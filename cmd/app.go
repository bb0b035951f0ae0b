package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/auth"
	authRepo "github.com/ganpare/densai/internal/auth/postgres"
	"github.com/ganpare/densai/internal/core/events"
	"github.com/ganpare/densai/internal/export"
	"github.com/ganpare/densai/internal/institution"
	institutionRepo "github.com/ganpare/densai/internal/institution/postgres"
	"github.com/ganpare/densai/internal/metrics"
	"github.com/ganpare/densai/internal/render"
	"github.com/ganpare/densai/internal/report"
	reportRepo "github.com/ganpare/densai/internal/report/postgres"
	"github.com/ganpare/densai/internal/sequence"
	"github.com/ganpare/densai/internal/statistics"
	statisticsRepo "github.com/ganpare/densai/internal/statistics/postgres"
	"github.com/ganpare/densai/internal/transport"
	"github.com/ganpare/densai/internal/transport/rest"
	"github.com/ganpare/densai/internal/user"
	userRepo "github.com/ganpare/densai/internal/user/postgres"
	"github.com/ganpare/densai/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// App holds every wired service. Commands build one and pick what they need.
type App struct {
	Config   *internal.Config
	Logger   *slog.Logger
	Location *time.Location
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Redis    redis.UniversalClient
	EventBus *events.EventBus
	Metrics  *metrics.Metrics

	AuthService        *auth.Service
	UserService        *user.Service
	InstitutionService *institution.Service
	ReportService      *report.Service
	ExportService      *export.Service
	StatisticsService  *statistics.Service

	exportWorker *export.EventHandler
}

func newApp(ctx context.Context, cfg *internal.Config) (*App, error) {
	logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	lg := logger.LoggerWrapper()

	loc, err := cfg.Workflow.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(cfg.Database.Driver, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   lg,
		Location: loc,
		DB:       db,
		Gorm:     gdb,
		EventBus: events.NewEventBus(lg),
	}

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			app.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Redis.Addr, err)
		}
		app.Redis = rdb
		lg.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	if cfg.Observability.Metrics.Enabled {
		app.Metrics = metrics.New()
		metrics.NewEventHandler(app.Metrics, lg).RegisterEventHandlers(app.EventBus)
	}

	if err := app.wireServices(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wireServices() error {
	cfg := a.Config
	lg := a.Logger

	var (
		counter  sequence.Counter = sequence.NewGormCounter(a.Gorm)
		denylist auth.Denylist
		locker   *redislock.Client
	)
	if a.Redis != nil {
		counter = sequence.NewRedisCounter(a.Redis)
		denylist = auth.NewRedisDenylist(a.Redis)
		locker = redislock.New(a.Redis)
	}

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	a.AuthService = auth.NewService(authRepo.NewRepository(a.Gorm), tokens, denylist, cfg.Security.BCryptCost, lg)
	a.UserService = user.NewService(userRepo.NewRepository(a.Gorm), a.AuthService, lg)
	a.InstitutionService = institution.NewService(institutionRepo.NewInstitutionRepository(a.Gorm), lg)

	a.ReportService = report.NewService(
		reportRepo.NewReportRepository(a.Gorm),
		sequence.NewGenerator(counter, a.Location),
		lg,
		report.Options{
			MaxSequenceRetries:  cfg.Workflow.MaxSequenceRetries,
			AllowReopenRejected: cfg.Workflow.AllowReopenRejected,
			Directory:           a.InstitutionService,
			Publisher:           a.EventBus,
		},
	)

	html, err := render.NewHTMLRenderer(a.Location)
	if err != nil {
		return fmt.Errorf("failed to load print template: %w", err)
	}
	a.ExportService = export.NewService(
		a.ReportService,
		render.NewPDFRenderer(a.Location, cfg.Export.FontPath),
		html,
		sequence.NewFileNamer(cfg.Export.OutputDir, a.Location),
		lg,
		export.Options{Location: a.Location, Locker: locker, LockTTL: cfg.Export.LockTTL},
	)

	a.StatisticsService = statistics.NewService(statisticsRepo.NewStatisticsRepository(a.DB), a.Location, lg)
	return nil
}

// StartExportWorker subscribes the background PDF writer to approvals.
func (a *App) StartExportWorker() {
	if a.exportWorker != nil {
		return
	}
	a.exportWorker = export.NewEventHandler(a.ExportService, export.PoolConfig{
		MaxWorkers:   a.Config.Export.Workers,
		JobQueueSize: a.Config.Export.QueueSize,
	}, a.Logger)
	a.exportWorker.RegisterEventHandlers(a.EventBus)
}

func (a *App) Handlers() rest.Handlers {
	return rest.Handlers{
		Health:      rest.NewHealthHandler(a.DB.DB, a.Config.Database.Driver, a.Redis),
		Auth:        auth.NewHandler(a.AuthService, a.Logger),
		User:        user.NewHandler(a.UserService, a.Logger),
		Institution: institution.NewHandler(transport.NewBaseHandler(a.Logger), a.InstitutionService),
		Report:      report.NewHandler(a.ReportService, a.Logger),
		Export:      export.NewHandler(a.ExportService, a.Logger),
		Statistics:  statistics.NewHandler(a.StatisticsService, a.Logger),
		Metrics:     a.Metrics,
		MetricsPath: a.Config.Observability.Metrics.Path,
		Origins:     a.Config.Server.Origins(),
	}
}

func (a *App) Close() {
	if a.EventBus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.EventBus.Wait(ctx); err != nil {
			a.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		cancel()
	}
	if a.exportWorker != nil {
		a.exportWorker.Shutdown()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("database close error", "error", err)
		}
	}
}

// sqlDriver maps the configured database to its database/sql driver name.
func sqlDriver(driver string) string {
	if driver == "sqlite" {
		return "sqlite3"
	}
	return "pgx"
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	driver := sqlDriver(cfg.Driver)

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(driver string, db *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if driver == "sqlite" {
		dialector = &sqlite.Dialector{Conn: db.DB}
	} else {
		dialector = postgres.New(postgres.Config{Conn: db.DB})
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}
