package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"TNSDigest/internal/config"
	"TNSDigest/internal/cosmology"
	"TNSDigest/internal/infrastructure/ned"
	"TNSDigest/internal/infrastructure/progress"
	"TNSDigest/internal/infrastructure/publish"
	"TNSDigest/internal/infrastructure/report"
	"TNSDigest/internal/infrastructure/scheduler"
	"TNSDigest/internal/infrastructure/storage"
	"TNSDigest/internal/infrastructure/telegram"
	"TNSDigest/internal/infrastructure/tns"
	"TNSDigest/internal/logging"
	"TNSDigest/internal/ports"
	"TNSDigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	pipeline *usecase.Pipeline
	logger   *slog.Logger
	db       *sql.DB
}

// Option customizes wiring.
type Option func(*options)

type options struct {
	progressOut io.Writer
}

// WithProgressOutput redirects progress lines; nil disables them.
func WithProgressOutput(w io.Writer) Option {
	return func(o *options) { o.progressOut = w }
}

// New validates cfg and builds every adapter it enables.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	o := options{progressOut: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	distance, err := cosmology.NewFlatLambdaCDM(cfg.Cosmology.H0, cfg.Cosmology.Om0)
	if err != nil {
		return nil, fmt.Errorf("cosmology: %w", err)
	}

	registry, err := tns.NewClient(cfg.TNS, baseLogger.With("component", "tns"))
	if err != nil {
		return nil, fmt.Errorf("tns client: %w", err)
	}

	catalog, err := ned.NewClient(cfg.NED, ned.DefaultRegistry(), baseLogger.With("component", "ned"))
	if err != nil {
		return nil, fmt.Errorf("ned client: %w", err)
	}

	var progressSink ports.Progress = progress.Nop{}
	if o.progressOut != nil {
		progressSink = progress.NewConsole(o.progressOut)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	deps := usecase.PipelineDeps{
		Registry:     registry,
		Catalog:      catalog,
		Distance:     distance,
		Writer:       report.NewCSVWriter(cfg.Report.OutputDir, baseLogger.With("component", "report")),
		Progress:     progressSink,
		Logger:       baseLogger.With("component", "pipeline"),
		RadiusArcmin: cfg.NED.RadiusArcmin,
		Workers:      cfg.Pipeline.Workers,
	}

	if cfg.Database.DSN != "" {
		archive, err := a.openArchive(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		deps.Archive = archive
	}

	if cfg.Publish.S3.Bucket != "" {
		publisher, err := publish.NewS3Publisher(ctx, cfg.Publish.S3, baseLogger.With("component", "publish.s3"))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("s3 publisher: %w", err)
		}
		deps.Publisher = publisher
	}

	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		deps.Notifier = telegram.NewNotifier(tg)
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) openArchive(ctx context.Context, dsn string) (*storage.PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a.db = db

	archive := storage.NewPostgresArchive(db)
	if err := archive.EnsureSchema(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return archive, nil
}

// RunOnce processes a single day.
func (a *Application) RunOnce(ctx context.Context, day time.Time) (usecase.Result, error) {
	res, err := a.pipeline.ProcessDay(ctx, day)
	if err != nil {
		return res, err
	}

	a.logger.Info("run finished",
		"run_id", res.RunID,
		"searched", res.Searched,
		"rows", res.Qualifying,
		"report", res.ReportPath)
	return res, nil
}

// Today is the current date in the configured scheduler timezone.
func (a *Application) Today() time.Time {
	return time.Now().In(a.cfg.Scheduler.Location())
}

// Schedule runs the pipeline on the configured interval until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	s := usecase.NewScheduler(driver, a.pipeline, a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
