package commands

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShroXd/surveilans"
	"github.com/ShroXd/surveilans/internal/config"
	"github.com/ShroXd/surveilans/internal/mirror"
)

// env is what every command needs: settings, a run-scoped logger and the
// run's metrics.
type env struct {
	cfg     *config.Config
	runID   string
	logger  *surveilans.DefaultLogger
	metrics *surveilans.Metrics
}

func setup(name string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.ConsoleLevel = logLevel
	}

	runID := uuid.NewString()
	logger, err := surveilans.NewLogger(surveilans.LoggerConfig{
		ID:           runID,
		Name:         name,
		Dir:          cfg.Log.Dir,
		ConsoleLevel: surveilans.ParseLogLevel(cfg.Log.ConsoleLevel),
		FileLevel:    surveilans.ParseLogLevel(cfg.Log.FileLevel),
	})
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		runID:   runID,
		logger:  logger,
		metrics: surveilans.NewMetrics(),
	}, nil
}

func (e *env) close() {
	if err := e.metrics.WriteTextfile(e.cfg.Output.MetricsFile); err != nil {
		e.logger.Warn("Failed to write metrics textfile", surveilans.LogContext{"path": e.cfg.Output.MetricsFile, "err": err.Error()})
	}
	_ = e.logger.Sync()
}

func (e *env) portal() (*surveilans.Portal, error) {
	p := e.cfg.Portal
	client, err := surveilans.NewClient(
		surveilans.WithBaseURL(p.BaseURL),
		surveilans.WithTimeout(p.QueryTimeout),
		surveilans.WithUserAgent(p.UserAgent),
		surveilans.WithReferer(strings.TrimSuffix(p.BaseURL, "/")+"/rs_rekap.php"),
		surveilans.WithClientLogger(e.logger),
	)
	if err != nil {
		return nil, err
	}

	return surveilans.NewPortal(client,
		surveilans.WithPortalLogger(e.logger),
		surveilans.WithPortalMetrics(e.metrics),
		surveilans.WithQueryTimeout(p.QueryTimeout),
		surveilans.WithListTimeout(p.ListTimeout),
		surveilans.WithPacingDelay(p.PacingDelay),
		surveilans.WithRetry(p.RetryAttempts, p.RetryInitial, p.RetryMultiplier),
		surveilans.WithRetryLimits(p.RetryMaxDelay, p.RetryJitter),
	)
}

func (e *env) store(ctx context.Context) (*surveilans.Store, error) {
	var uploader surveilans.Uploader
	if m := e.cfg.Mirror; m.Bucket != "" {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		s3, err := mirror.New(ctx, mirror.Config{
			Bucket:    m.Bucket,
			Prefix:    m.Prefix,
			Region:    m.Region,
			Endpoint:  m.Endpoint,
			PathStyle: m.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		uploader = s3
		e.logger.Info("Mirroring extracts to object storage", surveilans.LogContext{"bucket": m.Bucket, "prefix": m.Prefix})
	}

	return surveilans.NewStore(e.cfg.Output.Dir,
		surveilans.WithStoreLogger(e.logger),
		surveilans.WithMirror(uploader),
	)
}

// parseMonthFlag reads a YYYY-MM flag value, defaulting to the current month.
// currentTime supplies the default month for blank --from/--to flags.
var currentTime = time.Now

func parseMonthFlag(value string, now time.Time) (surveilans.Month, error) {
	if value == "" {
		return surveilans.MonthOf(now), nil
	}
	return surveilans.ParseMonth(value)
}
