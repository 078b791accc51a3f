package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/scheduling-api/internal/repository"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
)

var (
	purgedExceptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exception_rows_purged_total",
		Help: "The total number of expired exception rows deleted",
	})
	purgeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exception_purge_failures_total",
		Help: "The total number of failed purge runs",
	})
	purgeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exception_purge_duration_seconds",
		Help:    "Time spent on one purge run",
		Buckets: prometheus.DefBuckets,
	})
)

// Config comes from the environment. Past-date exception rows are dead
// weight: they never affect slot resolution, which treats past dates
// as empty before reading them.
type Config struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RetentionDays int           `envconfig:"RETENTION_DAYS" default:"90"`
	Interval      time.Duration `envconfig:"PURGE_INTERVAL" default:"24h"`
	MetricsPort   int           `envconfig:"METRICS_PORT" default:"9091"`
}

type PurgeWorker struct {
	purger    repository.ExceptionPurger
	logger    *logger.Logger
	retention time.Duration
	interval  time.Duration
}

func NewPurgeWorker(purger repository.ExceptionPurger, log *logger.Logger, cfg Config) *PurgeWorker {
	return &PurgeWorker{
		purger:    purger,
		logger:    log,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  cfg.Interval,
	}
}

func (w *PurgeWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("purge worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *PurgeWorker) runOnce(ctx context.Context) {
	start := time.Now()
	cutoff := time.Now().Add(-w.retention)

	deleted, err := w.purger.DeleteExceptionsBefore(ctx, cutoff)
	purgeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		purgeFailures.Inc()
		w.logger.Error(err, "exception purge failed")
		return
	}

	purgedExceptions.Add(float64(deleted))
	w.logger.WithFields(map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff.Format("2006-01-02"),
	}).Info("exception purge complete")
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Error(err, "metrics server stopped")
		}
	}()

	worker := NewPurgeWorker(postgres.NewExceptionPurger(db), log, cfg)
	go worker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worker")
	cancel()
}
