package webfetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/c360studio/semfetch/source/weburl"
)

// Housekeep removes expired cache entries and idle rate limiter windows.
func (f *Fetcher) Housekeep() {
	swept := f.cache.Sweep()
	pruned := f.limiter.Prune()
	f.metrics.cacheEntries.Set(float64(f.cache.Len()))
	f.metrics.rateHosts.Set(float64(f.limiter.Len()))
	if swept > 0 || pruned > 0 {
		f.logger.Debug("Housekeeping complete", "cache_evicted", swept, "hosts_pruned", pruned)
	}
}

// Stats is a snapshot of the fetcher's in-memory state.
type Stats struct {
	CacheEntries int          `json:"cache_entries"`
	TrackedHosts int          `json:"tracked_hosts"`
	Validation   weburl.Stats `json:"validation"`
}

// Stats reports cache and rate limiter sizes with the validator counters.
func (f *Fetcher) Stats() Stats {
	return Stats{
		CacheEntries: f.cache.Len(),
		TrackedHosts: f.limiter.Len(),
		Validation:   f.validator.Stats(),
	}
}

// Janitor runs Fetcher.Housekeep on a cron schedule.
type Janitor struct {
	cron *cron.Cron
}

// NewJanitor schedules housekeeping for f. schedule uses the standard cron
// syntax or descriptors such as "@every 5m".
func NewJanitor(f *Fetcher, schedule string, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(schedule, f.Housekeep); err != nil {
		return nil, fmt.Errorf("schedule housekeeping %q: %w", schedule, err)
	}
	return &Janitor{cron: c}, nil
}

// Start begins running the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and returns a context done when a running job ends.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
