package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/otp"
	"github.com/safeanchor/safeanchor/pkg/logger"
)

const (
	defaultRefreshSpec = "@daily"
	defaultOTPSpec     = "@hourly"
)

// Cleaner runs background sweeps over stores that reject stale entries
// lazily: expired refresh token rows and expired verification codes. Neither
// sweep is needed for correctness, both keep memory and table growth bounded.
type Cleaner struct {
	refresh *iauth.RefreshService
	otps    otp.Store
	cron    *cron.Cron
	log     *zap.Logger

	refreshSchedule string
	otpSchedule     string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithRefreshSchedule overrides the cron schedule for refresh token cleanup.
func WithRefreshSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.refreshSchedule = spec
		}
	}
}

// WithOTPSchedule overrides the cron schedule for verification code cleanup.
func WithOTPSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.otpSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(refresh *iauth.RefreshService, otps otp.Store, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		refresh:         refresh,
		otps:            otps,
		refreshSchedule: defaultRefreshSpec,
		otpSchedule:     defaultOTPSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if c.refresh == nil && c.otps == nil {
		return nil
	}

	if c.refresh != nil {
		if _, err := c.cron.AddFunc(c.refreshSchedule, func() {
			removed, err := c.refresh.CleanupExpired(context.Background())
			if err != nil {
				c.log.Warn("refresh token cleanup failed", zap.Error(err))
				return
			}
			if removed > 0 {
				c.log.Info("removed expired refresh tokens", zap.Int64("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	if c.otps != nil {
		if _, err := c.cron.AddFunc(c.otpSchedule, func() {
			if removed := c.otps.Sweep(); removed > 0 {
				c.log.Info("removed expired verification codes", zap.Int("count", removed))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.refresh != nil {
		if _, err := c.refresh.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.otps != nil {
		c.otps.Sweep()
	}

	return errs
}
