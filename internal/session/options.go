package session

import (
	"log/slog"
	"time"

	"github.com/roach88/formsession/internal/clock"
	"github.com/roach88/formsession/internal/document"
	"github.com/roach88/formsession/internal/history"
	"github.com/roach88/formsession/internal/metrics"
	"github.com/roach88/formsession/internal/scheduler"
)

type config struct {
	debounce     time.Duration
	flushTimeout time.Duration
	historyDepth int
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *metrics.Recorder
	storeOpts    []document.StoreOption
}

func defaultConfig() config {
	return config{
		debounce:     scheduler.DefaultDelay,
		historyDepth: history.DefaultMaxDepth,
		clock:        clock.Real{},
		logger:       slog.Default(),
	}
}

// Option configures a Session.
type Option func(*config)

// WithDebounce sets the debounce delay between the last edit and the
// persist.
//
// Default: 2s (scheduler.DefaultDelay)
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithFlushTimeout bounds gateway calls started by the debounce timer.
// Default: no bound.
func WithFlushTimeout(d time.Duration) Option {
	return func(c *config) {
		c.flushTimeout = d
	}
}

// WithHistoryDepth bounds the undo and redo stacks.
//
// Default: 50 (history.DefaultMaxDepth)
func WithHistoryDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.historyDepth = n
		}
	}
}

// WithClock sets the time source used for debounce timers and timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records session metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = r
	}
}

// WithIDGenerator sets the generator for fields added without an ID.
func WithIDGenerator(g document.IDGenerator) Option {
	return func(c *config) {
		c.storeOpts = append(c.storeOpts, document.WithIDGenerator(g))
	}
}

// WithSanitizer replaces the label sanitizer (nil disables sanitizing).
func WithSanitizer(fn func(string) string) Option {
	return func(c *config) {
		c.storeOpts = append(c.storeOpts, document.WithSanitizer(fn))
	}
}

// CloseOption configures Close.
type CloseOption func(*closeConfig)

type closeConfig struct {
	discard bool
}

// WithDiscard tears the session down without flushing. Pending edits are
// dropped. Hosts use it after the user confirmed leaving.
func WithDiscard() CloseOption {
	return func(c *closeConfig) {
		c.discard = true
	}
}
