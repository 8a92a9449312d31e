package keyloom

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// defaultRotationLimit allows 3 scheduled rotations per conversation
	// per rolling 60-second window.
	defaultRotationLimit  = 3
	defaultRotationWindow = time.Minute
)

// engineConfig holds configuration for the engine.
type engineConfig struct {
	clock         func() time.Time
	log           *logrus.Logger
	sink          EventSink
	rotationLimit rate.Limit
	rotationBurst int
}

// Option configures the engine.
type Option func(*engineConfig)

// WithClock sets the time source used for record timestamps and the
// rotation rate limiter. Tests inject a fake clock here.
func WithClock(clock func() time.Time) Option {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// WithLogger sets the logger. By default the engine logs nothing.
func WithLogger(log *logrus.Logger) Option {
	return func(c *engineConfig) {
		c.log = log
	}
}

// WithEventSink sets the sink receiving key-lifecycle events.
func WithEventSink(sink EventSink) Option {
	return func(c *engineConfig) {
		c.sink = sink
	}
}

// WithRotationLimit sets the scheduled-rotation rate limit per
// conversation: at most n rotations per window. Emergency revocation is
// never limited.
func WithRotationLimit(n int, window time.Duration) Option {
	return func(c *engineConfig) {
		c.rotationLimit = rate.Limit(float64(n) / window.Seconds())
		c.rotationBurst = n
	}
}

func defaultConfig() *engineConfig {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return &engineConfig{
		clock:         time.Now,
		log:           log,
		sink:          noopSink{},
		rotationLimit: rate.Limit(float64(defaultRotationLimit) / defaultRotationWindow.Seconds()),
		rotationBurst: defaultRotationLimit,
	}
}
