package keyloom

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Engine coordinates key records, rotation, distribution, and migration
// for conversations. All crypto is stateless per call; key-state
// transitions are serialized by the store's atomic operations.
type Engine struct {
	store KeyRecordStore
	clock func() time.Time
	log   *logrus.Logger
	sink  EventSink

	mu            sync.Mutex
	limiters      map[string]*rate.Limiter
	rotationLimit rate.Limit
	rotationBurst int
}

// New creates an engine backed by the given store.
func New(store KeyRecordStore, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrMissingStore
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Engine{
		store:         store,
		clock:         cfg.clock,
		log:           cfg.log,
		sink:          cfg.sink,
		limiters:      make(map[string]*rate.Limiter),
		rotationLimit: cfg.rotationLimit,
		rotationBurst: cfg.rotationBurst,
	}, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

// limiter returns the rotation rate limiter for a conversation, creating
// it on first use. The limiter consumes tokens against the injected clock
// so tests can simulate time.
func (e *Engine) limiter(conversationID string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	lim, ok := e.limiters[conversationID]
	if !ok {
		lim = rate.NewLimiter(e.rotationLimit, e.rotationBurst)
		e.limiters[conversationID] = lim
	}
	return lim
}

// emit assigns the event an ID and timestamp and publishes it.
func (e *Engine) emit(ev Event) {
	ev.ID = uuid.NewString()
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.log.WithFields(logrus.Fields{
		"event":        ev.Type,
		"conversation": ev.ConversationID,
		"device":       ev.DeviceID,
		"algorithm":    ev.Algorithm,
	}).Debug("key event")
	e.sink.Publish(ev)
}
