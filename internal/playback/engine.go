package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iptvdeck/iptvdeck/internal/log"
)

// ErrInvalidTransition is returned when an operation is not valid in the
// current state, e.g. Pause while Loading.
var ErrInvalidTransition = errors.New("operation not valid in current state")

// Config configures an Engine.
type Config struct {
	// Factory creates a fresh backend for each load attempt. The previous
	// backend is always released first.
	Factory func() Backend

	// RetryDelay is the wait before the single automatic retry after a
	// transient failure. Defaults to 2s.
	RetryDelay time.Duration

	// SampleEvery bounds the position sampling rate while playing.
	// Defaults to 1s.
	SampleEvery time.Duration

	// OnStatus is invoked after every state transition with the new status
	// and, for Failed, the user-facing message.
	OnStatus func(Status, string)

	// OnProgress is invoked with position and duration at each sample.
	OnProgress func(pos, dur float64)
}

// Engine is the playback state machine. One Engine drives one visible player
// surface; all methods are safe for concurrent use.
type Engine struct {
	factory     func() Backend
	retryDelay  time.Duration
	sampleEvery time.Duration
	onStatus    func(Status, string)
	onProgress  func(pos, dur float64)
	log         zerolog.Logger

	mu          sync.Mutex
	backend     Backend
	status      Status
	message     string
	uri         string
	gen         uint64
	retries     int
	mediaTried  bool
	pos, dur    float64
	retryTimer  *time.Timer
	samplerStop chan struct{}
}

// NewEngine builds an idle engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Factory == nil {
		return nil, errors.New("playback: backend factory is required")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = time.Second
	}
	return &Engine{
		factory:     cfg.Factory,
		retryDelay:  cfg.RetryDelay,
		sampleEvery: cfg.SampleEvery,
		onStatus:    cfg.OnStatus,
		onProgress:  cfg.OnProgress,
		log:         log.WithComponent("playback"),
		status:      StatusIdle,
	}, nil
}

// Snapshot is a point-in-time view of the session. Active folds the status
// down to "a media resource is (or is about to be) attached", which is what
// a UI needs to decide whether to show the player surface at all.
type Snapshot struct {
	URI        string  `json:"uri"`
	Status     Status  `json:"status"`
	Active     bool    `json:"active"`
	Message    string  `json:"message,omitempty"`
	Position   float64 `json:"position"`
	Duration   float64 `json:"duration"`
	RetryCount int     `json:"retry_count"`
}

// Snapshot returns the current session view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		URI:        e.uri,
		Status:     e.status,
		Active:     e.status.IsActive(),
		Message:    e.message,
		Position:   e.pos,
		Duration:   e.dur,
		RetryCount: e.retries,
	}
}

// Start tears down any existing session and begins playback of uri. The call
// blocks through the initial load attempt; failures surface through OnStatus,
// never as a return value.
func (e *Engine) Start(ctx context.Context, uri string) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.teardownLocked()
	e.uri = uri
	e.retries = 0
	e.mediaTried = false
	e.pos, e.dur = 0, 0
	e.message = ""
	notify := e.transitionLocked(StatusLoading, "")
	e.mu.Unlock()
	notify()

	e.attempt(ctx, gen, uri)
}

// Stop releases the session and returns to Idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.gen++
	e.teardownLocked()
	e.uri = ""
	e.pos, e.dur = 0, 0
	notify := e.transitionLocked(StatusIdle, "")
	e.mu.Unlock()
	notify()
}

// Retry restarts a Failed session with the same URI.
func (e *Engine) Retry(ctx context.Context) error {
	e.mu.Lock()
	if e.status != StatusFailed {
		e.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, e.status)
	}
	uri := e.uri
	e.mu.Unlock()
	e.Start(ctx, uri)
	return nil
}

// Pause halts rendering. Valid only while Playing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.status != StatusPlaying {
		e.mu.Unlock()
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, e.status)
	}
	if err := e.backend.Pause(); err != nil {
		e.mu.Unlock()
		return err
	}
	notify := e.transitionLocked(StatusPaused, "")
	e.mu.Unlock()
	notify()
	return nil
}

// Resume continues rendering. Valid only while Paused.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.status != StatusPaused {
		e.mu.Unlock()
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, e.status)
	}
	if err := e.backend.Play(); err != nil {
		e.mu.Unlock()
		return err
	}
	notify := e.transitionLocked(StatusPlaying, "")
	e.mu.Unlock()
	notify()
	return nil
}

// SeekBy jumps by delta seconds relative to the current position. The target
// is clamped to [0, duration]; live streams (duration 0) clamp only at zero.
// Valid while Playing or Paused.
func (e *Engine) SeekBy(delta float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusPlaying && e.status != StatusPaused {
		return fmt.Errorf("%w: seek from %s", ErrInvalidTransition, e.status)
	}
	pos, dur := e.backend.Position()
	target := pos + delta
	if target < 0 {
		target = 0
	}
	if dur > 0 && target > dur {
		target = dur
	}
	if err := e.backend.Seek(target); err != nil {
		return err
	}
	e.pos = target
	return nil
}

// ReportError feeds a mid-playback failure from the backend integration into
// the state machine.
func (e *Engine) ReportError(err error) {
	e.mu.Lock()
	if e.status != StatusPlaying && e.status != StatusPaused && e.status != StatusLoading {
		e.mu.Unlock()
		return
	}
	gen := e.gen
	b := e.backend
	class, reason := classify(err)
	metricFailures.WithLabelValues(class.String()).Inc()
	e.log.Warn().Err(err).Str("class", class.String()).Msg("playback error reported")

	switch class {
	case ClassFatalImmediate:
		e.detachLocked()
		notify := e.transitionLocked(StatusFailed, reasonMessages[reason])
		e.mu.Unlock()
		if b != nil {
			b.Release()
		}
		notify()

	case ClassMediaFatal:
		rec, ok := b.(Recoverer)
		if !ok || e.mediaTried {
			e.detachLocked()
			notify := e.transitionLocked(StatusFailed, reasonMessages[reason])
			e.mu.Unlock()
			if b != nil {
				b.Release()
			}
			notify()
			return
		}
		e.mediaTried = true
		notify := e.transitionLocked(StatusRecovering, "")
		e.mu.Unlock()
		notify()
		e.recoverMedia(gen, b, rec)

	case ClassNetworkTransient:
		if e.retries >= 1 {
			e.detachLocked()
			notify := e.transitionLocked(StatusFailed, reasonMessages[reason])
			e.mu.Unlock()
			if b != nil {
				b.Release()
			}
			notify()
			return
		}
		e.retries++
		e.detachLocked()
		notify := e.transitionLocked(StatusRecovering, "")
		e.scheduleRetryLocked(gen)
		e.mu.Unlock()
		if b != nil {
			b.Release()
		}
		notify()
	}
}

// attempt builds a backend, loads uri and starts playback. Failures route
// through the classifier.
func (e *Engine) attempt(ctx context.Context, gen uint64, uri string) {
	b := e.factory()
	err := b.Load(ctx, uri)

	e.mu.Lock()
	// A stale generation or a session no longer Loading (an error reported
	// mid-load already drove it to Failed, which is terminal until the user
	// retries) must not be resurrected by a late load result.
	if gen != e.gen || e.status != StatusLoading {
		e.mu.Unlock()
		b.Release()
		return
	}
	if err == nil {
		err = b.Play()
	}

	if err == nil {
		e.backend = b
		notify := e.transitionLocked(StatusPlaying, "")
		e.startSamplerLocked(gen, b)
		e.mu.Unlock()
		notify()
		return
	}

	class, reason := classify(err)
	metricFailures.WithLabelValues(class.String()).Inc()
	e.log.Warn().Err(err).Str("class", class.String()).Msg("load attempt failed")

	if class == ClassNetworkTransient && e.retries == 0 {
		e.retries++
		notify := e.transitionLocked(StatusRecovering, "")
		e.scheduleRetryLocked(gen)
		e.mu.Unlock()
		b.Release()
		notify()
		return
	}

	notify := e.transitionLocked(StatusFailed, reasonMessages[reason])
	e.mu.Unlock()
	b.Release()
	notify()
}

// recoverMedia runs the backend's internal recovery exactly once.
func (e *Engine) recoverMedia(gen uint64, b Backend, rec Recoverer) {
	err := rec.Recover()

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	if err == nil {
		metricRecoveries.WithLabelValues("ok").Inc()
		notify := e.transitionLocked(StatusPlaying, "")
		e.mu.Unlock()
		notify()
		return
	}
	metricRecoveries.WithLabelValues("error").Inc()
	e.detachLocked()
	notify := e.transitionLocked(StatusFailed, reasonMessages[reasonMedia])
	e.mu.Unlock()
	b.Release()
	notify()
}

// scheduleRetryLocked arms the single delayed retry for the current session.
func (e *Engine) scheduleRetryLocked(gen uint64) {
	e.retryTimer = time.AfterFunc(e.retryDelay, func() {
		e.mu.Lock()
		if gen != e.gen || e.status != StatusRecovering {
			e.mu.Unlock()
			return
		}
		uri := e.uri
		notify := e.transitionLocked(StatusLoading, "")
		e.mu.Unlock()
		notify()
		e.attempt(context.Background(), gen, uri)
	})
}

// startSamplerLocked launches the bounded-rate position sampler for the
// current backend.
func (e *Engine) startSamplerLocked(gen uint64, b Backend) {
	stop := make(chan struct{})
	e.samplerStop = stop
	go func() {
		t := time.NewTicker(e.sampleEvery)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				e.mu.Lock()
				if gen != e.gen || e.status != StatusPlaying {
					e.mu.Unlock()
					continue
				}
				pos, dur := b.Position()
				e.pos, e.dur = pos, dur
				cb := e.onProgress
				e.mu.Unlock()
				if cb != nil {
					cb(pos, dur)
				}
			}
		}
	}()
}

// detachLocked stops the sampler and forgets the backend without releasing
// it; the caller releases outside the lock.
func (e *Engine) detachLocked() {
	if e.samplerStop != nil {
		close(e.samplerStop)
		e.samplerStop = nil
	}
	e.backend = nil
}

// teardownLocked cancels pending retries and releases the current backend.
// Release happens before any successor is created.
func (e *Engine) teardownLocked() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	if e.samplerStop != nil {
		close(e.samplerStop)
		e.samplerStop = nil
	}
	if e.backend != nil {
		e.backend.Release()
		e.backend = nil
	}
}

// transitionLocked records the state change and returns the deferred status
// callback, to be invoked after the lock is dropped.
func (e *Engine) transitionLocked(to Status, msg string) func() {
	from := e.status
	e.status = to
	e.message = msg
	metricTransitions.WithLabelValues(string(from), string(to)).Inc()
	e.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("playback transition")
	cb := e.onStatus
	if cb == nil {
		return func() {}
	}
	return func() { cb(to, msg) }
}
