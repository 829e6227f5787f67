// Package poller runs repeating fetch operations for live views.
//
// A task fetches immediately on start and then waits for its interval after
// each fetch settles, so a slow backend never causes overlapping requests.
// Every fetch is numbered; a completion that is older than the last applied
// one is dropped, which keeps views on the newest payload when responses race.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// ErrorReporter receives failed ticks after they have been logged.
type ErrorReporter func(task string, err error)

type Option func(*options)

type options struct {
	fetchTimeout time.Duration
	onError      func(error)
	reporter     ErrorReporter
}

// WithFetchTimeout bounds every fetch of the task.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = timeout
	}
}

// WithErrorHandler is called with each failed tick, under the same rules as onUpdate.
func WithErrorHandler(handler func(error)) Option {
	return func(o *options) {
		o.onError = handler
	}
}

func WithReporter(reporter ErrorReporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

type Stats struct {
	Fetches   uint64
	Updates   uint64
	Errors    uint64
	Discarded uint64
}

type Handle struct {
	name string

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once
	canceled   atomic.Bool

	deliveryMu sync.Mutex
	applied    uint64

	refresh chan struct{}
	done    chan struct{}

	fetches   atomic.Uint64
	updates   atomic.Uint64
	errors    atomic.Uint64
	discarded atomic.Uint64
}

type result[T any] struct {
	seq   uint64
	value T
	err   error
}

// Start launches a polling task. A non-positive interval fetches once and
// afterwards only on Refresh. The task stops when ctx is done or Cancel is called.
func Start[T any](ctx context.Context, name string, interval time.Duration, fetch FetchFunc[T], onUpdate func(T), opts ...Option) *Handle {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	taskCtx, cancel := context.WithCancel(ctx)

	h := &Handle{
		name:    name,
		ctx:     taskCtx,
		cancel:  cancel,
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	log.Debug().Str("task", name).Dur("interval", interval).Msg("Starting polling task")

	go run(h, interval, fetch, onUpdate, o)

	return h
}

func run[T any](h *Handle, interval time.Duration, fetch FetchFunc[T], onUpdate func(T), o options) {
	defer close(h.done)

	results := make(chan result[T])

	var (
		latest   uint64
		inflight context.CancelFunc
		timer    *time.Timer
		tick     <-chan time.Time
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = nil
		tick = nil
	}

	issue := func() {
		if inflight != nil {
			// Superseded, its result can only be discarded now
			inflight()
		}

		latest++
		seq := latest

		var fetchCtx context.Context
		if o.fetchTimeout > 0 {
			fetchCtx, inflight = context.WithTimeout(h.ctx, o.fetchTimeout)
		} else {
			fetchCtx, inflight = context.WithCancel(h.ctx)
		}

		h.fetches.Add(1)

		go func() {
			value, err := safeFetch(fetchCtx, fetch)

			select {
			case results <- result[T]{seq: seq, value: value, err: err}:
			case <-h.ctx.Done():
			}
		}()
	}

	issue()

	for {
		select {
		case <-h.ctx.Done():
			stopTimer()
			if inflight != nil {
				inflight()
			}

			log.Debug().Str("task", h.name).Msg("Polling task stopped")
			return
		case r := <-results:
			settle(h, r, latest, onUpdate, o)

			if r.seq == latest {
				inflight()
				inflight = nil

				if interval > 0 {
					timer = time.NewTimer(interval)
					tick = timer.C
				}
			}
		case <-tick:
			timer = nil
			tick = nil
			issue()
		case <-h.refresh:
			stopTimer()
			issue()
		}
	}
}

func settle[T any](h *Handle, r result[T], latest uint64, onUpdate func(T), o options) {
	if r.err != nil {
		if r.seq < latest || h.stopped() {
			h.discarded.Add(1)
			return
		}

		h.errors.Add(1)

		log.Warn().
			Err(r.err).
			Str("task", h.name).
			Uint64("seq", r.seq).
			Msg("Polling fetch failed, keeping last value")

		if o.reporter != nil {
			o.reporter(h.name, r.err)
		}

		if o.onError != nil {
			h.deliveryMu.Lock()
			defer h.deliveryMu.Unlock()

			if !h.stopped() {
				o.onError(r.err)
			}
		}
		return
	}

	h.deliveryMu.Lock()
	defer h.deliveryMu.Unlock()

	if h.stopped() || r.seq <= h.applied {
		h.discarded.Add(1)

		log.Debug().Str("task", h.name).Uint64("seq", r.seq).Uint64("applied", h.applied).Msg("Discarding stale poll result")
		return
	}

	h.applied = r.seq
	h.updates.Add(1)

	onUpdate(r.value)
}

func safeFetch[T any](ctx context.Context, fetch FetchFunc[T]) (value T, err error) {
	var catcher panics.Catcher

	catcher.Try(func() {
		value, err = fetch(ctx)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		var empty T
		return empty, recovered.AsError()
	}

	return value, err
}

func (h *Handle) stopped() bool {
	return h.canceled.Load() || h.ctx.Err() != nil
}

func (h *Handle) Name() string {
	return h.name
}

// Cancel stops the task. It is idempotent and blocks until an onUpdate that is
// already running returns; no onUpdate starts after Cancel returns. It must
// not be called from inside the task's own onUpdate, cancel the parent
// context there instead.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		h.canceled.Store(true)
		h.cancel()

		log.Debug().Str("task", h.name).Msg("Cancelled polling task")
	})

	h.deliveryMu.Lock()
	h.deliveryMu.Unlock()
}

// Refresh fetches immediately, superseding a fetch that is still in flight.
func (h *Handle) Refresh() {
	if h.stopped() {
		return
	}

	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// Done is closed once the task's goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Stats() Stats {
	return Stats{
		Fetches:   h.fetches.Load(),
		Updates:   h.updates.Load(),
		Errors:    h.errors.Load(),
		Discarded: h.discarded.Load(),
	}
}
