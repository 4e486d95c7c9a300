package users

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	jobmetrics "github.com/conecta2/conecta2/internal/jobs"
)

// RefreshJob names refreshes in job metrics.
const RefreshJob = "users.refresh"

const refreshKey = "users"

// Observer receives every newly published state.
type Observer func(State)

// ErrorObserver receives every failed refresh.
type ErrorObserver func(error)

// Result is the outcome of one Refresh call.
type Result struct {
	Users State
	Err   error
	// Shared is true when the outcome was delivered to more than one caller
	// because refreshes were coalesced.
	Shared bool
}

// ControllerConfig collects optional controller dependencies.
type ControllerConfig struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// ManualRefresh disables the refresh normally issued on construction.
	ManualRefresh bool
}

// Controller owns the published directory state and mediates between a
// Source and whatever renders the list.
//
// Only the refresh goroutine writes state; readers load an immutable snapshot.
// Observers run synchronously on publish and must not call Close.
type Controller struct {
	source  Source
	logger  *slog.Logger
	metrics *jobmetrics.Metrics

	state    atomic.Pointer[State]
	lastErr  atomic.Pointer[refreshFailure]
	inflight atomic.Bool
	closed   atomic.Bool
	group    singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc

	// publishMu serialises publication with Close.
	publishMu sync.Mutex

	mu             sync.Mutex
	nextID         int
	observers      map[int]Observer
	errorObservers map[int]ErrorObserver
}

type refreshFailure struct {
	err error
}

// NewController wires a controller to its source and, unless
// cfg.ManualRefresh is set, starts the first refresh.
func NewController(source Source, cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:         source,
		logger:         logger.With(slog.String("component", "users.controller")),
		metrics:        cfg.Metrics,
		ctx:            ctx,
		cancel:         cancel,
		observers:      make(map[int]Observer),
		errorObservers: make(map[int]ErrorObserver),
	}
	empty := State{}
	c.state.Store(&empty)
	if !cfg.ManualRefresh {
		c.Refresh()
	}
	return c
}

// CurrentState returns the latest published snapshot. It never blocks and is
// empty until the first successful refresh. Callers must not modify it.
func (c *Controller) CurrentState() State {
	return *c.state.Load()
}

// LastError returns the failure of the most recent refresh, or nil when it
// succeeded.
func (c *Controller) LastError() error {
	if f := c.lastErr.Load(); f != nil {
		return f.err
	}
	return nil
}

// Refreshing reports whether a fetch is in flight.
func (c *Controller) Refreshing() bool {
	return c.inflight.Load()
}

// Subscribe registers an observer for published states.
func (c *Controller) Subscribe(fn Observer) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// SubscribeErrors registers an observer for refresh failures.
func (c *Controller) SubscribeErrors(fn ErrorObserver) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.errorObservers[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.errorObservers, id)
		c.mu.Unlock()
	}
}

// Refresh fetches the directory asynchronously and returns a channel that
// receives exactly one Result. A call made while a fetch is in flight joins it
// instead of starting another.
func (c *Controller) Refresh() <-chan Result {
	out := make(chan Result, 1)
	if c.closed.Load() {
		out <- Result{Err: ErrClosed}
		close(out)
		return out
	}
	ch := c.group.DoChan(refreshKey, c.refresh)
	go func() {
		res := <-ch
		result := Result{Err: res.Err, Shared: res.Shared}
		if users, ok := res.Val.(State); ok {
			result.Users = users
		}
		out <- result
		close(out)
	}()
	return out
}

// Close destroys the controller. A refresh still in flight is discarded; no
// state change or notification happens once Close returns.
func (c *Controller) Close() {
	c.cancel()
	c.publishMu.Lock()
	c.closed.Store(true)
	c.publishMu.Unlock()
}

func (c *Controller) refresh() (interface{}, error) {
	c.inflight.Store(true)
	defer c.inflight.Store(false)

	logger := c.logger.With(slog.String("refresh_id", uuid.NewString()))
	tracker := c.metrics.Track(RefreshJob)
	users, err := c.source.FetchAll(c.ctx)
	_ = tracker.End(err)

	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if c.closed.Load() {
		logger.Debug("discarding refresh after close")
		return nil, ErrClosed
	}
	if err != nil {
		c.lastErr.Store(&refreshFailure{err: err})
		logger.Warn("refresh users", slog.Any("error", err))
		c.notifyErrors(err)
		return nil, err
	}

	snapshot := State(slices.Clone(users))
	if snapshot == nil {
		snapshot = State{}
	}
	c.state.Store(&snapshot)
	c.lastErr.Store(nil)
	c.metrics.SetRecords(RefreshJob, len(snapshot))
	logger.Info("published users", slog.Int("count", len(snapshot)))
	c.notify(snapshot)
	return snapshot, nil
}

func (c *Controller) notify(state State) {
	c.mu.Lock()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()
	for _, fn := range observers {
		fn(state)
	}
}

func (c *Controller) notifyErrors(err error) {
	c.mu.Lock()
	observers := make([]ErrorObserver, 0, len(c.errorObservers))
	for _, fn := range c.errorObservers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()
	for _, fn := range observers {
		fn(err)
	}
}
