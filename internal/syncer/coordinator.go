package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fleet-admin/internal/client"
	"fleet-admin/internal/model"
	"fleet-admin/internal/service"
)

const (
	DefaultDebounce = 300 * time.Millisecond

	pushTimeout       = 30 * time.Second
	reauthDetail      = "Authentication required. Please sign in to continue."
	notSignedInDetail = "Authentication required. Please sign in."
)

var ErrNotSignedIn = errors.New("not signed in")

// Remote is the server side of synchronization. *client.StateClient
// implements it.
type Remote interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	FetchState(ctx context.Context, token string) (model.Snapshot, error)
	PushState(ctx context.Context, token string, snapshot model.Snapshot) (model.Snapshot, error)
}

// Coordinator keeps the local state and the server in step. Local edits are
// cached immediately and pushed to the server after a short quiet period;
// the last write wins.
type Coordinator struct {
	fleet    *service.FleetService
	remote   Remote
	cache    *LocalCache
	log      zerolog.Logger
	debounce time.Duration

	bootMu sync.Mutex

	mu        sync.Mutex
	status    Status
	token     string
	hydrated  bool
	pending   bool
	timer     *time.Timer
	timerGen  uint64
	pushSeq   uint64
	listeners []Listener
}

func NewCoordinator(fleet *service.FleetService, remote Remote, cache *LocalCache, debounce time.Duration, log zerolog.Logger) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	c := &Coordinator{
		fleet:    fleet,
		remote:   remote,
		cache:    cache,
		log:      log,
		debounce: debounce,
		status:   StatusIdle,
		token:    cache.LoadToken(),
	}
	fleet.OnPersist(c.Persist)
	return c
}

func (c *Coordinator) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Coordinator) Hydrated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrated
}

func (c *Coordinator) SignedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Pending reports whether a local change has not reached the server yet.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Bootstrap applies the cached snapshot and, when signed in, replaces it with
// the server copy. A server that cannot be reached leaves the local data in
// place and is not an error.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	if snapshot, ok, err := c.cache.LoadSnapshot(ctx); err != nil {
		c.log.Warn().Err(err).Msg("unable to read local snapshot")
	} else if ok {
		c.fleet.Replace(snapshot)
	}

	c.mu.Lock()
	token := c.token
	if token == "" {
		c.mu.Unlock()
		return nil
	}
	ev := c.setStatusLocked(StatusConnecting, "", false)
	c.mu.Unlock()
	c.emit(ev)

	remote, err := c.remote.FetchState(ctx, token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			c.handleUnauthorized(reauthDetail)
			return err
		}
		c.log.Warn().Err(err).Msg("falling back to locally cached data because the server state could not be loaded")
		c.goOffline(err.Error())
		return nil
	}

	c.fleet.Replace(remote)
	if err := c.cache.SaveSnapshot(ctx, c.fleet.Snapshot()); err != nil {
		c.log.Warn().Err(err).Msg("unable to persist snapshot locally")
	}

	c.mu.Lock()
	c.hydrated = true
	ev = c.setStatusLocked(StatusConnected, "", false)
	c.mu.Unlock()
	c.emit(ev)
	return nil
}

// Persist is the FleetService hook: the snapshot goes to the local cache right
// away and a remote push is scheduled once the state came from the server.
func (c *Coordinator) Persist(snapshot model.Snapshot) {
	if err := c.cache.SaveSnapshot(context.Background(), snapshot); err != nil {
		c.log.Warn().Err(err).Msg("unable to persist snapshot locally")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hydrated {
		return
	}
	c.pending = true
	c.armTimerLocked()
}

func (c *Coordinator) armTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.onTimer(gen) })
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Coordinator) onTimer(gen uint64) {
	c.mu.Lock()
	if gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := c.push(ctx); err != nil {
		c.log.Warn().Err(err).Msg("unable to sync data with the server, changes remain saved locally until the next successful sync")
	}
}

// Flush pushes a pending change immediately instead of waiting for the
// debounce timer.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	c.stopTimerLocked()
	pending := c.pending
	c.mu.Unlock()

	if !pending {
		return nil
	}
	return c.push(ctx)
}

func (c *Coordinator) push(ctx context.Context) error {
	c.mu.Lock()
	if !c.hydrated {
		c.mu.Unlock()
		return nil
	}
	if c.token == "" {
		c.mu.Unlock()
		return ErrNotSignedIn
	}
	c.pushSeq++
	seq := c.pushSeq
	token := c.token
	c.pending = false
	var ev *StatusEvent
	if c.status != StatusOffline {
		e := c.setStatusLocked(StatusConnecting, "", false)
		ev = &e
	}
	c.mu.Unlock()
	if ev != nil {
		c.emit(*ev)
	}

	_, err := c.remote.PushState(ctx, token, c.fleet.Snapshot())

	c.mu.Lock()
	if seq != c.pushSeq {
		// A newer push owns the status now.
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			c.handleUnauthorized(reauthDetail)
			return err
		}
		c.mu.Lock()
		c.pending = true
		c.mu.Unlock()
		c.goOffline(err.Error())
		return err
	}

	c.mu.Lock()
	e := c.setStatusLocked(StatusConnected, "", false)
	c.mu.Unlock()
	c.emit(e)
	return nil
}

// Login signs in, loads the server state and derives any missing invoices and
// supplier payments from completed trips.
func (c *Coordinator) Login(ctx context.Context, username, password string) error {
	token, err := c.remote.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if err := c.cache.SaveToken(token); err != nil {
		c.log.Warn().Err(err).Msg("unable to persist authentication token")
	}

	if err := c.Bootstrap(ctx); err != nil {
		return err
	}
	c.fleet.ReconcileAll()
	return nil
}

func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.hydrated = false
	c.pending = false
	c.stopTimerLocked()
	ev := c.setStatusLocked(StatusIdle, "", false)
	c.mu.Unlock()

	if err := c.cache.ClearToken(); err != nil {
		c.log.Warn().Err(err).Msg("unable to clear authentication token")
	}
	c.emit(ev)

	if token == "" {
		return nil
	}
	if err := c.remote.Logout(ctx, token); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return nil
}

// RequireSignIn reports ErrNotSignedIn as an offline event for callers that
// need a session before talking to the server.
func (c *Coordinator) RequireSignIn() error {
	if c.SignedIn() {
		return nil
	}
	c.goOffline(notSignedInDetail)
	return ErrNotSignedIn
}

// Close stops the debounce timer without pushing.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()
}

func (c *Coordinator) handleUnauthorized(detail string) {
	c.mu.Lock()
	c.token = ""
	c.hydrated = false
	c.stopTimerLocked()
	ev := c.setStatusLocked(StatusOffline, detail, true)
	c.mu.Unlock()

	if err := c.cache.ClearToken(); err != nil {
		c.log.Warn().Err(err).Msg("unable to clear authentication token")
	}
	c.emit(ev)
}

func (c *Coordinator) goOffline(detail string) {
	c.mu.Lock()
	ev := c.setStatusLocked(StatusOffline, detail, false)
	c.mu.Unlock()
	c.emit(ev)
}

func (c *Coordinator) setStatusLocked(status Status, detail string, reauth bool) StatusEvent {
	c.status = status
	return newStatusEvent(status, detail, reauth)
}

func (c *Coordinator) emit(ev StatusEvent) {
	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()
	for _, l := range listeners {
		l(ev)
	}
}
