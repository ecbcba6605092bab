// Package session keeps one consistent view of who is signed in. It merges
// the provider's pushed auth events with a one-shot pull of an existing
// session into a single state cell guarded by a generation counter.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
)

// DefaultPullDelay is the delay of the start-up session check.
const DefaultPullDelay = time.Second

var ErrClosed = errors.New("session reconciler closed")

type Option func(*Reconciler)

func WithPullDelay(d time.Duration) Option {
	return func(r *Reconciler) {
		if d >= 0 {
			r.pullDelay = d
		}
	}
}

// Reconciler owns the identity state of one client.
//
// Passive completions (push events, the pull check) carry the generation
// they were issued under and commit only while it is still current. Every
// pushed principal, every committed SignIn, SignOut and Close bump the
// generation, so only the latest writer lands. A SignIn that fails before
// committing invalidates nothing. The pull check is cancelled only by
// SignOut, a pushed sign-out or Close. SignIn and SignOut must not be called
// concurrently with each other.
type Reconciler struct {
	provider  provider.Provider
	logger    logging.Logger
	pullDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	mu          sync.Mutex
	state       State
	identity    Identity
	gen         uint64
	closed      bool
	timer       *time.Timer
	pullStopped bool
	unsubscribe func()
	watchers    map[int]func(Snapshot)
	nextWatcher int

	// notifyMu keeps watcher calls in commit order.
	notifyMu sync.Mutex
}

// New subscribes to p's auth events and schedules the pull check.
func New(p provider.Provider, l logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider:  p,
		logger:    l.With("module", "session"),
		pullDelay: DefaultPullDelay,
		state:     StateUninitialized,
		watchers:  make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.mu.Lock()
	r.state = StateUnauthenticated
	r.unsubscribe = p.OnAuthStateChange(r.onAuthChange)
	r.timer = time.AfterFunc(r.pullDelay, r.pull)
	r.mu.Unlock()

	return r
}

// Current returns the identity and whether someone is signed in.
func (r *Reconciler) Current() (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateAuthenticated {
		return Identity{}, false
	}
	return r.identity, true
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Watch calls fn after every later transition. fn must not call SignIn,
// SignOut or Close synchronously.
func (r *Reconciler) Watch(fn func(Snapshot)) (cancel func()) {
	r.mu.Lock()
	id := r.nextWatcher
	r.nextWatcher++
	r.watchers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// SignIn authenticates with the provider and resolves the profile. Rejected
// credentials leave the state untouched. A missing profile signs the
// provider session out again.
func (r *Reconciler) SignIn(ctx context.Context, email, password string) (Identity, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return Identity{}, ErrClosed
	}

	sess, err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, provider.ErrUnauthorized) {
			return Identity{}, &common.AuthError{Reason: "credentials rejected", Err: err}
		}
		var ve *common.ValidationError
		if errors.As(err, &ve) {
			return Identity{}, err
		}
		return Identity{}, &common.RemoteError{Message: err.Error(), Err: err}
	}

	profile, err := r.provider.GetProfile(ctx, sess.User.ID)
	if err != nil {
		if serr := r.provider.SignOut(ctx); serr != nil {
			r.logger.Warn(ctx, "sign-out after failed profile lookup", "error", serr)
		}
		r.commit(nil, StateUnauthenticated, Identity{})
		return Identity{}, &common.AuthError{Reason: "no profile", Err: err}
	}

	id := newIdentity(sess.User, profile)
	if !r.commit(nil, StateAuthenticated, id) {
		return Identity{}, ErrClosed
	}
	r.logger.Info(ctx, "signed in", "user_id", id.ID, "role", id.Role.String())
	return id, nil
}

// SignOut asks the provider to end the session and moves to
// Unauthenticated whatever the provider answers. It never fails.
func (r *Reconciler) SignOut(ctx context.Context) {
	if !r.stop() {
		return
	}
	if err := r.provider.SignOut(ctx); err != nil {
		r.logger.Warn(ctx, "provider sign-out failed", "error", err)
	}
	r.commit(nil, StateUnauthenticated, Identity{})
}

// Close stops the pull check, unsubscribes from events, cancels in-flight
// lookups and waits for them. No transition happens afterwards.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.gen++
	r.state = StateClosed
	r.pullStopped = true
	r.timer.Stop()
	unsubscribe := r.unsubscribe
	r.mu.Unlock()

	unsubscribe()
	r.cancel()
	r.tasks.Wait()
}

// stop invalidates every pending passive completion and cancels the pull
// check.
func (r *Reconciler) stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.gen++
	r.pullStopped = true
	r.timer.Stop()
	return true
}

// begin registers a push task under a fresh generation, superseding every
// lookup still in flight.
func (r *Reconciler) begin() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, false
	}
	r.gen++
	r.tasks.Add(1)
	return r.gen, true
}

// commit moves to state unless the reconciler is closed or, for passive
// writers, gen is no longer current. A nil gen marks an explicit action,
// which always bumps the generation.
func (r *Reconciler) commit(gen *uint64, state State, id Identity) bool {
	r.mu.Lock()
	if r.closed || (gen != nil && *gen != r.gen) {
		r.mu.Unlock()
		return false
	}
	if gen == nil {
		r.gen++
	}
	if r.state == state && r.identity == id {
		r.mu.Unlock()
		return true
	}
	r.state, r.identity = state, id
	snap := Snapshot{State: state, Identity: id}
	fns := make([]func(Snapshot), 0, len(r.watchers))
	for _, fn := range r.watchers {
		fns = append(fns, fn)
	}

	r.notifyMu.Lock()
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
	r.notifyMu.Unlock()
	return true
}

func (r *Reconciler) onAuthChange(c provider.AuthChange) {
	if c.Event == provider.EventSignedOut || c.Session == nil {
		// a pushed sign-out outranks pending passive lookups
		if r.stop() {
			r.commit(nil, StateUnauthenticated, Identity{})
		}
		return
	}

	if c.Event == provider.EventTokenRefreshed {
		if cur, ok := r.Current(); ok && cur.ID == c.Session.User.ID {
			return
		}
	}

	gen, ok := r.begin()
	if !ok {
		return
	}
	user := c.Session.User
	go func() {
		defer r.tasks.Done()
		r.resolve(gen, user)
	}()
}

// pull looks for a session that existed before the subscription, once.
func (r *Reconciler) pull() {
	r.mu.Lock()
	if r.closed || r.pullStopped || r.state != StateUnauthenticated {
		r.mu.Unlock()
		return
	}
	r.pullStopped = true
	gen := r.gen
	r.tasks.Add(1)
	r.mu.Unlock()
	defer r.tasks.Done()

	sess, err := r.provider.GetSession(r.ctx)
	if err != nil {
		r.logger.Warn(r.ctx, "session check failed", "error", err)
		return
	}
	if sess == nil {
		return
	}
	r.resolve(gen, sess.User)
}

// resolve performs the single profile lookup of the passive path. Errors
// are logged and leave the state alone.
func (r *Reconciler) resolve(gen uint64, user provider.User) {
	profile, err := r.provider.GetProfile(r.ctx, user.ID)
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Warn(r.ctx, "profile lookup failed", "user_id", user.ID, "error", err)
		}
		return
	}
	if r.commit(&gen, StateAuthenticated, newIdentity(user, profile)) {
		r.logger.Debug(r.ctx, "session restored", "user_id", user.ID)
	}
}
