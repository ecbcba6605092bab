package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake provider
 *************/

type fakeProvider struct {
	mu sync.Mutex

	session         *provider.Session
	getSessionDelay time.Duration
	getSessionCalls int

	signInSession *provider.Session
	signInErr     error
	signInDelay   time.Duration

	profiles      map[string]*provider.Profile
	profileErr    error
	profileDelay  time.Duration
	profileDelays map[string]time.Duration

	signOutErr   error
	signOutCalls int

	listeners    map[int]func(provider.AuthChange)
	nextID       int
	captured     func(provider.AuthChange)
	unsubscribed bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		profiles:      map[string]*provider.Profile{},
		profileDelays: map[string]time.Duration{},
		listeners:     map[int]func(provider.AuthChange){},
	}
}

func (f *fakeProvider) OnAuthStateChange(fn func(provider.AuthChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.captured = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
		f.unsubscribed = true
	}
}

func (f *fakeProvider) fire(c provider.AuthChange) {
	f.mu.Lock()
	fns := make([]func(provider.AuthChange), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeProvider) GetSession(ctx context.Context) (*provider.Session, error) {
	f.mu.Lock()
	f.getSessionCalls++
	delay, sess := f.getSessionDelay, f.session
	f.mu.Unlock()
	// the answer reflects the session at call time
	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	return sess, nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*provider.Session, error) {
	f.mu.Lock()
	delay, sess, err := f.signInDelay, f.signInSession, f.signInErr
	f.mu.Unlock()
	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.session = sess
	f.mu.Unlock()
	f.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sess})
	return sess, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	had := f.session != nil
	f.session = nil
	err := f.signOutErr
	f.mu.Unlock()
	if had {
		f.fire(provider.AuthChange{Event: provider.EventSignedOut})
	}
	return err
}

func (f *fakeProvider) GetProfile(ctx context.Context, userID string) (*provider.Profile, error) {
	f.mu.Lock()
	delay, err := f.profileDelay, f.profileErr
	if d, ok := f.profileDelays[userID]; ok {
		delay = d
	}
	p, ok := f.profiles[userID]
	f.mu.Unlock()
	if err := sleepCtx(ctx, delay); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorNotFound
	}
	return p, nil
}

/*************
 * Helpers
 *************/

func sessionFor(id, email string) *provider.Session {
	return &provider.Session{AccessToken: "at-" + id, RefreshToken: "rt-" + id, Expiry: time.Now().Add(time.Hour), User: provider.User{ID: id, Email: email}}
}

type snapshots struct {
	mu   sync.Mutex
	list []Snapshot
}

func (s *snapshots) add(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, snap)
}

func (s *snapshots) all() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.list...)
}

func newReconciler(t *testing.T, p provider.Provider, opts ...Option) *Reconciler {
	t.Helper()
	r := New(p, logging.Discard(), opts...)
	t.Cleanup(r.Close)
	return r
}

/*************
 * Tests
 *************/

func TestNew_StartsUnauthenticated(t *testing.T) {
	p := newFakeProvider()
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	assert.Equal(t, StateUnauthenticated, r.State())
	_, ok := r.Current()
	assert.False(t, ok)
}

func TestPull_RestoresExistingSession(t *testing.T) {
	p := newFakeProvider()
	p.session = sessionFor("u1", "tech@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "admin", Username: "Tech"}

	r := newReconciler(t, p, WithPullDelay(20*time.Millisecond))

	require.Eventually(t, func() bool { return r.State() == StateAuthenticated }, time.Second, 5*time.Millisecond)
	id, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, Identity{ID: "u1", Email: "tech@example.com", Username: "Tech", Role: RoleAdmin}, id)
}

func TestPull_NoSessionStaysUnauthenticated(t *testing.T) {
	p := newFakeProvider()
	r := newReconciler(t, p, WithPullDelay(10*time.Millisecond))

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.getSessionCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestPush_SignedInAndSignedOut(t *testing.T) {
	p := newFakeProvider()
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	p.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u1", "jane@example.com")})
	require.Eventually(t, func() bool { return r.State() == StateAuthenticated }, time.Second, 5*time.Millisecond)

	id, _ := r.Current()
	assert.Equal(t, "jane", id.Username)
	assert.Equal(t, RoleUser, id.Role)

	p.fire(provider.AuthChange{Event: provider.EventSignedOut})
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestPush_ProfileFailureIsSwallowed(t *testing.T) {
	p := newFakeProvider()
	p.profileErr = errors.New("lookup failed")
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	p.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u1", "a@b.c")})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestSignIn_Success(t *testing.T) {
	p := newFakeProvider()
	p.signInSession = sessionFor("u1", "ops@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "admin", Username: "Ops"}
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	var seen snapshots
	r.Watch(seen.add)

	id, err := r.SignIn(context.Background(), "ops@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, StateAuthenticated, r.State())

	got := seen.all()
	require.NotEmpty(t, got)
	assert.Equal(t, StateAuthenticated, got[len(got)-1].State)
}

func TestSignIn_RejectedLeavesStateAlone(t *testing.T) {
	p := newFakeProvider()
	p.signInErr = provider.ErrUnauthorized
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	var seen snapshots
	r.Watch(seen.add)

	_, err := r.SignIn(context.Background(), "x@example.com", "bad")
	assert.ErrorIs(t, err, common.ErrAuth)
	assert.ErrorIs(t, err, provider.ErrUnauthorized)
	assert.Equal(t, StateUnauthenticated, r.State())
	assert.Empty(t, seen.all())
}

func TestSignIn_TransportFailureIsRemoteError(t *testing.T) {
	p := newFakeProvider()
	p.signInErr = provider.ErrUnavailable
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	_, err := r.SignIn(context.Background(), "x@example.com", "pw")
	assert.ErrorIs(t, err, common.ErrRemote)
	assert.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestSignIn_NoProfileSignsOutAgain(t *testing.T) {
	p := newFakeProvider()
	p.signInSession = sessionFor("u1", "x@example.com")
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	_, err := r.SignIn(context.Background(), "x@example.com", "pw")
	var authErr *common.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "no profile", authErr.Reason)

	p.mu.Lock()
	assert.Equal(t, 1, p.signOutCalls)
	p.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestSignOut_WhenUnauthenticatedIsNoop(t *testing.T) {
	p := newFakeProvider()
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	var seen snapshots
	r.Watch(seen.add)

	assert.NotPanics(t, func() { r.SignOut(context.Background()) })
	assert.Equal(t, StateUnauthenticated, r.State())
	assert.Empty(t, seen.all())
}

func TestSignOut_FailOpen(t *testing.T) {
	p := newFakeProvider()
	p.signInSession = sessionFor("u1", "x@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.signOutErr = errors.New("network down")
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	_, err := r.SignIn(context.Background(), "x@example.com", "pw")
	require.NoError(t, err)

	r.SignOut(context.Background())
	assert.Equal(t, StateUnauthenticated, r.State())
	_, ok := r.Current()
	assert.False(t, ok)

	// idempotent
	r.SignOut(context.Background())
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestRace_SlowPullCannotOverrideSignIn(t *testing.T) {
	p := newFakeProvider()
	// the pull would find another user's session
	p.session = sessionFor("other", "other@example.com")
	p.profiles["other"] = &provider.Profile{ID: "other", Role: "user"}
	p.signInSession = sessionFor("me", "me@example.com")
	p.signInDelay = 50 * time.Millisecond
	p.profiles["me"] = &provider.Profile{ID: "me", Role: "admin"}

	r := newReconciler(t, p, WithPullDelay(1000*time.Millisecond))

	var seen snapshots
	r.Watch(seen.add)

	id, err := r.SignIn(context.Background(), "me@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "me", id.ID)

	time.Sleep(1200 * time.Millisecond)

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "me", cur.ID)

	authenticated := false
	for _, s := range seen.all() {
		if s.State == StateAuthenticated {
			authenticated = true
			assert.Equal(t, "me", s.Identity.ID)
			continue
		}
		assert.False(t, authenticated, "unauthenticated after sign-in: %+v", s)
	}
}

func TestRace_RejectedSignInKeepsPullCheck(t *testing.T) {
	p := newFakeProvider()
	p.session = sessionFor("u1", "tech@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.signInErr = provider.ErrUnauthorized

	r := newReconciler(t, p, WithPullDelay(50*time.Millisecond))

	_, err := r.SignIn(context.Background(), "tech@example.com", "typo")
	require.ErrorIs(t, err, common.ErrAuth)

	require.Eventually(t, func() bool { return r.State() == StateAuthenticated }, time.Second, 5*time.Millisecond)
	cur, _ := r.Current()
	assert.Equal(t, "u1", cur.ID)

	p.mu.Lock()
	assert.Equal(t, 1, p.getSessionCalls)
	p.mu.Unlock()
}

func TestRace_FailedSignInKeepsPullCheck(t *testing.T) {
	p := newFakeProvider()
	p.session = sessionFor("u1", "tech@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.signInErr = provider.ErrUnavailable

	r := newReconciler(t, p, WithPullDelay(30*time.Millisecond))

	_, err := r.SignIn(context.Background(), "tech@example.com", "pw")
	require.ErrorIs(t, err, common.ErrRemote)

	require.Eventually(t, func() bool { return r.State() == StateAuthenticated }, time.Second, 5*time.Millisecond)
}

func TestSignOut_CancelsPendingPull(t *testing.T) {
	p := newFakeProvider()
	p.session = sessionFor("u1", "x@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}

	r := newReconciler(t, p, WithPullDelay(30*time.Millisecond))
	r.SignOut(context.Background())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateUnauthenticated, r.State())
	p.mu.Lock()
	assert.Equal(t, 0, p.getSessionCalls)
	p.mu.Unlock()
}

func TestRace_LatestPushWins(t *testing.T) {
	p := newFakeProvider()
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.profiles["u2"] = &provider.Profile{ID: "u2", Role: "admin"}
	p.profileDelays["u1"] = 100 * time.Millisecond
	r := newReconciler(t, p, WithPullDelay(time.Hour))

	var seen snapshots
	r.Watch(seen.add)

	p.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u1", "a@example.com")})
	time.Sleep(10 * time.Millisecond)
	p.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u2", "b@example.com")})

	require.Eventually(t, func() bool { return r.State() == StateAuthenticated }, time.Second, 5*time.Millisecond)
	// let the slow lookup for u1 finish
	time.Sleep(200 * time.Millisecond)

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "u2", cur.ID)
	for _, snap := range seen.all() {
		assert.NotEqual(t, "u1", snap.Identity.ID)
	}
}

func TestRace_InFlightPullCannotResurrectAfterSignOut(t *testing.T) {
	p := newFakeProvider()
	p.session = sessionFor("u1", "x@example.com")
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.getSessionDelay = 100 * time.Millisecond

	r := newReconciler(t, p, WithPullDelay(10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	r.SignOut(context.Background())

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateUnauthenticated, r.State())
}

func TestClose_EventAfterTeardownIsIgnored(t *testing.T) {
	p := newFakeProvider()
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	r := New(p, logging.Discard(), WithPullDelay(time.Hour))

	var seen snapshots
	r.Watch(seen.add)

	r.Close()

	p.mu.Lock()
	assert.True(t, p.unsubscribed)
	late := p.captured
	p.mu.Unlock()

	done := make(chan struct{})
	time.AfterFunc(10*time.Millisecond, func() {
		defer close(done)
		late(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u1", "x@example.com")})
		late(provider.AuthChange{Event: provider.EventSignedOut})
	})
	<-done
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateClosed, r.State())
	assert.Empty(t, seen.all())

	_, err := r.SignIn(context.Background(), "x@example.com", "pw")
	assert.ErrorIs(t, err, ErrClosed)

	// idempotent
	assert.NotPanics(t, r.Close)
}

func TestClose_CancelsInFlightLookup(t *testing.T) {
	p := newFakeProvider()
	p.profiles["u1"] = &provider.Profile{ID: "u1", Role: "user"}
	p.profileDelay = time.Hour
	r := New(p, logging.Discard(), WithPullDelay(time.Hour))

	p.fire(provider.AuthChange{Event: provider.EventSignedIn, Session: sessionFor("u1", "x@example.com")})

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the lookup")
	}
	assert.Equal(t, StateClosed, r.State())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleNone, ParseRole("superuser"))
	assert.Equal(t, RoleNone, ParseRole(""))
	assert.Equal(t, "admin", RoleAdmin.String())
	assert.Equal(t, "none", RoleNone.String())
}

func TestNewIdentity_UsernameFallback(t *testing.T) {
	assert.Equal(t, "Tech", newIdentity(provider.User{Email: "a@b.c"}, &provider.Profile{Username: " Tech "}).Username)
	assert.Equal(t, "a", newIdentity(provider.User{Email: "a@b.c"}, &provider.Profile{}).Username)
	assert.Equal(t, "User", newIdentity(provider.User{Email: ""}, &provider.Profile{}).Username)
	assert.Equal(t, RoleNone, newIdentity(provider.User{}, nil).Role)
}
