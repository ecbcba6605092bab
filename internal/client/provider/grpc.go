package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// expirySkew refreshes access tokens slightly before they expire.
const expirySkew = 10 * time.Second

// GRPCProvider implements Provider over the identity gRPC service. One
// instance is shared by the session reconciler and the catalog HTTP client.
type GRPCProvider struct {
	conn   *grpc.ClientConn
	client identitypb.IdentityClient
	store  sessionStore
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// refreshMu serialises refreshes; refresh tokens are single use.
	refreshMu sync.Mutex

	mu          sync.Mutex
	session     *Session
	listeners   map[int]func(AuthChange)
	nextID      int
	watchCancel context.CancelFunc
}

var _ Provider = (*GRPCProvider)(nil)

// New dials the identity service at addr and restores a session saved in
// sessionFile, if any. Extra dial options are appended to the defaults.
func New(addr, sessionFile string, l logging.Logger, opts ...grpc.DialOption) (*GRPCProvider, error) {
	p := &GRPCProvider{
		store:     sessionStore{path: sessionFile},
		logger:    l.With("module", "provider"),
		listeners: make(map[int]func(AuthChange)),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(p.accessTokenInterceptor),
		grpc.WithStreamInterceptor(p.accessTokenStreamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		p.cancel()
		return nil, err
	}
	p.conn = conn
	p.client = identitypb.NewIdentityClient(conn)

	sess, err := p.store.load()
	if err != nil {
		p.logger.Warn(p.ctx, "discarding unreadable session file", "error", err)
		_ = p.store.clear()
	}
	if sess != nil {
		p.mu.Lock()
		p.session = sess
		p.startWatchLocked(sess.User.ID)
		p.mu.Unlock()
	}

	return p, nil
}

// Close stops the session watch and closes the connection.
func (p *GRPCProvider) Close() error {
	p.mu.Lock()
	p.stopWatchLocked()
	p.mu.Unlock()
	p.cancel()
	return p.conn.Close()
}

func (p *GRPCProvider) OnAuthStateChange(fn func(AuthChange)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// emit calls listeners on the caller's goroutine, outside the lock.
func (p *GRPCProvider) emit(ev Event, sess *Session) {
	p.mu.Lock()
	fns := make([]func(AuthChange), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(AuthChange{Event: ev, Session: sess.clone()})
	}
}

func (p *GRPCProvider) current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *GRPCProvider) accessToken() string {
	if s := p.current(); s != nil {
		return s.AccessToken
	}
	return ""
}

func sessionFromMessage(m identitypb.Session) *Session {
	return &Session{
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		Expiry:       m.ExpiresAt,
		User:         User{ID: m.User.ID, Email: m.User.Email},
	}
}

// GetSession returns the live session, refreshing an expired access token
// first. A session the server no longer accepts is dropped and reported as
// nil.
func (p *GRPCProvider) GetSession(ctx context.Context) (*Session, error) {
	cur := p.current()
	if cur == nil {
		return nil, nil
	}
	if time.Now().Add(expirySkew).Before(cur.Expiry) {
		return cur.clone(), nil
	}

	sess, err := p.refresh(ctx, cur.AccessToken)
	if err != nil {
		if errors.Is(err, ErrNotSignedIn) || isUnauthenticated(err) {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return sess.clone(), nil
}

func (p *GRPCProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	out, err := p.client.SignIn(ctx, identitypb.MustEncode(identitypb.Credentials{Email: email, Password: password}))
	if err != nil {
		return nil, mapError(err)
	}
	var m identitypb.Session
	if err := identitypb.Decode(out, &m); err != nil {
		return nil, err
	}
	sess := sessionFromMessage(m)

	p.mu.Lock()
	p.session = sess
	p.startWatchLocked(sess.User.ID)
	p.mu.Unlock()

	if err := p.store.save(sess); err != nil {
		p.logger.Warn(ctx, "session not persisted", "error", err)
	}

	p.emit(EventSignedIn, sess)
	return sess.clone(), nil
}

// SignOut ends the session on the server and locally. The local session is
// dropped even when the server call fails; that error is still returned.
func (p *GRPCProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopWatchLocked()
	p.mu.Unlock()

	_, err := p.client.SignOut(ctx, identitypb.MustEncode(identitypb.Empty{}))

	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	if cerr := p.store.clear(); cerr != nil {
		p.logger.Warn(ctx, "session file not removed", "error", cerr)
	}

	p.emit(EventSignedOut, nil)
	return mapError(err)
}

func (p *GRPCProvider) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	out, err := p.client.GetProfile(ctx, identitypb.MustEncode(identitypb.ProfileRequest{ID: userID}))
	if err != nil {
		return nil, mapError(err)
	}
	var m identitypb.Profile
	if err := identitypb.Decode(out, &m); err != nil {
		return nil, err
	}
	return &Profile{ID: m.ID, Role: m.Role, Username: m.Username}, nil
}

// CreateUser registers a new account. The caller must be an admin.
func (p *GRPCProvider) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	out, err := p.client.CreateUser(ctx, identitypb.MustEncode(identitypb.CreateUserRequest{
		Email:    in.Email,
		Password: in.Password,
		Username: in.Username,
		Role:     in.Role,
	}))
	if err != nil {
		return nil, mapError(err)
	}
	var m identitypb.User
	if err := identitypb.Decode(out, &m); err != nil {
		return nil, err
	}
	return &User{ID: m.ID, Email: m.Email}, nil
}

// refresh exchanges the refresh token for a new pair. stale is the access
// token that was rejected; when another caller already replaced it the
// current session is returned as is. Listeners are notified after the
// refresh lock is released.
func (p *GRPCProvider) refresh(ctx context.Context, stale string) (*Session, error) {
	sess, ev, err := p.refreshOnce(ctx, stale)
	switch ev {
	case EventTokenRefreshed:
		p.emit(EventTokenRefreshed, sess)
	case EventSignedOut:
		p.emit(EventSignedOut, nil)
	}
	return sess, err
}

func (p *GRPCProvider) refreshOnce(ctx context.Context, stale string) (*Session, Event, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	cur := p.current()
	if cur == nil {
		return nil, "", ErrNotSignedIn
	}
	if cur.AccessToken != stale {
		return cur, "", nil
	}

	out, err := p.client.Refresh(ctx, identitypb.MustEncode(identitypb.RefreshRequest{RefreshToken: cur.RefreshToken}))
	if err != nil {
		if isUnauthenticated(err) && p.clearSession(ctx, func(s *Session) bool { return s == cur }) {
			return nil, EventSignedOut, err
		}
		return nil, "", err
	}
	var m identitypb.Session
	if err := identitypb.Decode(out, &m); err != nil {
		return nil, "", err
	}
	sess := sessionFromMessage(m)

	p.mu.Lock()
	if p.session != cur {
		// signed out or in again meanwhile
		p.mu.Unlock()
		return nil, "", ErrNotSignedIn
	}
	p.session = sess
	p.mu.Unlock()

	if err := p.store.save(sess); err != nil {
		p.logger.Warn(ctx, "session not persisted", "error", err)
	}
	p.logger.Debug(ctx, "access token refreshed", "user_id", sess.User.ID)
	return sess, EventTokenRefreshed, nil
}

// dropSession clears the local session when match accepts it and reports
// the sign-out to listeners.
func (p *GRPCProvider) dropSession(ctx context.Context, match func(*Session) bool) {
	if p.clearSession(ctx, match) {
		p.emit(EventSignedOut, nil)
	}
}

func (p *GRPCProvider) clearSession(ctx context.Context, match func(*Session) bool) bool {
	p.mu.Lock()
	if p.session == nil || !match(p.session) {
		p.mu.Unlock()
		return false
	}
	p.session = nil
	p.stopWatchLocked()
	p.mu.Unlock()

	if err := p.store.clear(); err != nil {
		p.logger.Warn(ctx, "session file not removed", "error", err)
	}
	return true
}

func (p *GRPCProvider) startWatchLocked(userID string) {
	p.stopWatchLocked()
	ctx, cancel := context.WithCancel(p.ctx)
	p.watchCancel = cancel
	go p.watch(ctx, userID)
}

func (p *GRPCProvider) stopWatchLocked() {
	if p.watchCancel != nil {
		p.watchCancel()
		p.watchCancel = nil
	}
}

// watch follows the server's event stream for userID and drops the local
// session when the user signs out elsewhere.
func (p *GRPCProvider) watch(ctx context.Context, userID string) {
	sameUser := func(s *Session) bool { return s.User.ID == userID }

	for {
		token := p.accessToken()
		if token == "" {
			return
		}

		err := p.consume(ctx, userID)
		if ctx.Err() != nil {
			return
		}

		switch {
		case err == nil:
			return
		case isTokenExpired(err):
			if _, rerr := p.refresh(ctx, token); rerr != nil {
				return
			}
		case isUnauthenticated(err):
			p.dropSession(ctx, sameUser)
			return
		default:
			p.logger.Debug(ctx, "session watch ended", "error", err)
			return
		}
	}
}

func (p *GRPCProvider) consume(ctx context.Context, userID string) error {
	stream, err := p.client.WatchSession(ctx, identitypb.MustEncode(identitypb.Empty{}))
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var ev identitypb.Event
		if err := identitypb.Decode(msg, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if ev.Type == identitypb.EventSignedOut {
			p.logger.Info(ctx, "signed out elsewhere", "user_id", userID)
			p.dropSession(ctx, func(s *Session) bool { return s.User.ID == userID })
			return nil
		}
	}
}
