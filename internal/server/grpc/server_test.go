package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/config"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/equiplookup/internal/server/services"
	"github.com/dmitrijs2005/equiplookup/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	client        identitypb.IdentityClient
	adminEmail    string
	adminPassword string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: time.Hour,
		AdminEmail:                   "admin@example.com",
	}
	svc := services.NewIdentityService(
		repomanager.NewInMemoryRepositoryManager(),
		sessions.NewMemoryStore(),
		sessions.NewMemoryBroker(),
		cfg,
		logging.Discard(),
	)
	password, created, err := svc.EnsureAdmin(context.Background())
	require.NoError(t, err)
	require.True(t, created)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewGRPCServer("bufconn", logging.Discard(), svc)
	done := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx, lis)
		close(done)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	return &harness{
		client:        identitypb.NewIdentityClient(conn),
		adminEmail:    cfg.AdminEmail,
		adminPassword: password,
	}
}

func (h *harness) signIn(t *testing.T, email, password string) identitypb.Session {
	t.Helper()
	out, err := h.client.SignIn(context.Background(), identitypb.MustEncode(identitypb.Credentials{Email: email, Password: password}))
	require.NoError(t, err)
	var s identitypb.Session
	require.NoError(t, identitypb.Decode(out, &s))
	return s
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func TestSignIn_AndGetUser(t *testing.T) {
	h := newHarness(t)

	s := h.signIn(t, h.adminEmail, h.adminPassword)
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Equal(t, h.adminEmail, s.User.Email)

	out, err := h.client.GetUser(withToken(s.AccessToken), identitypb.MustEncode(identitypb.Empty{}))
	require.NoError(t, err)
	var u identitypb.User
	require.NoError(t, identitypb.Decode(out, &u))
	assert.Equal(t, s.User.ID, u.ID)
}

func TestSignIn_WrongPassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.SignIn(context.Background(), identitypb.MustEncode(identitypb.Credentials{Email: h.adminEmail, Password: "nope-nope"}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestProtectedMethods_RequireToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client.GetUser(context.Background(), identitypb.MustEncode(identitypb.Empty{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client.GetProfile(withToken("garbage"), identitypb.MustEncode(identitypb.ProfileRequest{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestCreateUser_AndProfileAccess(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn(t, h.adminEmail, h.adminPassword)

	out, err := h.client.CreateUser(withToken(admin.AccessToken), identitypb.MustEncode(identitypb.CreateUserRequest{
		Email: "tech@example.com", Password: "field-pass", Username: "Tech", Role: "user",
	}))
	require.NoError(t, err)
	var created identitypb.User
	require.NoError(t, identitypb.Decode(out, &created))

	_, err = h.client.CreateUser(withToken(admin.AccessToken), identitypb.MustEncode(identitypb.CreateUserRequest{
		Email: "tech@example.com", Password: "field-pass", Role: "user",
	}))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	tech := h.signIn(t, "tech@example.com", "field-pass")

	out, err = h.client.GetProfile(withToken(tech.AccessToken), identitypb.MustEncode(identitypb.ProfileRequest{ID: tech.User.ID}))
	require.NoError(t, err)
	var p identitypb.Profile
	require.NoError(t, identitypb.Decode(out, &p))
	assert.Equal(t, "user", p.Role)
	assert.Equal(t, "Tech", p.Username)

	// users cannot read other profiles or create users
	_, err = h.client.GetProfile(withToken(tech.AccessToken), identitypb.MustEncode(identitypb.ProfileRequest{ID: admin.User.ID}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = h.client.CreateUser(withToken(tech.AccessToken), identitypb.MustEncode(identitypb.CreateUserRequest{
		Email: "x@example.com", Password: "field-pass", Role: "user",
	}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// admins can read any profile
	out, err = h.client.GetProfile(withToken(admin.AccessToken), identitypb.MustEncode(identitypb.ProfileRequest{ID: created.ID}))
	require.NoError(t, err)
	require.NoError(t, identitypb.Decode(out, &p))
	assert.Equal(t, created.ID, p.ID)
}

func TestCreateUser_Validation(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn(t, h.adminEmail, h.adminPassword)

	_, err := h.client.CreateUser(withToken(admin.AccessToken), identitypb.MustEncode(identitypb.CreateUserRequest{
		Email: "not-an-email", Password: "field-pass", Role: "user",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRefresh(t *testing.T) {
	h := newHarness(t)
	s := h.signIn(t, h.adminEmail, h.adminPassword)

	out, err := h.client.Refresh(context.Background(), identitypb.MustEncode(identitypb.RefreshRequest{RefreshToken: s.RefreshToken}))
	require.NoError(t, err)
	var next identitypb.Session
	require.NoError(t, identitypb.Decode(out, &next))
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)

	// the old refresh token is single use
	_, err = h.client.Refresh(context.Background(), identitypb.MustEncode(identitypb.RefreshRequest{RefreshToken: s.RefreshToken}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestSignOut_RevokesAndNotifiesWatchers(t *testing.T) {
	h := newHarness(t)
	first := h.signIn(t, h.adminEmail, h.adminPassword)
	second := h.signIn(t, h.adminEmail, h.adminPassword)

	ctx, cancel := context.WithTimeout(withToken(second.AccessToken), 5*time.Second)
	defer cancel()
	stream, err := h.client.WatchSession(ctx, identitypb.MustEncode(identitypb.Empty{}))
	require.NoError(t, err)

	// wait until the watch is registered
	_, _ = h.client.GetUser(withToken(second.AccessToken), identitypb.MustEncode(identitypb.Empty{}))
	time.Sleep(50 * time.Millisecond)

	_, err = h.client.SignOut(withToken(first.AccessToken), identitypb.MustEncode(identitypb.Empty{}))
	require.NoError(t, err)

	msg, err := stream.Recv()
	require.NoError(t, err)
	var ev identitypb.Event
	require.NoError(t, identitypb.Decode(msg, &ev))
	assert.Equal(t, identitypb.EventSignedOut, ev.Type)

	// every session of the user is gone
	_, err = h.client.GetUser(withToken(second.AccessToken), identitypb.MustEncode(identitypb.Empty{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	_, err = h.client.Refresh(context.Background(), identitypb.MustEncode(identitypb.RefreshRequest{RefreshToken: second.RefreshToken}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	s := NewGRPCServer("bad::addr", logging.Discard(), nil)
	err := s.Run(context.Background())
	assert.Error(t, err)
}
