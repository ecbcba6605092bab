// Package grpc exposes the identity service over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/auth"
	"github.com/dmitrijs2005/equiplookup/internal/server/models"
	"github.com/dmitrijs2005/equiplookup/internal/server/services"
	"github.com/dmitrijs2005/equiplookup/internal/server/sessions"
	"google.golang.org/grpc"
)

// IdentityService is the business API the handlers call.
type IdentityService interface {
	SignIn(ctx context.Context, email, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
	SignOut(ctx context.Context, claims *auth.Claims) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	CreateUser(ctx context.Context, actorID string, in services.NewUser) (*models.User, error)
	Watch(ctx context.Context, userID string) (<-chan sessions.Event, func(), error)
}

type GRPCServer struct {
	address  string
	identity IdentityService
	logger   logging.Logger
}

var _ identitypb.IdentityServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, identity IdentityService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		identity: identity,
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	identitypb.RegisterIdentityServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
