package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	"github.com/dmitrijs2005/equiplookup/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// protectedMethods require a valid access token.
var protectedMethods = map[string]struct{}{
	identitypb.MethodSignOut:      {},
	identitypb.MethodGetUser:      {},
	identitypb.MethodGetProfile:   {},
	identitypb.MethodCreateUser:   {},
	identitypb.MethodWatchSession: {},
}

func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

func accessTokenFromContext(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// authenticate attaches the caller's claims to ctx for protected methods.
func (s *GRPCServer) authenticate(ctx context.Context, method string) (context.Context, error) {
	if _, ok := protectedMethods[method]; !ok {
		return ctx, nil
	}

	accessToken := accessTokenFromContext(ctx)
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims, err := s.identity.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, toStatus(err)
	}

	ctx = logging.ContextWith(ctx, "user_id", claims.UserID, "session_id", claims.SessionID)
	return context.WithValue(ctx, claimsKey, claims), nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	ctx, err := s.authenticate(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authedStream) Context() context.Context { return a.ctx }

func (s *GRPCServer) accessTokenStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authenticate(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &authedStream{ServerStream: ss, ctx: ctx})
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	return resp, err
}
