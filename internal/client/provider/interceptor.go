package provider

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token and, when the server
// reports it expired, refreshes once and retries the call.
func (p *GRPCProvider) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if method == identitypb.MethodSignIn || method == identitypb.MethodRefresh {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token := p.accessToken()
	err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) || token == "" {
		return err
	}

	sess, rerr := p.refresh(ctx, token)
	if rerr != nil {
		return err
	}

	// tokens refreshed, retrying with the new access token
	return invoker(withAccessToken(ctx, sess.AccessToken), method, req, reply, cc, opts...)
}

func (p *GRPCProvider) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, p.accessToken()), desc, cc, method, opts...)
}
