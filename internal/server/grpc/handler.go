package grpc

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/identitypb"
	"github.com/dmitrijs2005/equiplookup/internal/server/services"
	"github.com/dmitrijs2005/equiplookup/internal/server/sessions"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func decode(in *structpb.Struct, v any) error {
	if err := identitypb.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	out, err := identitypb.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func sessionMessage(s *services.Session) identitypb.Session {
	return identitypb.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UTC(),
		User:         identitypb.User{ID: s.User.ID, Email: s.User.Email},
	}
}

func (s *GRPCServer) SignIn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req identitypb.Credentials
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	session, err := s.identity.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Info(ctx, "sign-in rejected", "email", req.Email)
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "signed in", "user_id", session.User.ID)
	return encode(sessionMessage(session))
}

func (s *GRPCServer) Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req identitypb.RefreshRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	session, err := s.identity.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(sessionMessage(session))
}

func (s *GRPCServer) SignOut(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	if err := s.identity.SignOut(ctx, claims); err != nil {
		s.logger.Error(ctx, "sign-out failed", "error", err)
		return nil, toStatus(err)
	}
	return encode(identitypb.Empty{})
}

func (s *GRPCServer) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	user, err := s.identity.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(identitypb.User{ID: user.ID, Email: user.Email})
}

// GetProfile returns role and display name of a user. Non-admins may only
// read their own profile.
func (s *GRPCServer) GetProfile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	var req identitypb.ProfileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = claims.UserID
	}

	if req.ID != claims.UserID {
		caller, err := s.identity.GetUser(ctx, claims.UserID)
		if err != nil {
			return nil, toStatus(err)
		}
		if !caller.IsAdmin() {
			return nil, status.Error(codes.PermissionDenied, "forbidden")
		}
	}

	user, err := s.identity.GetUser(ctx, req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(identitypb.Profile{ID: user.ID, Role: user.Role, Username: user.Username})
}

func (s *GRPCServer) CreateUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	var req identitypb.CreateUserRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}

	user, err := s.identity.CreateUser(ctx, claims.UserID, services.NewUser{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     req.Role,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "by", claims.UserID)
	return encode(identitypb.User{ID: user.ID, Email: user.Email})
}

// WatchSession streams auth events of the caller's user until the user
// signs out, the client goes away or the server stops.
func (s *GRPCServer) WatchSession(in *structpb.Struct, stream identitypb.Identity_WatchSessionServer) error {
	ctx := stream.Context()
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}

	events, cancel, err := s.identity.Watch(ctx, claims.UserID)
	if err != nil {
		s.logger.Error(ctx, "watch failed", "error", err)
		return status.Error(codes.Unavailable, "events unavailable")
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg, err := encode(identitypb.Event{Type: ev.Type, SessionID: ev.SessionID})
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
			if ev.Type == sessions.EventSignedOut {
				return nil
			}
		}
	}
}
