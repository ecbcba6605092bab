package provider

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/equiplookup/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable  = errors.New("identity service unavailable")
	ErrNotSignedIn  = errors.New("not signed in")
	ErrUnauthorized = common.ErrorUnauthorized
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return common.ErrForbidden
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.AlreadyExists:
		return common.ErrAlreadyExists
	case codes.InvalidArgument:
		return &common.ValidationError{Message: st.Message()}
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func isUnauthenticated(err error) bool {
	return status.Code(err) == codes.Unauthenticated
}
