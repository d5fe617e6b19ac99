package gameserver

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// ErrorDomain is the ErrorInfo domain attached to ineligibility errors.
const ErrorDomain = "wayfarer"

// toStatus maps a domain error to a gRPC status error.
//
// Postcondition: Ineligibility maps to FailedPrecondition carrying an
// ErrorInfo whose Reason is the ineligibility reason.
func toStatus(err error) error {
	var inel *action.IneligibleError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &inel):
		st := status.New(codes.FailedPrecondition, inel.Error())
		if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason: string(inel.Reason),
			Domain: ErrorDomain,
		}); derr == nil {
			st = detailed
		}
		return st.Err()
	case errors.Is(err, action.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, character.ErrNameTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, world.ErrNoStartLocation):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, player.ErrInvalidAddress):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, action.ErrConcurrencyConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, action.ErrStorage):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func invalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// IneligibleReason extracts the ineligibility reason from a status error
// returned by ActionService.
func IneligibleReason(err error) (action.Reason, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.FailedPrecondition {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return action.Reason(info.GetReason()), true
		}
	}
	return "", false
}
