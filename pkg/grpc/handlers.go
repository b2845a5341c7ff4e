package grpc

import (
	"context"
	"errors"

	z "github.com/Oudwins/zog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

var envelopeValidator = z.String().Min(1).Required()

func (s *IOTServer) PostReadings(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	encrypted := req.GetValue()
	if issues := envelopeValidator.Validate(&encrypted); len(issues) > 0 {
		return nil, status.Error(codes.InvalidArgument, "missing encrypted envelope")
	}

	ack, err := s.Iot.HandleEnvelope(ctx, encrypted)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(ack), nil
}

func toStatus(err error) error {
	var verr *payload.ValidationError
	switch {
	case errors.Is(err, channel.ErrTransport), errors.Is(err, channel.ErrAuthentication):
		return status.Error(codes.InvalidArgument, "could not decrypt payload")
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, iot.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	case errors.Is(err, iot.ErrConflict), errors.Is(err, iot.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.Error(codes.Unavailable, "temporarily unavailable, retry later")
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
