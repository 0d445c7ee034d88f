package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"call-compliance-analyzer/internal/observability/metrics"
)

// CallIDHeader is the metadata key clients may set to tag RPC logs with a call.
const CallIDHeader = "x-call-id"

// UnaryServerInterceptor records RPC metrics and logs each unary call.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		finishRPC(ctx, m, info.FullMethod, start, err).Msg("gRPC unary call")
		return resp, err
	}
}

// StreamServerInterceptor records RPC metrics and logs each stream with the
// number of messages the client sent.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		cs := &countingStream{ServerStream: ss}
		err := handler(srv, cs)

		ctx := context.Background()
		if ss != nil {
			ctx = ss.Context()
		}
		finishRPC(ctx, m, info.FullMethod, start, err).
			Int("messages", cs.received).
			Msg("gRPC stream completed")
		return err
	}
}

// finishRPC records the call and returns a log event whose level follows the
// status code: client mistakes are warnings, server faults are errors.
func finishRPC(ctx context.Context, m *metrics.Metrics, method string, start time.Time, err error) *zerolog.Event {
	duration := time.Since(start)
	code := status.Code(err)
	m.RecordRPC(method, code.String(), duration.Seconds())

	var ev *zerolog.Event
	switch code {
	case codes.OK:
		ev = log.Info()
	case codes.InvalidArgument, codes.ResourceExhausted, codes.Canceled, codes.NotFound:
		ev = log.Warn().Err(err)
	default:
		ev = log.Error().Err(err)
	}
	ev = ev.Str("method", method).
		Str("code", code.String()).
		Dur("duration", duration)
	if callId := callIDFromMetadata(ctx); callId != "" {
		ev = ev.Str("callId", callId)
	}
	return ev
}

func callIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(CallIDHeader); len(v) > 0 {
		return v[0]
	}
	return ""
}

// countingStream counts messages received from the client.
type countingStream struct {
	grpc.ServerStream
	received int
}

func (s *countingStream) RecvMsg(m interface{}) error {
	err := s.ServerStream.RecvMsg(m)
	if err == nil {
		s.received++
	}
	return err
}
