// Package grpcapi exposes transcript analysis over gRPC.
package grpcapi

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/logging"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/service/session"
	"call-compliance-analyzer/internal/transcript"
)

// Publisher receives reports and live violation alerts.
type Publisher interface {
	PublishReport(ctx context.Context, report *models.Report) error
	PublishViolation(ctx context.Context, callId string, res models.DetectionResult) error
}

// Server implements TranscriptAnalysisServer.
type Server struct {
	analyzer     *analysis.Analyzer
	publisher    Publisher
	limits       session.Limits
	defaultKinds []analysis.Kind
}

// NewServer creates the gRPC service. A nil publisher disables publishing.
// defaultKinds apply when a request names no analyses; empty means all.
func NewServer(analyzer *analysis.Analyzer, publisher Publisher, limits session.Limits, defaultKinds []analysis.Kind) *Server {
	if len(defaultKinds) == 0 {
		defaultKinds = analysis.AllKinds()
	}
	return &Server{
		analyzer:     analyzer,
		publisher:    publisher,
		limits:       limits,
		defaultKinds: defaultKinds,
	}
}

// Register registers the service on g.
func Register(g *grpc.Server, s *Server) {
	g.RegisterService(&ServiceDesc, s)
}

func (s *Server) kinds(names []string) ([]analysis.Kind, error) {
	if len(names) == 0 {
		return s.defaultKinds, nil
	}
	kinds, err := analysis.ParseKinds(names)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return kinds, nil
}

func (s *Server) approach(name string) (analysis.Approach, error) {
	approach, err := analysis.ParseApproach(name)
	if err == nil {
		approach, err = s.analyzer.ResolveApproach(approach)
	}
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return approach, nil
}

// analyzeStatus maps a failed analysis to a status. Anything other than a
// context error came from the classifier.
func analyzeStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Errorf(codes.Unavailable, "%v", err)
}

// Analyze analyzes a complete transcript.
func (s *Server) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var env models.TranscriptEnvelope
	if err := decodeStruct(req, &env); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if env.Transcript == nil {
		return nil, status.Error(codes.InvalidArgument, "transcript is required")
	}
	kinds, err := s.kinds(env.Analyses)
	if err != nil {
		return nil, err
	}
	approach, err := s.approach(env.Approach)
	if err != nil {
		return nil, err
	}

	callId := env.CallID
	if callId == "" {
		if callId, err = transcript.CallID(env.Transcript); err != nil {
			return nil, status.Errorf(codes.Internal, "derive call id: %v", err)
		}
	}

	report, err := s.analyzer.Analyze(ctx, callId, env.Transcript, approach, kinds...)
	if err != nil {
		return nil, analyzeStatus(err)
	}
	s.publishReport(ctx, report)
	return toStruct(report)
}

// StreamTranscript analyzes a call whose utterances arrive one message at a time.
func (s *Server) StreamTranscript(stream TranscriptStreamServer) error {
	ctx := stream.Context()
	var sess *session.Session

	for {
		req, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if sess != nil {
				sess.Drop(session.ReasonClientError)
			}
			return err
		}

		var msg streamMessage
		if err := decodeStruct(req, &msg); err != nil {
			if sess != nil {
				sess.Drop(session.ReasonClientError)
			}
			return status.Errorf(codes.InvalidArgument, "invalid message: %v", err)
		}

		if sess == nil {
			kinds, err := s.kinds(msg.Analyses)
			if err != nil {
				return err
			}
			approach, err := s.approach(msg.Approach)
			if err != nil {
				return err
			}
			callId := msg.CallID
			if callId == "" {
				callId = "call-" + uuid.NewString()
			}
			if sess, err = session.New(callId, s.analyzer, s.publisher, s.limits, approach, kinds...); err != nil {
				return status.Errorf(codes.InvalidArgument, "%v", err)
			}
		}

		if msg.Utterance == nil {
			continue
		}
		if err := sess.Add(ctx, *msg.Utterance); err != nil {
			switch {
			case errors.Is(err, session.ErrLimitExceeded):
				return status.Errorf(codes.ResourceExhausted, "%v", err)
			case errors.Is(err, session.ErrSessionClosed):
				return status.Errorf(codes.FailedPrecondition, "%v", err)
			default:
				return analyzeStatus(err)
			}
		}
	}

	if sess == nil {
		return status.Error(codes.InvalidArgument, "empty stream")
	}

	report, err := sess.Close(ctx)
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			return status.Errorf(codes.FailedPrecondition, "%v", err)
		}
		return analyzeStatus(err)
	}
	s.publishReport(ctx, report)

	out, err := toStruct(report)
	if err != nil {
		return err
	}
	return stream.SendAndClose(out)
}

func (s *Server) publishReport(ctx context.Context, report *models.Report) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReport(ctx, report); err != nil {
		logger := logging.WithAnalysis(report.CallID, report.AnalysisID)
		logger.Error().Err(err).Msg("Failed to publish report")
	}
}

func toStruct(report *models.Report) (*structpb.Struct, error) {
	st, err := encodeStruct(report)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return st, nil
}
