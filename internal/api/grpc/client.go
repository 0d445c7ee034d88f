package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"call-compliance-analyzer/internal/models"
)

// Client calls TranscriptAnalysisService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Analyze sends a raw request document.
func (c *Client) Analyze(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// AnalyzeTranscript analyzes t with the server's default approach and decodes the report.
func (c *Client) AnalyzeTranscript(ctx context.Context, callId string, t models.Transcript, analyses ...string) (*models.Report, error) {
	return c.AnalyzeEnvelope(ctx, models.TranscriptEnvelope{CallID: callId, Analyses: analyses, Transcript: t})
}

// AnalyzeEnvelope sends env as is and decodes the report.
func (c *Client) AnalyzeEnvelope(ctx context.Context, env models.TranscriptEnvelope) (*models.Report, error) {
	if env.Transcript == nil {
		env.Transcript = models.Transcript{}
	}
	req, err := encodeStruct(env)
	if err != nil {
		return nil, err
	}
	resp, err := c.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeReport(resp)
}

// StreamTranscript opens a client stream.
func (c *Client) StreamTranscript(ctx context.Context, opts ...grpc.CallOption) (*TranscriptStream, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], streamTranscriptMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &TranscriptStream{ClientStream: stream}, nil
}

// TranscriptStream is the client side of StreamTranscript.
type TranscriptStream struct {
	grpc.ClientStream
	started bool
}

// Send sends a raw message.
func (s *TranscriptStream) Send(m *structpb.Struct) error {
	return s.ClientStream.SendMsg(m)
}

// Start sends the header message naming the call and analyses. Optional;
// without it the server picks a call ID and its default analyses.
func (s *TranscriptStream) Start(callId string, analyses ...string) error {
	return s.StartWithApproach(callId, "", analyses...)
}

// StartWithApproach is Start with an explicit approach. An empty approach
// uses the server's default.
func (s *TranscriptStream) StartWithApproach(callId, approach string, analyses ...string) error {
	if s.started {
		return fmt.Errorf("stream already started")
	}
	m, err := encodeStruct(streamMessage{CallID: callId, Analyses: analyses, Approach: approach})
	if err != nil {
		return err
	}
	s.started = true
	return s.Send(m)
}

// SendUtterance sends one utterance.
func (s *TranscriptStream) SendUtterance(u models.Utterance) error {
	m, err := encodeStruct(streamMessage{Utterance: &u})
	if err != nil {
		return err
	}
	s.started = true
	return s.Send(m)
}

// CloseAndRecv closes the send side and waits for the raw report.
func (s *TranscriptStream) CloseAndRecv() (*structpb.Struct, error) {
	if err := s.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(structpb.Struct)
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CloseAndRecvReport closes the send side and decodes the report.
func (s *TranscriptStream) CloseAndRecvReport() (*models.Report, error) {
	resp, err := s.CloseAndRecv()
	if err != nil {
		return nil, err
	}
	return decodeReport(resp)
}

func decodeReport(st *structpb.Struct) (*models.Report, error) {
	var report models.Report
	if err := decodeStruct(st, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
