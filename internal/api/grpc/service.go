package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "callcompliance.v1.TranscriptAnalysisService"

const (
	analyzeMethod          = "/" + ServiceName + "/Analyze"
	streamTranscriptMethod = "/" + ServiceName + "/StreamTranscript"
)

// TranscriptAnalysisServer is the server API. Messages are google.protobuf.Struct
// documents holding the same JSON shapes the HTTP API accepts and returns.
type TranscriptAnalysisServer interface {
	// Analyze takes {call_id?, analyses?, transcript} and returns a report.
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// StreamTranscript takes a stream of {call_id?, analyses?, utterance?} and
	// returns the report once the client closes the stream.
	StreamTranscript(TranscriptStreamServer) error
}

// TranscriptStreamServer is the server side of StreamTranscript.
type TranscriptStreamServer interface {
	SendAndClose(*structpb.Struct) error
	Recv() (*structpb.Struct, error)
	grpc.ServerStream
}

type transcriptStreamServer struct {
	grpc.ServerStream
}

func (s *transcriptStreamServer) SendAndClose(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

func (s *transcriptStreamServer) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func analyzeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranscriptAnalysisServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: analyzeMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TranscriptAnalysisServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func streamTranscriptHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TranscriptAnalysisServer).StreamTranscript(&transcriptStreamServer{stream})
}

// ServiceDesc describes TranscriptAnalysisService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    analyzeHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamTranscript",
			Handler:       streamTranscriptHandler,
			ClientStreams: true,
		},
	},
	Metadata: "callcompliance/v1/analysis.proto",
}
