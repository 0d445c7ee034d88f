package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "call-compliance-analyzer/internal/api/grpc"
	"call-compliance-analyzer/internal/transcript"
)

func main() {
	file := flag.String("transcript", "internal/transcript/testdata/violation_call.json", "Path to a transcript JSON file")
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	callId := flag.String("call", "", "Call ID (default: file name)")
	analyses := flag.String("analyses", "", "Comma-separated analyses (default: server defaults)")
	approach := flag.String("approach", "", "Analysis approach: pattern or classifier (default: server default)")
	interval := flag.Duration("interval", 200*time.Millisecond, "Delay between utterances")
	flag.Parse()

	t, err := transcript.Load(*file)
	if err != nil {
		log.Fatalf("Failed to load transcript: %v", err)
	}
	if *callId == "" {
		*callId = transcript.CallIDFromPath(*file)
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverAddr)

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stream, err := client.StreamTranscript(ctx)
	if err != nil {
		log.Fatalf("Failed to create stream: %v", err)
	}

	var kinds []string
	if *analyses != "" {
		for _, k := range strings.Split(*analyses, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, k)
			}
		}
	}
	if err := stream.StartWithApproach(*callId, *approach, kinds...); err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}

	log.Printf("Streaming transcript: callId=%s utterances=%d", *callId, len(t))

	startTime := time.Now()
	for i, u := range t {
		if err := stream.SendUtterance(u); err != nil {
			log.Fatalf("Failed to send utterance %d: %v", i, err)
		}
		log.Printf("Sent utterance %d [%s]", i, u.Speaker)

		// Simulate a live call
		time.Sleep(*interval)
	}

	log.Printf("Finished streaming: %d utterances in %v", len(t), time.Since(startTime))
	log.Println("Closing stream, waiting for report...")

	report, err := stream.CloseAndRecvReport()
	if err != nil {
		log.Fatalf("Failed to receive report: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("Stream completed: callId=%s\n%s", report.CallID, out)
}
