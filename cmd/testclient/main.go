package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "call-compliance-analyzer/internal/api/grpc"
	"call-compliance-analyzer/internal/models"
)

func main() {
	conn, err := grpc.NewClient("localhost:50051", grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("Connected to server")

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transcript := models.Transcript{
		{Speaker: "Agent", Text: "Thanks for calling, can I get your date of birth?", Start: 0, End: 3},
		{Speaker: "Customer", Text: "Sure, it's March 3rd 1980", Start: 3.5, End: 6},
		{Speaker: "Agent", Text: "Thanks. Your current balance is $420", Start: 6, End: 9},
		{Speaker: "Customer", Text: "What the hell, that's too much", Start: 8.5, End: 11},
	}

	log.Printf("Sending transcript: callId=test-call-1 utterances=%d", len(transcript))

	report, err := client.AnalyzeTranscript(ctx, "test-call-1", transcript)
	if err != nil {
		log.Fatalf("failed to analyze: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("Received report:\n%s", out)
}
