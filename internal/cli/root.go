// Package cli implements the analyzer command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"call-compliance-analyzer/internal/observability/logging"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand builds the analyzer command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "analyzer",
		Short: "Analyze call transcripts for compliance and quality",
		Long: `Analyzer checks call-center transcripts for profanity, sensitive disclosures
made before the customer was verified, and silence / overtalk metrics.

Run it once against transcript files, or as a service exposing gRPC, HTTP
and a Kafka consumer.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitWithWriter(logging.Config{
				Level:  opts.logLevel,
				Format: opts.logFormat,
			}, os.Stderr)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "log format: json, console")

	cmd.AddCommand(newAnalyzeCommand())
	cmd.AddCommand(newServeCommand())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
