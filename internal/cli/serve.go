package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"call-compliance-analyzer/internal/app"
	"call-compliance-analyzer/internal/config"
)

func newServeCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis service",
		Long: `Serve the gRPC and HTTP analysis APIs, the metrics and health endpoints,
and, when Kafka is enabled, the transcript consumer. Configuration comes from
the environment and an optional .env file. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithDotEnv(envFile)
			if err != nil {
				return err
			}
			application, err := app.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load; missing files are ignored")
	return cmd
}
