package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/systmms/awsops/internal/awsauth"
	"github.com/systmms/awsops/internal/config"
	"github.com/systmms/awsops/internal/logging"
	"github.com/systmms/awsops/internal/secrets"
	"github.com/systmms/awsops/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		httpMode bool
		port     int
		noColor  bool
		debug    bool
	)

	rootCmd := &cobra.Command{
		Use:   "awsops",
		Short: "AWS Operations MCP server - multi-account Secrets Manager access",
		Long: `awsops exposes AWS Secrets Manager operations over the Model Context
Protocol, with cross-account access via assumed roles or local profiles.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env for local development; absence is not an error.
			godotenv.Load()

			logger := logging.New(debug, noColor)
			return serve(cmd.Context(), logger, httpMode, port)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&httpMode, "http", false, "Serve over HTTP instead of stdio")
	rootCmd.PersistentFlags().IntVar(&port, "port", 8000, "HTTP listen port")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func serve(ctx context.Context, logger *logging.Logger, httpMode bool, port int) error {
	region := config.Region()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	resolver := awsauth.NewResolver(sts.NewFromConfig(awsCfg), logger)
	sessions := awsauth.NewSessionRegistry()
	cache := awsauth.NewClientCache(resolver, sessions, awsauth.DefaultClientFactory, region, logger)
	svc := secrets.NewService(cache, logger, region)

	srv := server.New(svc, logger, server.Options{
		Version:   version,
		AuthToken: config.AuthToken(),
	})

	if httpMode {
		awsauth.InitMetrics()
		return srv.ServeHTTP(ctx, fmt.Sprintf("0.0.0.0:%d", port))
	}
	return srv.ServeStdio()
}
