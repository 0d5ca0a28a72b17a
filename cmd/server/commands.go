package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	handlers "github.com/GriffinCanCode/inappgate/internal/api/http"
	"github.com/GriffinCanCode/inappgate/internal/domain/detect"
	gategrpc "github.com/GriffinCanCode/inappgate/internal/grpc"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/config"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/server"
	"github.com/GriffinCanCode/inappgate/internal/infrastructure/tracing"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "inappgate",
		Short:        "Route in-app browser visitors to the system browser",
		SilenceUsage: true,
		Version:      handlers.Version,
	}

	serve := newServeCommand()
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newClassifyCommand(),
		newResolveCommand(),
		newHealthcheckCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	var (
		port string
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gate (and the gRPC health endpoint when enabled)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Flags override environment
			if port != "" {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if dev {
				cfg.Logging.Development = true
				cfg.Logging.Level = "debug"
			}

			logger, err := logging.New(logging.Config{
				Level:       cfg.Logging.Level,
				Development: cfg.Logging.Development,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			srv, err := server.NewServer(cfg, logger)
			if err != nil {
				logger.Error("Failed to create server", zap.Error(err))
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP port (overrides PORT)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP host (overrides HOST)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development logging (colored, debug level)")
	return cmd
}

func printResult(w io.Writer, asJSON bool, v any, human string) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, human)
		return err
	}
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newClassifyCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <user-agent>",
		Short: "Report whether a User-Agent belongs to an embedded browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			classifier, err := server.NewClassifier(cfg.Gate)
			if err != nil {
				return err
			}

			ua := args[0]
			match, embedded := classifier.Detect(ua)
			resp := handlers.ClassifyResponse{
				Embedded: embedded,
				App:      match.App,
				Platform: string(detect.PlatformOf(ua)),
			}

			human := "not embedded"
			if embedded {
				human = "embedded: " + match.App
			}
			return printResult(cmd.OutOrStdout(), asJSON, resp, human)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newResolveCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Check a redirect target against the allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			components, err := server.BuildComponents(cfg.Gate)
			if err != nil {
				return err
			}

			d := components.AllowList.Resolve(args[0])
			resp := handlers.ResolveResponse{
				Allowed: d.Allowed(),
				Target:  d.Target,
				Host:    d.Host,
				Reason:  string(d.Reason),
			}

			human := "allowed: " + d.Target
			if !d.Allowed() {
				human = "rejected: " + string(d.Reason)
			}
			return printResult(cmd.OutOrStdout(), asJSON, resp, human)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newHealthcheckCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check a running gate's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tracer := tracing.New("inappgate-healthcheck", logging.NewNop().Logger)
			defer tracer.Close()

			client, err := gategrpc.NewHealthClient(addr, tracer)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, err := client.Check(ctx, gategrpc.ServiceName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status.String())
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("gate is %s", status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address of the gate")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Health check timeout")
	return cmd
}
