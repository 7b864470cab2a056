package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/querygate/querygate/internal/gateway"
	"github.com/querygate/querygate/pkg/backend"
	"github.com/querygate/querygate/pkg/config"
	"github.com/querygate/querygate/pkg/logger"
	"github.com/querygate/querygate/pkg/observability"
	"github.com/querygate/querygate/pkg/security"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "querygate",
		Short: "QueryGate - secure read-only database gateway",
		Long: `QueryGate sits between callers and a database, validating every query
against a security policy, pooling backend connections, and masking
sensitive fields in results before they leave the gateway.`,
	}

	root.AddCommand(versionCmd(), backendsCmd(), validateCmd(), queryCmd(),
		tablesCmd(), describeCmd(), sampleCmd(), countCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("QueryGate v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List supported database engines",
		Run: func(cmd *cobra.Command, args []string) {
			names := backend.Supported()
			sort.Strings(names)
			fmt.Println("Supported backends:")
			for _, name := range names {
				fmt.Printf("  - %s\n", name)
			}
		},
	}
}

func validateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate <query>",
		Short: "Run a query through the security gate without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := security.DefaultPolicy()
			if configFile != "" {
				cfg, err := config.LoadFile(configFile)
				if err != nil {
					return err
				}
				policy = cfg.Security.Policy()
			}

			verdict := security.NewGate(policy).Validate(args[0])
			if verdict.Allowed {
				fmt.Println("allowed")
				return nil
			}
			fmt.Printf("rejected: %s (%s)\n", verdict.Message, verdict.Reason)
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to gateway YAML configuration (default policy when omitted)")
	return cmd
}

func queryCmd() *cobra.Command {
	var configFile, user string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute a query through the gateway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(configFile, user, timeout, func(ctx context.Context, g *gateway.Gateway) error {
				result, err := g.Execute(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	addGatewayFlags(cmd, &configFile, &user, &timeout)
	return cmd
}

func tablesCmd() *cobra.Command {
	var configFile, user, schema string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables visible through the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(configFile, user, timeout, func(ctx context.Context, g *gateway.Gateway) error {
				tables, err := g.ListTables(ctx, schema)
				if err != nil {
					return err
				}
				return printJSON(tables)
			})
		},
	}

	addGatewayFlags(cmd, &configFile, &user, &timeout)
	cmd.Flags().StringVar(&schema, "schema", "", "Schema to list (backend default when omitted)")
	return cmd
}

func describeCmd() *cobra.Command {
	var configFile, user, schema string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show column metadata for a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(configFile, user, timeout, func(ctx context.Context, g *gateway.Gateway) error {
				columns, err := g.DescribeTable(ctx, args[0], schema)
				if err != nil {
					return err
				}
				return printJSON(columns)
			})
		},
	}

	addGatewayFlags(cmd, &configFile, &user, &timeout)
	cmd.Flags().StringVar(&schema, "schema", "", "Schema of the table (backend default when omitted)")
	return cmd
}

func sampleCmd() *cobra.Command {
	var configFile, user, schema string
	var timeout time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "sample <table>",
		Short: "Fetch sample rows from a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(configFile, user, timeout, func(ctx context.Context, g *gateway.Gateway) error {
				result, err := g.SampleRows(ctx, args[0], schema, limit)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	addGatewayFlags(cmd, &configFile, &user, &timeout)
	cmd.Flags().StringVar(&schema, "schema", "", "Schema of the table (backend default when omitted)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of rows to fetch")
	return cmd
}

func countCmd() *cobra.Command {
	var configFile, user, schema string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGateway(configFile, user, timeout, func(ctx context.Context, g *gateway.Gateway) error {
				count, err := g.CountRows(ctx, args[0], schema, nil)
				if err != nil {
					return err
				}
				fmt.Println(count)
				return nil
			})
		},
	}

	addGatewayFlags(cmd, &configFile, &user, &timeout)
	cmd.Flags().StringVar(&schema, "schema", "", "Schema of the table (backend default when omitted)")
	return cmd
}

func addGatewayFlags(cmd *cobra.Command, configFile, user *string, timeout *time.Duration) {
	cmd.Flags().StringVarP(configFile, "config", "c", "", "Path to gateway YAML configuration (required)")
	cmd.Flags().StringVar(user, "user", "", "Requesting user recorded in audit records")
	cmd.Flags().DurationVar(timeout, "timeout", 30*time.Second, "Overall command timeout")
	_ = cmd.MarkFlagRequired("config")
}

// withGateway loads configuration, starts the gateway, runs fn, and tears
// everything down in order.
func withGateway(configFile, user string, timeout time.Duration, fn func(context.Context, *gateway.Gateway) error) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Server.LogLevel,
		Encoding: "json",
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if user != "" {
		ctx = context.WithValue(ctx, logger.UserKey, user)
	}

	if cfg.Observability.EnableTracing {
		if err := observability.InitTracing(observability.DefaultTracingConfig()); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := observability.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", zap.Error(err))
			}
		}()
	}

	if cfg.Observability.EnableMetrics && cfg.Observability.MetricsAddr != "" {
		// Serves scrapes for the lifetime of the command.
		go serveMetrics(cfg.Observability.MetricsAddr)
	}

	g, err := gateway.New(cfg)
	if err != nil {
		return err
	}
	if err := g.Initialize(ctx); err != nil {
		return err
	}
	defer g.Shutdown()

	return fn(ctx, g)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

func printJSON(v interface{}) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
