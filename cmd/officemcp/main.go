package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sameehj/officemcp/internal/app"
	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/config"
	"github.com/sameehj/officemcp/pkg/mcp"
	"github.com/sameehj/officemcp/pkg/runtime/logging"
	"github.com/sameehj/officemcp/pkg/version"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "officemcp",
		Short:         "Office integration tool gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.officemcp/config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(stdioCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(httpCmd())
	root.AddCommand(toolsCmd())
	root.AddCommand(versionCmd())
	return root
}

// configPath prefers the flag and falls back to the default file when present.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	path := config.DefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// buildApp loads configuration and wires the backends. Logs go to w.
func buildApp(ctx context.Context, w io.Writer) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewWriter(w, cfg.LogLevel, cfg.LogFormat)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, _, err := buildApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()
			return ignoreCanceled(a.MCPServer().ServeStdio(ctx))
		},
	}
}

func gatewayCmd() *cobra.Command {
	var tcpAddr, wsAddr string
	var maxSessions int

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Serve MCP sessions over TCP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, logger, err := buildApp(ctx, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if tcpAddr != "" {
				a.Config.Gateway.TCPAddr = tcpAddr
			}
			if wsAddr != "" {
				a.Config.Gateway.WSAddr = wsAddr
			}
			if maxSessions > 0 {
				a.Config.Gateway.MaxSessions = maxSessions
			}
			gw := a.Gateway()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return gw.Start(ctx) })
			if a.Config.Gateway.WSAddr != "" {
				g.Go(func() error { return gw.StartWebSocket(ctx, a.Config.Gateway.WSAddr) })
			}
			logger.Info("gateway_started", "tcp", gw.Addr(), "ws", a.Config.Gateway.WSAddr)
			return ignoreCanceled(g.Wait())
		},
	}
	cmd.Flags().StringVar(&tcpAddr, "addr", "", "TCP listen address")
	cmd.Flags().StringVar(&wsAddr, "ws-addr", "", "WebSocket listen address")
	cmd.Flags().IntVar(&maxSessions, "max-sessions", 0, "maximum concurrent sessions (0 = configured value)")
	return cmd
}

func httpCmd() *cobra.Command {
	var addr, mcpAddr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the HTTP tool API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			gin.SetMode(gin.ReleaseMode)
			a, _, err := buildApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.Config.HTTP.Addr
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return a.HTTPServer().Start(ctx, addr) })
			if mcpAddr != "" {
				g.Go(func() error { return mcp.ServeHTTP(ctx, a.MCPServer(), mcpAddr) })
			}
			return ignoreCanceled(g.Wait())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&mcpAddr, "mcp-addr", "", "also serve MCP over HTTP on this address")
	return cmd
}

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "tools", Short: "Inspect and call tools"}
	cmd.AddCommand(toolsListCmd())
	cmd.AddCommand(toolsShowCmd())
	cmd.AddCommand(toolsCallCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tool catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools := catalog.Default().List()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), tools)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range tools {
				fmt.Fprintf(tw, "%s\t%s\n", t.Name, firstLine(t.Description))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print descriptors as JSON")
	return cmd
}

func toolsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a tool descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := catalog.Default().Get(args[0])
			if !ok {
				return fmt.Errorf("tool not found: %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), d)
		},
	}
}

func toolsCallCmd() *cobra.Command {
	var rawArgs string
	cmd := &cobra.Command{
		Use:   "call NAME",
		Short: "Call a tool and print its envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseArgs(rawArgs)
			if err != nil {
				return err
			}
			a, _, err := buildApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			env := a.Dispatcher.Dispatch(cmd.Context(), args[0], toolArgs)
			if err := writeJSON(cmd.OutOrStdout(), env); err != nil {
				return err
			}
			if env.IsError() {
				return fmt.Errorf("%s failed: %s", args[0], env.Kind())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "tool arguments as a JSON object")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "officemcp "+version.String())
		},
	}
}

func parseArgs(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("--args: %w", err)
	}
	if out == nil {
		return nil, errors.New("--args must be a JSON object")
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
