package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/sameehj/officemcp/internal/app"
	"github.com/sameehj/officemcp/pkg/config"
	"github.com/sameehj/officemcp/pkg/runtime/logging"
)

var (
	cfgFile string
	addr    string
)

func main() {
	pflag.StringVar(&cfgFile, "config", "", "config file (default: none)")
	pflag.StringVar(&addr, "addr", "", "listen address (default: http.addr from config)")
	pflag.Parse()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gin.SetMode(gin.ReleaseMode)
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.HTTPServer().Start(ctx, addr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.Close()
		os.Exit(1)
	}
}
