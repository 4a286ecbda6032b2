// Package app builds the dispatcher and its backends from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/amazon"
	"github.com/sameehj/officemcp/pkg/backend/documents"
	"github.com/sameehj/officemcp/pkg/backend/maths"
	"github.com/sameehj/officemcp/pkg/backend/odoo"
	"github.com/sameehj/officemcp/pkg/backend/openai"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
	"github.com/sameehj/officemcp/pkg/backend/slack"
	"github.com/sameehj/officemcp/pkg/backend/storage"
	"github.com/sameehj/officemcp/pkg/backend/weather"
	"github.com/sameehj/officemcp/pkg/backend/web"
	"github.com/sameehj/officemcp/pkg/catalog"
	"github.com/sameehj/officemcp/pkg/config"
	"github.com/sameehj/officemcp/pkg/dispatch"
	"github.com/sameehj/officemcp/pkg/gateway"
	"github.com/sameehj/officemcp/pkg/httpapi"
	"github.com/sameehj/officemcp/pkg/mcp"
	"github.com/sameehj/officemcp/pkg/tools"
)

const redisPingTimeout = 5 * time.Second

// App owns the long-lived collaborators shared by every front-end.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Dispatcher *dispatch.Dispatcher
	Shortener  *shortener.Shortener
	// Configured lists the backends that have credentials.
	Configured []string

	closers []func() error
}

// Build connects the configured backends. Backends without credentials stay
// unset so their tools answer Unavailable.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	httpClient := backend.NewHTTPClient(cfg.Timeout)
	var deps tools.Deps

	var linkStore shortener.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, rdb.Close)
		linkStore = shortener.NewRedisStore(rdb, cfg.Redis.Prefix)
		a.configured("redis")
	}
	a.Shortener = shortener.New(linkStore, strings.TrimRight(cfg.BaseURL, "/")+"/s")
	deps.Shortener = a.Shortener

	var store *storage.Store
	if cfg.Database.DSN != "" {
		var err error
		store, err = storage.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
		}
		a.closers = append(a.closers, func() error {
			sqlDB, err := store.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		deps.Storage = store
		a.configured("storage")
	}

	if cfg.Weather.APIKey != "" {
		deps.Weather = weather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, httpClient)
		a.configured("weather")
	}

	var searcher web.LinkSearcher
	if cfg.Search.APIKey != "" && cfg.Search.EngineID != "" {
		google, err := web.NewGoogleSearcher(ctx, cfg.Search.APIKey, cfg.Search.EngineID)
		if err != nil {
			a.Close()
			return nil, err
		}
		searcher = google
		a.configured("search")
	}
	deps.Web = web.NewService(searcher, web.NewBrowser(httpClient))

	var uploader documents.Uploader
	if cfg.Slack.Token != "" {
		svc := slack.New(slack.NewClient(cfg.Slack.Token, cfg.Slack.APIURL, httpClient), directory(store), httpClient)
		svc.SetLogger(logger)
		deps.Slack = svc
		uploader = svc
		a.configured("slack")
	}

	var embedder documents.Embedder
	if cfg.OpenAI.APIKey != "" {
		client := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient,
			openai.WithReasoningModel(cfg.OpenAI.ReasoningModel))
		deps.Reasoner = client
		embedder = client
		a.configured("openai")
	}

	docs := documents.New(documents.Config{
		Root:    cfg.Files.Root,
		BaseURL: filesURL(cfg),
	}, uploader, embedder)
	docs.SetLogger(logger)
	deps.Documents = docs

	if cfg.Odoo.URL != "" {
		client := odoo.New(odoo.Config{
			URL:      cfg.Odoo.URL,
			APIURL:   cfg.Odoo.APIURL,
			DB:       cfg.Odoo.DB,
			Login:    cfg.Odoo.Login,
			Password: cfg.Odoo.Password,
		}, httpClient, a.Shortener)
		client.SetLogger(logger)
		deps.Odoo = client
		a.configured("odoo")
	}

	if cfg.Amazon.APIKey != "" {
		deps.Amazon = amazon.New(cfg.Amazon.APIKey, cfg.Amazon.BaseURL, httpClient)
		a.configured("amazon")
	}

	solver := maths.New(cfg.Maths.Interpreter, cfg.Maths.Timeout, maths.WithBlocklist(cfg.Maths.Blocklist))
	solver.SetLogger(logger)
	deps.Maths = solver

	a.Dispatcher = dispatch.New(catalog.Default(), tools.Table(deps), dispatch.WithLogger(logger))
	logger.Info("app_ready", "tools", catalog.Default().Len(), "backends", a.Configured)
	return a, nil
}

// directory keeps a nil store from becoming a non-nil interface.
func directory(store *storage.Store) slack.Directory {
	if store == nil {
		return nil
	}
	return store
}

func filesURL(cfg *config.Config) string {
	if cfg.Files.Root == "" || cfg.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(cfg.BaseURL, "/") + "/files"
}

func (a *App) configured(name string) {
	a.Configured = append(a.Configured, name)
}

// MCPServer returns an MCP server over the shared dispatcher.
func (a *App) MCPServer() *mcp.Server {
	server := mcp.NewServer(a.Dispatcher)
	server.SetLogger(a.Logger)
	return server
}

// Gateway returns a session gateway listening on the configured TCP address.
func (a *App) Gateway() *gateway.Server {
	gw := gateway.NewServer(a.Config.Gateway.TCPAddr, a.MCPServer(), gateway.NewAuthorizer(a.Config.Gateway.Allow))
	gw.SetMaxSessions(a.Config.Gateway.MaxSessions)
	gw.SetLogger(a.Logger)
	return gw
}

// HTTPServer returns the HTTP API with short-link redirects and file serving.
func (a *App) HTTPServer() *httpapi.Server {
	return httpapi.New(a.Dispatcher,
		httpapi.WithResolver(a.Shortener),
		httpapi.WithFiles(a.Config.Files.Root),
		httpapi.WithProjectID(a.Config.ProjectID),
		httpapi.WithLogger(a.Logger),
	)
}

// Close releases database and redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
