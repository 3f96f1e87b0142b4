// Command authshell runs the sign-in shell in a terminal. Screens are printed
// to stdout and commands are read from stdin, one per line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-authgate"
	"github.com/goliatone/go-authgate/activitymap"
	"github.com/goliatone/go-authgate/config"
	"github.com/goliatone/go-authgate/metrics"
	"github.com/goliatone/go-authgate/provider/httpidp"
	"github.com/goliatone/go-authgate/provider/memory"
	"github.com/goliatone/go-authgate/provider/oidc"
	"github.com/goliatone/go-authgate/repository"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// provider is an identity provider whose session survives restarts.
type provider interface {
	authgate.IdentityProvider
	Restore(ctx context.Context) error
}

func main() {
	confPath := flag.String("conf", "", "Path to the YAML configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if err := run(*confPath, *debug); err != nil {
		fmt.Fprintln(os.Stderr, "authshell:", err)
		os.Exit(1)
	}
}

func run(confPath string, debug bool) error {
	cfg, err := config.Load(confPath)
	if err != nil {
		return err
	}

	level := glog.Info
	if debug || cfg.Shell.Debug {
		level = glog.Trace
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("authshell"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	if debug {
		fmt.Println(print.MaybePrettyJSON(map[string]any{
			"shell":     cfg.Shell,
			"endpoints": cfg.Endpoints,
			"provider":  cfg.Provider.Kind,
			"storage":   cfg.Storage.DSN != "",
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := authgate.NewSessionCache(store, authgate.WithCacheLogger(lgr.GetLogger("cache")))

	idp, err := newProvider(ctx, cfg, cache, lgr.GetLogger("provider"))
	if err != nil {
		return err
	}
	if err := idp.Restore(ctx); err != nil {
		lgr.Warn("restore session failed", "error", err)
	}

	sinks := authgate.ActivitySinks{activityLog(lgr.GetLogger("activity"))}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, metrics.NewCollector(reg))
		shutdown := serveMetrics(cfg.Metrics.Address, reg, lgr.GetLogger("metrics"))
		defer shutdown()
	}

	loop := authgate.NewEventLoop()
	defer loop.Close()

	out := os.Stdout
	shell := authgate.NewShell(idp, loop, cfg,
		authgate.WithFormView(&formView{w: out}),
		authgate.WithHomeView(&homeView{w: out}),
		authgate.WithProfileView(&profileView{w: out}),
		authgate.WithContentSurface(&surface{w: out}),
		authgate.WithLogger(lgr.GetLogger("shell")),
		authgate.WithActivitySink(sinks),
		authgate.WithFormOptions(authgate.WithAttemptLimiter(newLimiter(cfg.Attempts))),
	)

	c := &console{
		shell:    shell,
		provider: idp,
		loop:     loop,
		out:      out,
		logger:   lgr.GetLogger("console"),
		quit:     stop,
	}

	loop.Post(func() {
		if err := shell.Start(); err != nil {
			lgr.Error("start shell failed", "error", err)
			stop()
		}
	})
	go c.read(ctx, os.Stdin)

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Storage) (authgate.SessionStore, func(), error) {
	if cfg.DSN == "" {
		return authgate.NewMemorySessionStore(), func() {}, nil
	}

	db, err := repository.OpenSQLite(cfg.DSN)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open session database").
			WithMetadata(map[string]any{"dsn": cfg.DSN})
	}

	store := repository.NewSessionStore(db, repository.WithSlot(cfg.Slot))
	if err := store.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "create session schema")
	}

	return store, func() { db.Close() }, nil
}

func newProvider(ctx context.Context, cfg *config.Config, cache *authgate.SessionCache, logger authgate.Logger) (provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderHTTP:
		return httpidp.New(httpidp.Config{
			BaseURL: cfg.Provider.BaseURL,
			Timeout: cfg.Provider.GetTimeout(),
			Cache:   cache,
			Logger:  logger,
		})
	case config.ProviderOIDC:
		return oidc.New(ctx, oidc.Config{
			Issuer:       cfg.Provider.Issuer,
			ClientID:     cfg.Provider.ClientID,
			ClientSecret: cfg.Provider.ClientSecret,
			Scopes:       cfg.Provider.Scopes,
			HTTPClient:   &http.Client{Timeout: cfg.Provider.GetTimeout()},
		}, oidc.WithSessionCache(cache), oidc.WithLogger(logger))
	default:
		opts := []memory.Option{
			memory.WithSessionCache(cache),
			memory.WithLogger(logger),
			memory.WithTokenTTL(cfg.Provider.GetTokenTTL()),
		}
		if cfg.Provider.SigningKey != "" {
			opts = append(opts, memory.WithSigningKey([]byte(cfg.Provider.SigningKey)))
		}
		return memory.New(opts...), nil
	}
}

func newLimiter(cfg config.Attempts) *rate.Limiter {
	if cfg.Burst <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.GetWindow()), cfg.Burst)
}

func activityLog(logger authgate.Logger) authgate.ActivitySink {
	return authgate.ActivitySinkFunc(func(_ context.Context, event authgate.ActivityEvent) error {
		record := activitymap.Normalize(event)
		logger.Debug("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_type", record.ObjectType,
			"object_id", record.ObjectID,
			"metadata", record.Metadata,
		)
		return nil
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, logger authgate.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
}
