// Package server assembles the application's dependencies and runs the HTTP
// server until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/threads-api/internal/api"
	"github.com/JakeFAU/threads-api/internal/config"
	"github.com/JakeFAU/threads-api/internal/logging"
	"github.com/JakeFAU/threads-api/internal/policy/ratelimit"
	"github.com/JakeFAU/threads-api/internal/render"
	"github.com/JakeFAU/threads-api/internal/threads"
)

const fallbackShutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	renderer  *render.Chromedp
	apiServer *api.Server
}

// NewApp builds the Threads client, the optional headless renderer and the
// API router from cfg.
func NewApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("port", cfg.Server.Port),
		zap.String("threads_base_url", cfg.Threads.BaseURL),
		zap.Bool("headless", cfg.Headless.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	app := &App{cfg: cfg, logger: logger}

	// A nil *render.Chromedp must not reach threads.New as a non-nil interface.
	var loader threads.PageLoader
	if cfg.Headless.Enabled {
		renderer, err := render.NewChromedp(render.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Threads.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
			Headers:           map[string]string{"Accept-Language": "en-US,en;q=0.9"},
		})
		if err != nil {
			return nil, fmt.Errorf("headless renderer init failed: %w", err)
		}
		app.renderer = renderer
		loader = renderer
		logger.Info("using headless renderer", zap.Int("max_parallel", cfg.Headless.MaxParallel))
	}

	var throttle threads.Throttle
	if cfg.Threads.RateLimit.RPS > 0 {
		throttle = ratelimit.New(ratelimit.Config{
			RPS:   cfg.Threads.RateLimit.RPS,
			Burst: cfg.Threads.RateLimit.Burst,
		})
		logger.Info("upstream rate limiter enabled",
			zap.Float64("rps", cfg.Threads.RateLimit.RPS),
			zap.Int("burst", cfg.Threads.RateLimit.Burst),
		)
	}

	client := threads.New(threads.Config{
		BaseURL:     cfg.Threads.BaseURL,
		GraphQLPath: cfg.Threads.GraphQLPath,
		AppID:       cfg.Threads.AppID,
		UserAgent:   cfg.Threads.UserAgent,
		LSDToken:    cfg.Threads.LSDToken,
		Timeout:     cfg.UpstreamTimeout(),
		DocIDs: threads.DocIDs{
			UserProfile:   cfg.Threads.DocIDs.UserProfile,
			UserThreads:   cfg.Threads.DocIDs.UserThreads,
			ThreadReplies: cfg.Threads.DocIDs.ThreadReplies,
		},
		Throttle:           throttle,
		PromotionThreshold: cfg.Headless.PromotionThreshold,
	}, loader, logging.Named(logger, "threads"))

	app.apiServer = api.NewServer(client, cfg, logging.Named(logger, "api"))
	return app, nil
}

// Handler exposes the routed API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run listens on the configured port and serves until ctx is canceled or the
// process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", a.cfg.Server.Port, err)
	}
	a.logger.Info("starting API server", zap.Int("port", a.cfg.Server.Port))
	return a.Serve(ctx, ln)
}

// Serve handles connections on ln until ctx is done, then drains in-flight
// requests within the shutdown timeout. It takes ownership of ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout(),
		ErrorLog:          zap.NewStdLog(a.logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Debug("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close releases the renderer and flushes the logger.
func (a *App) Close() error {
	if a.renderer != nil {
		a.renderer.Close()
	}
	a.logger.Info("shutdown complete")
	if err := a.logger.Sync(); err != nil && !isIgnorableSyncError(err) {
		return fmt.Errorf("logger sync: %w", err)
	}
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.ShutdownTimeout(); d > 0 {
		return d
	}
	return fallbackShutdownTimeout
}

// Syncing stdout/stderr fails on terminals and pipes.
func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
