// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/holomush/authgate/internal/auth"
	"github.com/holomush/authgate/internal/config"
	"github.com/holomush/authgate/internal/httpapi"
	"github.com/holomush/authgate/internal/logging"
	"github.com/holomush/authgate/internal/observability"
	"github.com/holomush/authgate/internal/store"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the authgate API server with the configured authentication
strategy, plus the metrics and health server when metrics-addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

func defaultServeDeps(deps *ServeDeps) *ServeDeps {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolOpener == nil {
		deps.PoolOpener = func(ctx context.Context, dsn string) (Pool, error) {
			pool, err := store.Open(ctx, dsn)
			if err != nil {
				return nil, err //nolint:wrapcheck // store.Open errors carry codes
			}
			return pool, nil
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(addr string) RedisClient {
			return redis.NewClient(&redis.Options{Addr: addr})
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	return deps
}

// runServeWithDeps starts the API with injectable dependencies and blocks
// until a signal arrives, ctx is cancelled or a server fails.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = defaultServeDeps(deps)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.SetDefault(logging.Options{
		Version: version,
		Format:  cfg.LogFormat,
		Level:   logging.ParseLevel(os.Getenv("AUTHGATE_LOG_LEVEL")),
	})

	kind := auth.ParseKind(cfg.AuthType)
	logger.Info("starting authgate",
		"addr", cfg.Addr,
		"strategy", kind.String(),
		"user_store", cfg.UserStore,
	)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := openBackends(ctx, cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}
	defer b.Close()

	hasher := auth.NewArgon2idHasher()
	authenticator, err := newAuthenticator(cfg, b, hasher, logger)
	if err != nil {
		return fmt.Errorf("failed to build authenticator: %w", err)
	}
	accounts, err := auth.NewAuthService(b.users, hasher, auth.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build account service: %w", err)
	}
	resets, err := auth.NewPasswordResetService(b.users, hasher)
	if err != nil {
		return fmt.Errorf("failed to build reset service: %w", err)
	}

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, time.Second)
			defer pingCancel()
			return b.ready(pingCtx)
		})
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:          authenticator,
		Users:         b.users,
		Hasher:        hasher,
		Accounts:      accounts,
		Resets:        resets,
		ExcludedPaths: cfg.ExcludedPaths,
		Metrics:       metrics,
		Logger:        logger,
	})

	listener, err := deps.ListenerFactory("tcp", cfg.Addr)
	if err != nil {
		stopObservability(obsServer)
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	httpSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("authgate listening on " + listener.Addr().String())
	logger.Info("authgate ready", "addr", listener.Addr().String())

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr = <-errChan:
		logger.Error("API server error", "error", serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	stopObservability(obsServer)

	logger.Info("shutdown complete")
	if serveErr != nil {
		return fmt.Errorf("API server error: %w", serveErr)
	}
	return nil
}

func stopObservability(obsServer ObservabilityServer) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It returns
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
