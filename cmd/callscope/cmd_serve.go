// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/callscope/pkg/logging"
	"github.com/AleutianAI/callscope/services/scope"
	"github.com/AleutianAI/callscope/services/scope/config"
	"github.com/AleutianAI/callscope/services/scope/scene"
	"github.com/AleutianAI/callscope/services/scope/session"
	"github.com/AleutianAI/callscope/services/scope/telemetry"
	"github.com/AleutianAI/callscope/services/scope/watch"
)

// minReapInterval keeps short TTLs from spinning the reaper.
const minReapInterval = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over HTTP and websocket",
		Long: `Serve the graph to editor views.

Each view opens a session and streams pointer, wheel and keyboard events;
every event answers with the frame to render. With watching enabled the
graph document is reloaded on change and every session is refreshed.

Examples:
  callscope serve --graph build/callgraph.json
  callscope serve --addr 0.0.0.0:9000 --no-watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if noWatch {
				a.cfg.Graph.Watch = false
			}
			return runServe(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the graph on change")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	sc, err := loadGraph(cfg.Graph.Path)
	if err != nil {
		if !cfg.Graph.Watch {
			return err
		}
		slog.Warn("Graph not loaded, waiting for it to change",
			slog.String("path", cfg.Graph.Path),
			slog.String("error", err.Error()),
		)
	}

	metrics, err := telemetry.NewMetrics(otel.Meter("callscope"))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	svc := scope.NewService(serviceConfig(cfg), sc,
		scope.WithMetrics(metrics),
		scope.WithServiceLogger(slog.Default()),
		scope.WithNavigator(logNavigation),
	)

	if cfg.Logging.Level == logging.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(cfg, svc, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Graph.Watch {
		w, err := watch.New(cfg.Graph.Path, func(ctx context.Context, sc *scene.Scene) {
			if err := svc.SetScene(ctx, sc); err != nil {
				slog.Warn("Failed to install reloaded graph", slog.String("error", err.Error()))
			}
		}, &watch.Options{Debounce: cfg.Graph.Debounce, Logger: slog.Default()})
		if err != nil {
			return err
		}
		if err := w.Start(gctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	g.Go(func() error {
		slog.Info("Starting callscope server",
			slog.String("address", srv.Addr),
			slog.String("graph", cfg.Graph.Path),
			slog.Bool("watch", cfg.Graph.Watch),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		svc.RunReaper(gctx, reapInterval(cfg.Session.TTL))
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down callscope server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := svc.Close(sctx); err != nil {
			slog.Warn("Closing sessions failed", slog.String("error", err.Error()))
		}
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// newRouter builds the gin engine with tracing, metrics and the scope
// routes under /v1.
func newRouter(cfg config.Config, svc *scope.Service, metrics *telemetry.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.GinTracing(cfg.Telemetry.ServiceName))
	router.Use(telemetry.GinMetrics(metrics))

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	v1 := router.Group("/v1")
	scope.RegisterRoutes(v1, scope.NewHandlers(svc))
	return router
}

func serviceConfig(cfg config.Config) scope.ServiceConfig {
	return scope.ServiceConfig{
		Camera:          cfg.Camera,
		WorkspaceRoot:   cfg.Graph.WorkspaceRoot,
		AutoCenter:      cfg.Session.AutoCenter,
		SessionTTL:      cfg.Session.TTL,
		MaxSessions:     cfg.Session.MaxSessions,
		EventsPerSecond: cfg.Session.EventsPerSecond,
		EventBurst:      cfg.Session.EventBurst,
	}
}

// reapInterval checks for idle sessions a few times per TTL.
func reapInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return max(ttl/4, minReapInterval)
}

// logNavigation records go-to-definition requests. The frame carries the
// request to the editor, so the server only logs it.
func logNavigation(ctx context.Context, req session.NavigationRequest) {
	telemetry.LoggerWithTrace(ctx, slog.Default()).Info("Navigation requested",
		slog.String("path", req.Path),
		slog.Int("line", req.Line),
		slog.Int("character", req.Character),
	)
}
