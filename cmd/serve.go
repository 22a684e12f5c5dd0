package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/api"
	"github.com/citystrata/citystrata/internal/cache"
	"github.com/citystrata/citystrata/internal/monitoring"
	"github.com/citystrata/citystrata/internal/snapshot"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Loads the city snapshot, then serves area, resource, search and evacuation endpoints. The snapshot is reloaded in the background and health alerts are checked periodically.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		holder := snapshot.NewHolder(snapshot.NewLoader(st, cfg.City.Code, cfg.Search.GridCellDegrees))
		collector := monitoring.NewCollector(holder)
		holder.OnSwap = collector.RecordSwap
		holder.OnError = collector.RecordError

		if err := holder.Reload(ctx); err != nil {
			return eris.Wrap(err, "initial snapshot load")
		}

		c := cache.New(cfg.Cache)
		defer c.Close() //nolint:errcheck
		if c.Enabled() {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := c.Ping(pingCtx); err != nil {
				zap.L().Warn("redis unreachable, serving uncached until it recovers", zap.Error(err))
			}
			cancel()
		}

		go holder.Run(ctx, seconds(cfg.Snapshot.RefreshIntervalSecs))

		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		go checker.Run(ctx)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.NewServer(holder, c, cfg.Server, cfg.Search).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("city_code", cfg.City.Code),
			zap.Bool("cache", c.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
