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

	"github.com/ethansammiq/deal-desk-sub004/internal/api"
	"github.com/ethansammiq/deal-desk-sub004/internal/assess"
	"github.com/ethansammiq/deal-desk-sub004/internal/monitor"
	"github.com/ethansammiq/deal-desk-sub004/pkg/anthropic"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the deal desk REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		threshold := time.Duration(cfg.Approval.BottleneckThresholdHours) * time.Hour
		server := api.NewServer(st, buildAssessor(), threshold, cfg.Server)

		if cfg.Monitor.Enabled {
			checker := monitor.NewChecker(
				monitor.NewCollector(st),
				monitor.NewAlerter(cfg.Monitor),
				cfg.Monitor,
				threshold,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("store", cfg.Store.Driver),
			zap.String("assessor", cfg.Assessor.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildAssessor wires the configured assessor. Remote mode keeps the
// heuristic as a fallback so assessment degrades instead of failing.
func buildAssessor() assess.Assessor {
	heuristic := assess.NewHeuristic()

	if cfg.Assessor.Mode != "remote" {
		return heuristic
	}
	if cfg.Assessor.AnthropicKey == "" {
		zap.L().Warn("assessor mode is remote but no API key is set, using heuristic")
		return heuristic
	}

	remote := assess.NewRemote(
		anthropic.NewClient(cfg.Assessor.AnthropicKey),
		cfg.Assessor.Model,
		cfg.Assessor.MaxTokens,
	)
	return assess.WithFallback(remote, heuristic)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
