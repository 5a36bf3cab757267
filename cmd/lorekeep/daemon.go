package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorekeep/lorekeep/internal/server"
)

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the acquisition daemon",
		Long: `Start the acquisition daemon. It cycles over the configured sources,
deduplicates what they return and persists novel questions, until
interrupted. The control API listens for lifecycle and harvest requests.`,
		RunE: runDaemon,
	}

	cmd.Flags().Bool("dry-run", false, "count questions without persisting anything")
	cmd.Flags().String("listen", "", "control API listen address (host:port, empty to disable)")
	_ = viper.BindPFlag("daemon.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	d, cleanup, err := buildDaemon(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	d.Start(ctx)

	var srv *server.Server
	if addr := viper.GetString("server.listen"); addr != "" {
		host, port, err := splitListenAddr(addr)
		if err != nil {
			return err
		}
		srv = server.NewServer(d, server.Config{Host: host, Port: port})
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("control server failed", "error", err)
			}
		}()
	}

	waitForShutdown(ctx, d)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			slog.Error("failed to stop control server", "error", err)
		}
	}
	return nil
}
