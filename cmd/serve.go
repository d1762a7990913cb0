package cmd

import (
	clts "anthrometer/clients"
	"anthrometer/internal/app"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// loadTimeout is the maximum time to wait for loading preferences
	loadTimeout = 30 * time.Second
)

// serveCmd runs the dashboard engine until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server and poll loop.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		logger.Info("starting anthrometer",
			zap.String("commit", app.BuildCommit),
			zap.String("prefsBackend", cfg.Prefs.Backend),
		)

		logger.Info("instantiating clients")
		clients := clts.NewClients(logger, cfg)
		defer clients.Close()

		loadCtx, loadCancel := context.WithTimeout(cmd.Context(), loadTimeout)
		prefsStore, kv, err := app.OpenPreferences(loadCtx, logger, cfg, clients.Gist)
		loadCancel()
		if err != nil {
			return err
		}
		defer kv.Close()

		ctx, stop := signal.NotifyContext(
			cmd.Context(),
			os.Interrupt,
			syscall.SIGINT,
			syscall.SIGTERM,
		)
		defer stop()

		runner := app.NewRunner(clients, cfg, prefsStore)
		return runner.Run(ctx)
	},
}
