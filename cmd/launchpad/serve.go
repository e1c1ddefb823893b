package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/memelaunch/launchpad/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the launchpad API and the background leaderboard refresh. Stops on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.ListenAddr = addr
		}
		log := newLogger(cmd, cfg)
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}

		runErr := a.Run(ctx)
		log.Info("Stopping launchpad")
		if err := a.Close(context.Background()); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overrides server.listen_addr")
}
