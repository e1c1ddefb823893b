package main

import (
	"fmt"
	"os"

	"github.com/memelaunch/launchpad/internal/config"
	"github.com/memelaunch/launchpad/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "launchpad",
	Short: "Bonding-curve token launchpad backend",
	Long: `launchpad prices tokens on a linear bonding curve, runs token-holder
governance and serves the launchpad HTTP API.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a JSON or YAML config file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", string(logger.FormatPretty), "Log format: pretty or json")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *zap.Logger {
	format, _ := cmd.Flags().GetString("log-format")
	return logger.New(logger.Options{
		Debug:  cfg.Debug,
		Format: logger.Format(format),
		Output: cmd.ErrOrStderr(),
	})
}

func main() {
	Execute()
}
