package main

import (
	"context"
	"fmt"

	"github.com/memelaunch/launchpad/internal/app"
	"github.com/memelaunch/launchpad/internal/tokens"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <manifest.yaml>",
	Short: "List tokens from a YAML manifest",
	Long:  `Creates every token of the manifest that is not listed yet. Already listed tokens are skipped.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		m, err := tokens.LoadManifest(args[0])
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg, newLogger(cmd, cfg))
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.Background()) }()

		res, err := a.Tokens.Seed(cmd.Context(), m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
