package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/memelaunch/launchpad/internal/app"
	"github.com/memelaunch/launchpad/internal/export"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/report"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the leaderboard cache",
	Long:  `Rebuilds both leaderboards from the points ledger, stores them in the cache and prints them.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("export")
		rawFormat, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(rawFormat)
		if err != nil {
			return err
		}
		log := newLogger(cmd, cfg)
		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.Background()) }()

		if onChain, _ := cmd.Flags().GetBool("chain"); onChain {
			traders, err := a.Leaderboard.ChainTopTraders(cmd.Context(), leaderboard.DefaultLimit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Traders(traders))
			return nil
		}

		if _, err := a.Leaderboard.Refresh(cmd.Context()); err != nil {
			return err
		}

		var traders []leaderboard.Trader
		if err := loadBoard(cmd.Context(), a.Leaderboard, leaderboard.TopTraders, &traders); err != nil {
			return err
		}
		var active []leaderboard.ActiveUser
		if err := loadBoard(cmd.Context(), a.Leaderboard, leaderboard.MostActive, &active); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Traders(traders))
		fmt.Fprintln(cmd.OutOrStdout(), report.Active(active))

		if dir == "" {
			return nil
		}
		exp := export.NewExporter(log)
		opts := export.Options{Format: format, OutputDir: dir}
		if len(traders) > 0 {
			path, err := exp.ExportTraders(traders, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported", path)
		}
		if len(active) > 0 {
			path, err := exp.ExportActive(active, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "exported", path)
		}
		return nil
	},
}

func loadBoard(ctx context.Context, svc *leaderboard.Service, kind leaderboard.Kind, into interface{}) error {
	snap, err := svc.Cached(ctx, kind)
	if err != nil {
		return err
	}
	return json.Unmarshal(snap.Data, into)
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().Bool("chain", false, "Rank holders by on-chain volume instead of the ledger")
	refreshCmd.Flags().String("export", "", "Directory to write the refreshed boards to")
	refreshCmd.Flags().String("format", string(export.FormatCSV), "Export format: csv or json")
}
