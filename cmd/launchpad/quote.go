package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/memelaunch/launchpad/internal/app"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/report"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote [supply...]",
	Short: "Price supplies on the bonding curve",
	Long: `Prints spot price, curve progress and market cap for each supply.
With --token the live supply of a listed token is read from the contract instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if token, _ := cmd.Flags().GetString("token"); token != "" {
			log := newLogger(cmd, cfg)
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			q, err := a.Tokens.Quote(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.TokenQuote(q))
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("give at least one supply or --token")
		}
		c := cfg.Curve
		rows := make([]report.CurveQuote, 0, len(args))
		for _, arg := range args {
			supply, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("supply %q: %w", arg, err)
			}
			price := curve.ComputeSpotPrice(c.InitialPrice, float64(c.MaxSupply), c.CurveFraction, supply)
			counted := supply
			if !(counted > 0) {
				counted = 0
			}
			rows = append(rows, report.CurveQuote{
				Supply:          counted,
				Price:           price,
				ProgressPercent: curve.ComputeCurveProgressPercent(float64(c.MaxSupply), c.CurveFraction, supply),
				MarketCap:       price * counted,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.Curve(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().String("token", "", "Contract address of a listed token")
}
