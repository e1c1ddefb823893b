package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/app"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/report"
	"github.com/spf13/cobra"
)

var verdictCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Judge whether a vote outcome is valid",
	Long: `Evaluates yes/no counts against the configured quorum and supermajority.
With --proposal the stored tally of that proposal is used.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if raw, _ := cmd.Flags().GetString("proposal"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("proposal id: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			v, err := a.Governance.Verdict(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Verdict(v))
			return nil
		}

		yes, _ := cmd.Flags().GetUint32("yes")
		no, _ := cmd.Flags().GetUint32("no")
		v := governance.Evaluate(governance.Tally{YesVotes: yes, NoVotes: no}, cfg.Governance)
		fmt.Fprintln(cmd.OutOrStdout(), report.Verdict(v))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verdictCmd)
	verdictCmd.Flags().Uint32("yes", 0, "Yes votes")
	verdictCmd.Flags().Uint32("no", 0, "No votes")
	verdictCmd.Flags().String("proposal", "", "Proposal id to read the tally from")
}
