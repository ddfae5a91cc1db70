package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var assessDealID string

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run a one-off assessment for a deal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		deal, err := st.GetDeal(ctx, assessDealID)
		if err != nil {
			return eris.Wrap(err, "get deal")
		}
		if deal == nil {
			return eris.Errorf("deal %q not found", assessDealID)
		}

		tiers, err := st.ListTiers(ctx, deal.ID)
		if err != nil {
			return eris.Wrap(err, "list tiers")
		}

		assessment, err := buildAssessor().Assess(ctx, *deal, tiers)
		if err != nil {
			return eris.Wrap(err, "assess deal")
		}

		zap.L().Info("assessment complete",
			zap.String("deal_id", deal.ID),
			zap.Int("score", assessment.Score),
			zap.String("rating", string(assessment.Rating)),
			zap.String("source", assessment.Source),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(assessment)
	},
}

func init() {
	assessCmd.Flags().StringVar(&assessDealID, "deal", "", "deal ID to assess (required)")
	_ = assessCmd.MarkFlagRequired("deal")
	rootCmd.AddCommand(assessCmd)
}
