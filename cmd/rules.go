package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ethansammiq/deal-desk-sub004/internal/approval"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the approval rule catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rules, err := approval.Rules()
		if err != nil {
			return eris.Wrap(err, "load rules")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
