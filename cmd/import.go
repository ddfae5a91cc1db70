package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ethansammiq/deal-desk-sub004/internal/importer"
)

var (
	importXLSXPath string
	importOwnerID  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import deals in bulk from an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		im := importer.New(st, importOwnerID, cfg.Import.MaxConcurrent)
		result, err := im.Import(ctx, importXLSXPath)
		if err != nil {
			return eris.Wrap(err, "import deals")
		}

		zap.L().Info("import complete",
			zap.String("file", importXLSXPath),
			zap.Int("total", result.Total),
			zap.Int("imported", result.Imported),
			zap.Int("skipped", result.Skipped),
		)
		for _, rowErr := range result.Errors {
			zap.L().Warn("row skipped",
				zap.Int("row", rowErr.Row),
				zap.String("reason", rowErr.Err),
			)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importXLSXPath, "file", "", "path to XLSX file (required)")
	importCmd.Flags().StringVar(&importOwnerID, "owner", "import", "owner user ID for imported deals")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
