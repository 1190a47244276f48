package main

import (
	"github.com/spf13/cobra"

	"mbox-addressbook/internal/classify"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run <mbox file or directory>...",
	Short: "Run the full pipeline and write every artifact",
	Long: `Scan the archives one after the other, resolve and classify contacts,
apply the data-quality passes, then write the index, the contact database
and the CSV exports. Nothing is written if an archive cannot be read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		var delegate classify.Delegate
		if cfg.Enrichment.Enabled {
			d, err := classify.NewAnthropicDelegate(cfg.Enrichment)
			if err != nil {
				return err
			}
			delegate = d
		}

		ctx, cancel := signalContext()
		defer cancel()

		res, artifacts, err := pipeline.Run(ctx, cfg, delegate, args)
		if err != nil {
			logging.Log.WithError(err).Error("Run failed")
			return err
		}
		printRunSummary(res, artifacts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
