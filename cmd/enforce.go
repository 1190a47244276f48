package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/classify"
	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/pipeline"
)

var enforceDB string

var enforceCmd = &cobra.Command{
	Use:   "enforce",
	Short: "Re-apply the data-quality passes to the contact database",
	Long: `Run the role-account purge, the shared-phone clearing and the
bidirectional-exchange filter, in that order, against an existing contact
database. Removed contacts are deleted together with their review entries.
The database is rewritten as a new snapshot and swapped in when complete.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := context.Background()
		if enforceDB == "" {
			enforceDB = config.ContactsPath(cfg)
		}

		patterns := classify.DictionariesFromConfig(cfg).RolePatterns
		res, err := pipeline.EnforceDatabase(ctx, enforceDB, patterns)
		if err != nil {
			return err
		}

		printHeader("Enforcement")
		printReports(res.Reports)
		fmt.Printf("%s %d of %d contacts kept\n", green("✓"), res.Kept, res.Total)
		return nil
	},
}

func init() {
	enforceCmd.Flags().StringVar(&enforceDB, "db", "", "contact database (default from configuration)")
	rootCmd.AddCommand(enforceCmd)
}
