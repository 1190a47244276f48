package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/export"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/store"
)

var exportDB string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write per-category CSV files from the contact database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if exportDB == "" {
			exportDB = config.ContactsPath(cfg)
		}

		s, err := store.NewSQLiteStore(exportDB)
		if err != nil {
			return err
		}
		defer s.Close()

		contacts, err := s.LoadContacts(context.Background())
		if err != nil {
			return fmt.Errorf("load contacts: %w", err)
		}
		written, err := export.WriteAll(config.CSVPath(cfg), contacts)
		if err != nil {
			return err
		}

		printHeader("Export")
		counts := make(map[models.Category]int)
		for _, c := range contacts {
			counts[c.Classification.Type]++
		}
		printCounts(counts)
		for _, p := range written {
			fmt.Printf("  %s\n", p)
		}
		fmt.Printf("\n%s %d contacts exported\n", green("✓"), len(contacts))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDB, "db", "", "contact database (default from configuration)")
	rootCmd.AddCommand(exportCmd)
}
