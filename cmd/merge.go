package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/pipeline"
	"mbox-addressbook/internal/resolver"
	"mbox-addressbook/internal/store"
)

var mergeOut string

var mergeCmd = &cobra.Command{
	Use:   "merge <contacts.db> <contacts.db>...",
	Short: "Merge contact databases from separate runs",
	Long: `Combine the contact sets of several runs into one database. Merging is
idempotent: merging a set with itself changes nothing. Values from
structured side-tables win; otherwise the first database's values are kept
and disagreements are queued for review.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := context.Background()
		if mergeOut == "" {
			mergeOut = config.ContactsPath(cfg)
		}

		limits := resolver.LimitsFromConfig(cfg.Resolver)
		var (
			merged    []models.CanonicalContact
			review    []models.ReviewItem
			conflicts []*models.MergeConflict
		)
		for _, path := range args {
			contacts, items, err := pipeline.LoadSnapshot(ctx, path)
			if err != nil {
				return err
			}
			var c []*models.MergeConflict
			merged, c = resolver.MergeWithConflicts(merged, contacts, limits)
			conflicts = append(conflicts, c...)
			review = append(review, items...)
		}

		violations := resolver.NMLSCollisions(merged)
		review = append(review, resolver.ConflictReviewItems(conflicts)...)
		review = append(review, resolver.CollisionReviewItems(violations)...)

		if err := store.WriteSnapshot(ctx, mergeOut, merged, review); err != nil {
			return err
		}

		printHeader("Merge")
		fmt.Printf("  %d databases, %d conflicts, %d NMLS collisions\n\n", len(args), len(conflicts), len(violations))
		printReview(review)
		fmt.Printf("%s %d contacts written to %s\n", green("✓"), len(merged), mergeOut)
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOut, "out", "o", "", "output database (default from configuration)")
	rootCmd.AddCommand(mergeCmd)
}
