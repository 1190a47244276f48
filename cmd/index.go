package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/config"
	"mbox-addressbook/internal/pipeline"
)

var indexTop int

var indexCmd = &cobra.Command{
	Use:   "index <mbox file or directory>...",
	Short: "Build only the correspondent index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx, cancel := signalContext()
		defer cancel()

		p := pipeline.NewProcessor(cfg, nil)
		scanned, stats, err := p.Scan(ctx, args)
		if err != nil {
			return err
		}
		path := config.IndexPath(cfg)
		if err := scanned.Index.Save(path); err != nil {
			return err
		}

		printHeader("Correspondent Index")
		printArchives(stats)

		addrs := scanned.Index.Addresses()
		sort.SliceStable(addrs, func(i, j int) bool {
			a, b := scanned.Index.Get(addrs[i]), scanned.Index.Get(addrs[j])
			return a.SentByOwner+a.ReceivedByOwner > b.SentByOwner+b.ReceivedByOwner
		})
		fmt.Printf("%s\n", yellow("Top correspondents (sent / received):"))
		for i, addr := range addrs {
			if i == indexTop {
				break
			}
			c := scanned.Index.Get(addr)
			fmt.Printf("  %-40s %6d / %-6d\n", addr, c.SentByOwner, c.ReceivedByOwner)
		}
		fmt.Printf("\n%s %d correspondents written to %s\n", green("✓"), scanned.Index.Len(), path)
		return nil
	},
}

func init() {
	indexCmd.Flags().IntVar(&indexTop, "top", 20, "number of correspondents to list")
	rootCmd.AddCommand(indexCmd)
}
