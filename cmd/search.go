package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mbox-addressbook/internal/mbox"
	"mbox-addressbook/internal/models"
)

var (
	searchFromDomains []string
	searchSubject     string
	searchBody        string
	searchHeaders     []string
	searchExclude     []string
	searchOut         string
)

var searchCmd = &cobra.Command{
	Use:   "search <mbox file or directory>...",
	Short: "List or extract the messages matching a predicate",
	Long: `Scan archives with a composed predicate. All given filters must match.
Matching messages are listed, or written to a new mbox file with --out.

  addressbook search Inbox --from-domain rate.com --subject "rate sheet"
  addressbook search mail/ --header "List-Id=loans" --out matches.mbox`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		pred, err := searchPredicate()
		if err != nil {
			return err
		}
		archives, err := mbox.Discover(args)
		if err != nil {
			return err
		}

		var out *mbox.MatchWriter
		if searchOut != "" {
			f, err := os.Create(searchOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = mbox.NewMatchWriter(f)
		}

		var total mbox.ScanStats
		for _, archive := range archives {
			r, err := mbox.Open(archive.Path, cfg.Scan.MaxMessageBytes)
			if err != nil {
				return err
			}
			stats, err := mbox.Scan(r, pred, func(raw *models.RawMessage, email *models.Email) error {
				if out != nil {
					return out.Write(raw, email)
				}
				fmt.Printf("%s  %-36s %s\n", email.Date.Format("2006-01-02"), email.From, email.Subject)
				return nil
			})
			r.Close()
			if err != nil {
				return fmt.Errorf("scan %s: %w", archive.Path, err)
			}
			total.Messages += stats.Messages
			total.Matches += stats.Matches
			total.DecodeErrors += stats.DecodeErrors
		}

		if out != nil {
			if err := out.Close(); err != nil {
				return err
			}
		}
		fmt.Printf("\n%s %d of %d messages matched", green("✓"), total.Matches, total.Messages)
		if searchOut != "" {
			fmt.Printf(", written to %s", searchOut)
		}
		fmt.Println()
		return nil
	},
}

func searchPredicate() (mbox.Predicate, error) {
	var preds []mbox.Predicate
	if len(searchFromDomains) > 0 {
		var anyOf []mbox.Predicate
		for _, d := range searchFromDomains {
			anyOf = append(anyOf, mbox.FromDomain(d))
		}
		preds = append(preds, mbox.Or(anyOf...))
	}
	for _, d := range searchExclude {
		preds = append(preds, mbox.Not(mbox.FromDomain(d)))
	}
	if searchSubject != "" {
		preds = append(preds, mbox.SubjectContains(searchSubject))
	}
	if searchBody != "" {
		preds = append(preds, mbox.BodyContains(searchBody))
	}
	for _, h := range searchHeaders {
		name, value, ok := strings.Cut(h, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--header %q: want Name=substring", h)
		}
		preds = append(preds, mbox.HeaderContains(name, value))
	}
	return mbox.And(preds...), nil
}

func init() {
	searchCmd.Flags().StringSliceVar(&searchFromDomains, "from-domain", nil, "sender domain (repeatable, any may match)")
	searchCmd.Flags().StringSliceVar(&searchExclude, "exclude-domain", nil, "sender domain to exclude (repeatable)")
	searchCmd.Flags().StringVar(&searchSubject, "subject", "", "subject substring")
	searchCmd.Flags().StringVar(&searchBody, "body", "", "decoded body substring")
	searchCmd.Flags().StringArrayVar(&searchHeaders, "header", nil, "Name=substring header filter (repeatable)")
	searchCmd.Flags().StringVarP(&searchOut, "out", "o", "", "write matches to this mbox file")
	rootCmd.AddCommand(searchCmd)
}
