package main

import (
	"fmt"

	"github.com/fatih/color"

	"mbox-addressbook/internal/enforce"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/pipeline"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func printHeader(title string) {
	fmt.Printf("\n%s\n\n", cyan("=== "+title+" ==="))
}

func printArchives(stats []pipeline.ArchiveStats) {
	fmt.Printf("%s\n", yellow("Archives:"))
	for _, s := range stats {
		fmt.Printf("  %-30s %8d messages  %6d contacts", s.Archive.Name, s.Messages, s.Contacts)
		if s.DecodeErrors > 0 || s.Truncated > 0 || s.Boundaries > 0 {
			fmt.Printf("  %s", red(fmt.Sprintf("(%d decode errors, %d truncated, %d ambiguous boundaries)",
				s.DecodeErrors, s.Truncated, s.Boundaries)))
		}
		fmt.Println()
	}
	fmt.Println()
}

func printCounts(counts map[models.Category]int) {
	fmt.Printf("%s\n", yellow("Contacts by category:"))
	for _, cat := range models.Categories {
		if n := counts[cat]; n > 0 {
			fmt.Printf("  %-16s %6d\n", cat, n)
		}
	}
	fmt.Println()
}

func printReports(reports []enforce.Report) {
	fmt.Printf("%s\n", yellow("Enforcement:"))
	for _, r := range reports {
		fmt.Printf("  %-16s examined %d, removed %d, cleared %d\n", r.Pass, r.Examined, len(r.Removed), len(r.Cleared))
		for _, ex := range r.Examples {
			fmt.Printf("      %s\n", ex)
		}
	}
	fmt.Println()
}

func printReview(items []models.ReviewItem) {
	byQueue := make(map[string]int)
	for _, it := range items {
		byQueue[it.Queue]++
	}
	fmt.Printf("%s\n", yellow("Review queues:"))
	if len(items) == 0 {
		fmt.Printf("  %s\n\n", green("empty"))
		return
	}
	for _, q := range []string{models.QueueNMLSCollision, models.QueueSharedPhone, models.QueueMergeConflict, models.QueueUnclassified} {
		if n := byQueue[q]; n > 0 {
			fmt.Printf("  %-16s %6d\n", q, n)
		}
	}
	fmt.Println()
}

func printRunSummary(res *pipeline.Result, artifacts *pipeline.Artifacts) {
	printHeader("Address Book Run " + res.RunID)
	printArchives(res.Archives)
	printCounts(res.Counts)
	if len(res.Dropped) > 0 {
		fmt.Printf("%s %d\n\n", yellow("Dropped by rules:"), len(res.Dropped))
	}
	if res.Enrichment.Attempted > 0 {
		fmt.Printf("%s %d attempted, %d classified, %d failed, %d rejected\n\n", yellow("Enrichment:"),
			res.Enrichment.Attempted, res.Enrichment.Classified, res.Enrichment.Failed, res.Enrichment.Rejected)
	}
	printReports(res.Reports)
	printReview(res.Review)
	if len(res.Violations) > 0 {
		fmt.Printf("%s\n", red(fmt.Sprintf("%d NMLS collisions queued for review", len(res.Violations))))
		for i, v := range res.Violations {
			if i == enforce.MaxExamples {
				break
			}
			fmt.Printf("  %s\n", v.Error())
		}
		fmt.Println()
	}
	if artifacts != nil {
		fmt.Printf("%s\n", yellow("Artifacts:"))
		fmt.Printf("  %s\n  %s\n", artifacts.Index, artifacts.Contacts)
		for _, p := range artifacts.CSV {
			fmt.Printf("  %s\n", p)
		}
		fmt.Println()
	}
	fmt.Printf("%s %d contacts\n", green("✓"), len(res.Contacts))
}
