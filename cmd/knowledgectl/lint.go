package main

import (
	"fmt"
	"io"
	"sort"

	"tokinarc-sales-be/pkg/knowledge"

	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Parse both tiers and report corruption",
	Long: `Parse knowledge_core.md and knowledge_delta.md, count entries per tag
and fail when either tier is corrupted.

Example:
  knowledgectl lint --dir ./knowledge`,
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	store := openStore(cfg, newLogger(cfg))
	out := cmd.OutOrStdout()

	tiers := store.Load(cmd.Context())
	printTier(out, "core", store.CorePath(), tiers.Core, tiers.CoreErr)
	printTier(out, "delta", store.DeltaPath(), tiers.Delta, tiers.DeltaErr)

	if err := tiers.Err(); err != nil {
		return err
	}
	okStyle.Fprintln(out, "OK")
	return nil
}

func printTier(out io.Writer, name, path string, doc *knowledge.Document, err error) {
	headStyle.Fprintf(out, "%s (%s)\n", name, path)
	if err != nil {
		errStyle.Fprintf(out, "  corrupted: %v\n", err)
		return
	}
	if doc == nil {
		warnStyle.Fprintln(out, "  missing")
		return
	}

	counts := doc.CountByTag()
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, string(tag))
	}
	sort.Strings(tags)

	fmt.Fprintf(out, "  entries: %d\n", len(doc.Entries))
	for _, tag := range tags {
		fmt.Fprintf(out, "  %-9s %d\n", tag, counts[knowledge.Tag(tag)])
	}
}
