package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve the top-k knowledge chunks for a query",
	Long: `Score both tiers against a query exactly as the chat pipeline does.

Example:
  knowledgectl search "chụp khí 350A" -k 3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var searchK int

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 6, "Maximum number of chunks")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	store := openStore(cfg, newLogger(cfg))
	out := cmd.OutOrStdout()
	query := strings.Join(args, " ")

	chunks, err := store.Retrieve(cmd.Context(), query, searchK)
	if err != nil {
		warnStyle.Fprintf(out, "warning: %v\n", err)
	}
	if len(chunks) == 0 {
		fmt.Fprintln(out, "no matching knowledge")
		return nil
	}

	for i, c := range chunks {
		headStyle.Fprintf(out, "%d. [%s] score=%.2f\n", i+1, strings.ToUpper(string(c.Tier)), c.Score)
		fmt.Fprintf(out, "   %s\n", c.Entry.String())
	}
	return nil
}
