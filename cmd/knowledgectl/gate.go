package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"tokinarc-sales-be/pkg/catalog"
	"tokinarc-sales-be/pkg/knowledge"

	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Run candidate lines through the learning gate",
	Long: `Validate candidate knowledge lines against the catalog and the given
turn context, then append the accepted ones to the delta tier.

Example:
  knowledgectl gate --candidates lines.md --context "cách điện 004002 dùng chụp khí gì"`,
	RunE: runGate,
}

var (
	gateCandidates string
	gateContext    string
	gateIntent     string
	gateAnchor     string
)

func init() {
	gateCmd.Flags().StringVar(&gateCandidates, "candidates", "", "File with one candidate line per row (- for stdin)")
	gateCmd.Flags().StringVar(&gateContext, "context", "", "User message the candidates were learned from")
	gateCmd.Flags().StringVar(&gateIntent, "intent", "", "Intent of the turn")
	gateCmd.Flags().StringVar(&gateAnchor, "anchor", "", "Anchor product of the turn")
	_ = gateCmd.MarkFlagRequired("candidates")
}

func runGate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log := newLogger(cfg)
	out := cmd.OutOrStdout()

	candidates, err := readCandidates(cmd, gateCandidates)
	if err != nil {
		return err
	}

	idx, meta, err := catalog.NewLoader(cfg.Sales.CatalogPath).Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	fmt.Fprintf(out, "catalog %s: %d records\n", meta.FileName, meta.Records)

	store := openStore(cfg, log)
	gate := knowledge.NewGate(store, cfg.Knowledge.MaxNewLines, log, nil)
	report, err := gate.ProposeAndGate(cmd.Context(), candidates, idx, knowledge.TurnContext{
		UserMessage: gateContext,
		Intent:      gateIntent,
		Anchor:      gateAnchor,
	})
	if err != nil {
		return err
	}

	for _, e := range report.Accepted {
		okStyle.Fprintf(out, "+ %s\n", e.String())
	}
	for _, r := range report.Rejected {
		errStyle.Fprintf(out, "x %s\n", r.Line)
		fmt.Fprintf(out, "    %s\n", r.Reason)
	}
	fmt.Fprintf(out, "appended %d, rejected %d\n", report.Appended, len(report.Rejected))
	return nil
}

func readCandidates(cmd *cobra.Command, path string) ([]knowledge.Candidate, error) {
	var scanner *bufio.Scanner
	if path == "-" {
		scanner = bufio.NewScanner(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open candidates: %w", err)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	}

	var out []knowledge.Candidate
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, ok := knowledge.ParseCandidate(line)
		if !ok {
			c = knowledge.Candidate{Line: line}
		}
		out = append(out, c)
	}
	return out, scanner.Err()
}
