package main

import (
	"tokinarc-sales-be/internal/config"
	"tokinarc-sales-be/internal/pkg/logger"
	"tokinarc-sales-be/pkg/knowledge"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfgKnowledgeDir string
	cfgCatalogPath  string
	cfgNatsURL      string
	cfgVerbose      bool
)

var (
	okStyle   = color.New(color.FgGreen)
	warnStyle = color.New(color.FgYellow)
	errStyle  = color.New(color.FgRed, color.Bold)
	headStyle = color.New(color.FgCyan, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "knowledgectl",
	Short: "Inspect and maintain the sales assistant knowledge tiers",
	Long: `knowledgectl works on the core and delta knowledge files directly.

It lints both tiers, runs keyword retrieval the way the chat pipeline
does, pushes candidate lines through the learning gate and tails the
knowledge events published on NATS.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgKnowledgeDir, "dir", "", "Knowledge directory (default: $KNOWLEDGE_DIR or ./knowledge)")
	rootCmd.PersistentFlags().StringVar(&cfgCatalogPath, "catalog", "", "Catalog file (default: $CATALOG_PATH)")
	rootCmd.PersistentFlags().StringVar(&cfgNatsURL, "nats-url", "", "NATS server URL (default: $NATS_URL)")
	rootCmd.PersistentFlags().BoolVarP(&cfgVerbose, "verbose", "v", false, "Log to stdout")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads the service config and applies flag overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if cfgKnowledgeDir != "" {
		cfg.Knowledge.Dir = cfgKnowledgeDir
	}
	if cfgCatalogPath != "" {
		cfg.Sales.CatalogPath = cfgCatalogPath
	}
	if cfgNatsURL != "" {
		cfg.App.NatsURL = cfgNatsURL
	}
	return cfg
}

func newLogger(cfg *config.Config) logger.ILogger {
	if cfgVerbose {
		return logger.NewZapLogger(cfg.App.LogFilePath, false)
	}
	return logger.NewNopLogger()
}

func openStore(cfg *config.Config, log logger.ILogger) *knowledge.Store {
	return knowledge.NewStore(knowledge.Config{
		Dir:      cfg.Knowledge.Dir,
		Enabled:  true,
		MinScore: cfg.Knowledge.MinScore,
		TopK:     cfg.Knowledge.TopK,
	}, knowledge.DefaultScorer(), log)
}
