package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"tokinarc-sales-be/pkg/events"
	pktNats "tokinarc-sales-be/pkg/nats"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail knowledge and turn events from NATS",
	Long: `Subscribe to the sales event stream and print events as they arrive.

Example:
  knowledgectl watch --all`,
	RunE: runWatch,
}

var watchAll bool

func init() {
	watchCmd.Flags().BoolVar(&watchAll, "all", false, "Include TURN_COMPLETED events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	out := cmd.OutOrStdout()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, newLogger(cfg))
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventType := events.TypeKnowledgeAppended
	if watchAll {
		eventType = ""
	}
	err = sub.Subscribe(ctx, eventType, "", func(_ context.Context, ev events.Event) error {
		fmt.Fprintln(out, formatEvent(ev))
		return nil
	})
	if err != nil {
		return err
	}

	headStyle.Fprintf(out, "watching %s (Ctrl+C to stop)\n", cfg.App.NatsURL)
	<-ctx.Done()
	return nil
}

func formatEvent(ev events.Event) string {
	payload := ev.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return fmt.Sprintf("%s %-18s %s", ev.Timestamp().Format("15:04:05"), ev.EventType(), strings.Join(parts, " "))
}
