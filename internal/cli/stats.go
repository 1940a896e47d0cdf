package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	fmt.Printf("Server uptime: %.0fs\n\n", snap.UptimeSeconds)
	printOp("Turns", snap.Turn)
	printOp("LLM streaming", snap.LLMStream)
	printOp("Title generation", snap.LLMTitle)

	// Session storage runs in this process, not the server.
	local := localMetrics.Snapshot()
	fmt.Println("Local storage:")
	printOp("KV reads", local.KVRead)
	printOp("KV writes", local.KVWrite)
	return nil
}

func printOp(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("%s:\n", name)
	fmt.Printf("  count: %d  avg: %.1fms  min: %dms  max: %dms\n",
		op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalTokens != nil {
		fmt.Printf("  tokens streamed: %d\n", *op.TotalTokens)
	}
	fmt.Println()
}
