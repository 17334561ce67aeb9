package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dispatcher/internal/infra/redis"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the latest backend health snapshot stored in Redis",
	Run:   runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Redis.URL == "" {
		slog.Error("redis.url is not configured")
		os.Exit(1)
	}

	client, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := client.LoadStats(ctx)
	if err != nil {
		slog.Error("Failed to load stats", "error", err)
		os.Exit(1)
	}

	if snap.UpdatedAt.IsZero() {
		fmt.Println("No snapshot recorded yet")
		return
	}

	fmt.Printf("Snapshot taken %s\n\n", snap.UpdatedAt.Local().Format(time.RFC3339))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "BACKEND\tSUCCESSES\tFAILURES\tTOTAL\tSUCCESS RATE")
	for _, id := range snap.Backends() {
		st := snap.Stats[id]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f%%\n",
			id, st.Successes, st.Failures, st.TotalAttempts, st.SuccessRate()*100)
	}
	_ = w.Flush()
}
