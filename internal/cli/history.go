package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [task_id]",
	Short: "List recent executions, or show one execution in detail",
	Args:  cobra.MaximumNArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", storage.DefaultListLimit, "number of executions to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewExecutionRepo(db)

	if len(args) == 1 {
		exec, err := repo.Get(ctx, args[0])
		if errors.Is(err, storage.ErrExecutionNotFound) {
			fmt.Printf("No execution for task %s\n", args[0])
			os.Exit(1)
		}
		if err != nil {
			slog.Error("Failed to get execution", "error", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(exec)
		return
	}

	execs, err := repo.ListRecent(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to list executions", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	printHistory(w, execs)
	_ = w.Flush()
}

func printHistory(w *tabwriter.Writer, execs []*storage.Execution) {
	_, _ = fmt.Fprintln(w, "TASK\tKIND\tRESULT\tBACKEND\tCHAIN\tATTEMPTS\tDURATION\tSTARTED")
	for _, e := range execs {
		result := "ok"
		if !e.Success {
			result = "failed"
		}
		backend := e.WinningBackend
		if backend == "" {
			backend = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.TaskID,
			e.Kind,
			result,
			backend,
			strings.Join(e.FallbackChain, ">"),
			e.TotalAttempts,
			e.Duration().Round(time.Millisecond),
			e.StartedAt.Local().Format(time.RFC3339),
		)
	}
}
