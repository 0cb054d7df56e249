package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/remediator/internal/control"
	"github.com/vietddude/remediator/internal/core/config"
	"github.com/vietddude/remediator/internal/core/domain"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [errors|corrections]",
	Short: "Show the most recent audit records",
	Args:  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{
		"errors",
		"corrections",
	},
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "number of records (default is audit.history_limit)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := mustLoad(cmd)
	if cfg.Audit.Backend == config.BackendMemory {
		slog.Warn("Memory audit backend keeps no history between processes")
	}

	ctx := context.Background()
	backend, err := control.OpenBackend(ctx, cfg, false, slog.Default())
	if err != nil {
		slog.Error("Failed to open audit backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = backend.Close()
	}()

	limit := historyLimit
	if !cmd.Flags().Changed("limit") {
		limit = backend.Store.DefaultLimit()
	}

	switch args[0] {
	case "errors":
		records, err := backend.Store.GetErrorHistory(ctx, limit)
		if err != nil {
			slog.Error("Failed to read error history", "error", err)
			os.Exit(1)
		}
		writeErrorHistory(os.Stdout, records)
	case "corrections":
		records, err := backend.Store.GetCorrectionHistory(ctx, limit)
		if err != nil {
			slog.Error("Failed to read correction history", "error", err)
			os.Exit(1)
		}
		writeCorrectionHistory(os.Stdout, records)
	}
}

func writeErrorHistory(out io.Writer, records []*domain.ErrorRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tCATEGORY\tSTATUS\tMESSAGE\tCREATED")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Kind, r.Category, r.Status, r.Message, r.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func writeCorrectionHistory(out io.Writer, records []*domain.CorrectionRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tERROR\tACTION\tSUCCESS\tVERIFICATION\tCREATED")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
			r.ID, r.ErrorID, r.Action, r.Success, r.Verification.Message, r.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
