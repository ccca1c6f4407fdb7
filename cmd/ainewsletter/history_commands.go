package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"AINewsletter/internal/dedup"
	"AINewsletter/internal/history"
	"AINewsletter/internal/infrastructure/storage"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the sent-article history",
	}
	cmd.AddCommand(newHistoryStatsCommand(ctx))
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryCheckCommand(ctx))
	cmd.AddCommand(newHistoryArchiveCommand(ctx))
	return cmd
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the history file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := ctx.historyRepository()
			if err != nil {
				return err
			}
			store, loadErr := repo.Load()
			if loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %v\n", loadErr)
			}

			updated := "never"
			if t, ok := store.Updated(); ok {
				updated = t.Format(time.RFC3339)
			}
			oldest, newest := dateRange(store.Articles)
			expired := countExpired(store.Articles, time.Now())

			rows := [][]string{
				{"File", repo.Path()},
				{"Articles", strconv.Itoa(len(store.Articles))},
				{"Last updated", updated},
				{"Oldest sent", oldest},
				{"Newest sent", newest},
				{"Past retention", strconv.Itoa(expired)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, nil))

			perCategory := countByCategory(store.Articles)
			if len(perCategory) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Category", "Articles"}, perCategory, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the most recently delivered articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := ctx.historyRepository()
			if err != nil {
				return err
			}
			store, loadErr := repo.Load()
			if loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %v\n", loadErr)
			}

			records := store.Articles
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for i := len(records) - 1; i >= 0; i-- {
				rec := records[i]
				rows = append(rows, []string{rec.SentDate, rec.CategoryID, ellipsize(rec.Title, 60), rec.URL})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Sent", "Category", "Title", "URL"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show (0 for all)")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: fmt.Sprintf("Drop records older than %d days and rewrite the file", history.RetentionDays),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := ctx.historyRepository()
			if err != nil {
				return err
			}
			store, err := repo.Load()
			if err != nil {
				if errors.Is(err, history.ErrCorrupt) || errors.Is(err, history.ErrSchemaVersion) {
					return fmt.Errorf("refusing to rewrite unreadable history: %w", err)
				}
				return err
			}

			res, err := repo.Save(store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d records, kept %d\n", res.Pruned, res.Kept)
			return nil
		},
	}
}

func newHistoryCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url> <title>",
		Short: "Report whether an article would be treated as already sent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, err := ctx.historyRepository()
			if err != nil {
				return err
			}
			store, loadErr := repo.Load()
			if loadErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %v\n", loadErr)
			}

			url, title := args[0], args[1]
			verdict := dedup.NewEngine(store).Check(url, title)

			rows := [][]string{
				{"Normalized URL", dedup.NormalizeURL(url)},
				{"Duplicate", yesNo(verdict.Duplicate)},
			}
			if verdict.Duplicate {
				rows = append(rows,
					[]string{"Matched by", string(verdict.Reason)},
					[]string{"Similarity", strconv.FormatFloat(verdict.Score, 'f', 3, 64)},
					[]string{"Sent title", verdict.Record.Title},
					[]string{"Sent URL", verdict.Record.URL},
					[]string{"Sent date", verdict.Record.SentDate},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newHistoryArchiveCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Show recent deliveries recorded in the SQLite archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := ctx.historyRepository()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Archive.Path) == "" {
				return fmt.Errorf("archive.path is not configured")
			}

			archive, err := storage.OpenSQLiteArchive(cmd.Context(), cfg.Archive.Path)
			if err != nil {
				return err
			}
			defer archive.Close()

			deliveries, err := archive.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(deliveries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty")
				return nil
			}

			rows := make([][]string, 0, len(deliveries))
			for _, d := range deliveries {
				rows = append(rows, []string{d.DeliveredAt.Format(time.RFC3339), shortRunID(d.RunID), d.CategoryID, ellipsize(d.Title, 60), d.URL})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Delivered", "Run", "Category", "Title", "URL"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of deliveries to show (0 for all)")
	return cmd
}

func dateRange(records []history.Record) (string, string) {
	oldest, newest := "-", "-"
	for _, rec := range records {
		if _, err := time.Parse(history.DateLayout, rec.SentDate); err != nil {
			continue
		}
		if oldest == "-" || rec.SentDate < oldest {
			oldest = rec.SentDate
		}
		if newest == "-" || rec.SentDate > newest {
			newest = rec.SentDate
		}
	}
	return oldest, newest
}

func countExpired(records []history.Record, now time.Time) int {
	probe := &history.Store{Articles: append([]history.Record(nil), records...)}
	return history.Prune(probe, now)
}

func countByCategory(records []history.Record) [][]string {
	counts := map[string]int{}
	for _, rec := range records {
		id := rec.CategoryID
		if id == "" {
			id = "(none)"
		}
		counts[id]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, strconv.Itoa(counts[id])})
	}
	return rows
}

func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
