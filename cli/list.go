package cli

// This file contains the list command for displaying previous test runs.

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/perfgo/dgtest/history"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	entries, err := history.LoadEntries(a.logger, ctx.String("runs-root"))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if ctx.Bool("failed") {
		var failed []history.Entry
		for _, entry := range entries {
			if entry.Run.ExitCode() != 0 {
				failed = append(failed, entry)
			}
		}
		entries = failed
	}

	if len(entries) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	renderRuns(os.Stdout, entries, limit)

	fmt.Println("\nView a run: dgtest view <ID|INDEX>")
	return nil
}

// renderRuns writes a table of the entries, which are sorted newest first.
func renderRuns(w io.Writer, entries []history.Entry, limit int) {
	total := len(entries)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Test runs (%d total)", total))
	t.AppendHeader(table.Row{"Index", "ID", "Started", "Duration", "Tests", "Failed", "Status", "Commit", "Run dir"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Index", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
	})

	for i, entry := range entries {
		run := entry.Run

		tests, failed := 0, 0
		if run.Report != nil {
			tests = run.Report.Counts.Executed
			failed = len(run.Report.Failures())
		}

		status := "✓"
		if run.ExitCode() != 0 {
			status = "✗"
		}

		// Show short ID (first 10 chars cover the ULID timestamp)
		shortID := strings.ToLower(run.ID)
		if len(shortID) > 10 {
			shortID = shortID[:10]
		}

		commit := ""
		if run.Git != nil && run.Git.Commit != "" {
			commit = run.Git.Commit
			if len(commit) > 8 {
				commit = commit[:8]
			}
			if run.Git.Branch != "" {
				commit = fmt.Sprintf("%s (%s)", commit, run.Git.Branch)
			}
		}

		t.AppendRow(table.Row{
			-i,
			shortID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond),
			tests,
			failed,
			status,
			commit,
			entry.FullPath,
		})
	}

	t.Render()
}
