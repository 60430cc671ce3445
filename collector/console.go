package collector

// This file contains the console rendering of a run report.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/perfgo/dgtest/model"
	"github.com/perfgo/dgtest/runner"
	"golang.org/x/term"
)

// RuleWidth is the width of the rules bracketing the result table.
const RuleWidth = 78

// DefaultExcerptLines is the number of head and tail lines shown per failure.
const DefaultExcerptLines = 10

// ConsoleOptions contains options for console rendering.
type ConsoleOptions struct {
	Color        bool   // Color pass/fail cells with ANSI sequences
	ExcerptLines int    // Head and tail lines per failing unit, 0 disables excerpts
	BaseDir      string // Trouble paths are shown relative to this directory
}

// Console renders run reports as text.
type Console struct {
	out  io.Writer
	opts ConsoleOptions
}

// NewConsole creates a console writing to out.
func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	return &Console{out: out, opts: opts}
}

// ColorEnabled reports whether f is a terminal and color was not disabled.
func ColorEnabled(f *os.File, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Render writes the result table, the summary and the failure excerpts.
func (c *Console) Render(report *model.RunReport) {
	rule := strings.Repeat("=", RuleWidth)

	fmt.Fprintln(c.out, rule)
	fmt.Fprintln(c.out, "Test results")
	fmt.Fprintln(c.out, rule)

	c.renderTable(report)

	fmt.Fprintln(c.out, rule)
	c.renderSummary(report)
	fmt.Fprintln(c.out, rule)

	c.renderExcerpts(report)
}

func (c *Console) renderTable(report *model.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Test", "Time [ms]", "Exit", "Diff", "Trouble"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Time [ms]", Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	var total float64
	failed := 0
	for _, res := range report.Results {
		total += res.DurationMS
		if !res.Passed() {
			failed++
		}
		t.AppendRow(table.Row{
			res.Unit.Name,
			fmt.Sprintf("%.0f", res.DurationMS),
			c.exitCell(res),
			c.diffCell(res),
			c.relative(res.TroublePath()),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", len(report.Results)),
		fmt.Sprintf("%.0f", total),
		"",
		"",
		fmt.Sprintf("%d failed", failed),
	})
	t.Render()
}

func (c *Console) exitCell(res model.ExecutionResult) string {
	if res.ExitOK() {
		return c.paint("OK", text.FgGreen)
	}
	return c.paint(fmt.Sprintf("FAIL (%d)", res.ExitCode), text.FgRed)
}

func (c *Console) diffCell(res model.ExecutionResult) string {
	switch {
	case res.DiffExitCode == nil:
		return "-"
	case res.DiffOK():
		return c.paint("OK", text.FgGreen)
	default:
		return c.paint("FAIL", text.FgRed)
	}
}

func (c *Console) paint(s string, color text.Color) string {
	if !c.opts.Color {
		return s
	}
	return text.Colors{color}.Sprint(s)
}

func (c *Console) relative(path string) string {
	if path == "" || c.opts.BaseDir == "" {
		return path
	}
	if rel, err := filepath.Rel(c.opts.BaseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func (c *Console) renderSummary(report *model.RunReport) {
	counts := report.Counts
	failed := len(report.Failures())

	status := c.paint("SUCCESS", text.FgGreen)
	if !report.Success {
		status = c.paint("FAILURE", text.FgRed)
	}
	fmt.Fprintf(c.out, "%s: %d executed, %d passed, %d failed\n",
		status, counts.Executed, counts.Executed-failed, failed)

	if counts.Selected > counts.Executed {
		fmt.Fprintf(c.out, "WARNING: %d selected tests were not run\n", counts.Selected-counts.Executed)
	}
	if counts.Blocked > 0 {
		if counts.Selected == 0 {
			fmt.Fprintf(c.out, "WARNING: all %d tests were blocked by filters\n", counts.Blocked)
		} else {
			fmt.Fprintf(c.out, "%d tests blocked by filters\n", counts.Blocked)
		}
	}
	if counts.Disabled > 0 {
		fmt.Fprintf(c.out, "%d tests skipped in disabled packages\n", counts.Disabled)
	}
}

func (c *Console) renderExcerpts(report *model.RunReport) {
	if c.opts.ExcerptLines <= 0 {
		return
	}

	for _, res := range report.Failures() {
		path := res.TroublePath()
		if path == "" {
			continue
		}

		fmt.Fprintf(c.out, "\n---- %s: %s (%s)\n", res.Unit.Name, res.Status(), c.relative(path))

		lines, err := runner.ReadLines(path)
		if err != nil {
			fmt.Fprintf(c.out, "unable to read %s: %v\n", path, err)
			continue
		}

		head, tail := Excerpt(lines, c.opts.ExcerptLines)
		for _, line := range head {
			fmt.Fprintln(c.out, line)
		}
		skipped := len(lines) - len(head) - len(tail)
		if skipped > 0 {
			fmt.Fprintf(c.out, "[... %d lines skipped ...]\n", skipped)
		} else {
			// Overlapping parts: only print what head has not shown yet.
			tail = lines[len(head):]
		}
		for _, line := range tail {
			fmt.Fprintln(c.out, line)
		}
	}
}
