package cli

// This file contains the view command for displaying test results from history.

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/perfgo/dgtest/collector"
	"github.com/perfgo/dgtest/history"
	"github.com/perfgo/dgtest/model"
	"github.com/urfave/cli/v2"
)

// parseViewArgs splits the arguments into the run selector and an optional
// test name.
func parseViewArgs(in []string) (idArg string, testName string) {
	if len(in) > 0 && in[0] == "--" {
		in = in[1:]
	}
	if len(in) == 0 {
		return "0", ""
	}
	if len(in) == 1 {
		return in[0], ""
	}
	return in[0], in[1]
}

func (a *App) view(ctx *cli.Context) error {
	arg, testName := parseViewArgs(ctx.Args().Slice())

	entries, err := history.LoadEntries(a.logger, ctx.String("runs-root"))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	entry, err := history.Find(entries, arg)
	if err != nil {
		return err
	}
	if entry.Run.Report == nil {
		return fmt.Errorf("run %s has no results", entry.Run.ID)
	}

	if testName != "" {
		return viewTest(os.Stdout, entry.Run.Report, testName)
	}

	fmt.Printf("Run %s started %s in %s\n", entry.Run.ID, entry.Run.Timestamp.Format("2006-01-02 15:04:05"), entry.FullPath)
	collector.NewConsole(os.Stdout, collector.ConsoleOptions{
		Color:        collector.ColorEnabled(os.Stdout, ctx.Bool("no-color")),
		ExcerptLines: 0,
		BaseDir:      entry.Run.RunDir,
	}).Render(entry.Run.Report)

	if code := entry.Run.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

// viewTest prints the captured output of a test and, when the reference
// comparison failed, its diff.
func viewTest(w io.Writer, report *model.RunReport, name string) error {
	var result *model.ExecutionResult
	for i := range report.Results {
		if report.Results[i].Unit.Name == name {
			result = &report.Results[i]
			break
		}
	}
	if result == nil {
		return fmt.Errorf("no test %q in run", name)
	}

	fmt.Fprintf(w, "==> %s (%s) exit=%d time=%sms\n",
		result.Unit.Name, result.Status(), result.ExitCode, strconv.FormatFloat(result.DurationMS, 'f', 0, 64))
	if err := copyFile(w, result.OutputPath); err != nil {
		return err
	}

	if !result.DiffOK() && result.DiffPath != "" {
		fmt.Fprintf(w, "==> %s\n", result.DiffPath)
		if err := copyFile(w, result.DiffPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}
