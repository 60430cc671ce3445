package runner

// This file contains the whitespace-insensitive comparison of captured
// output against a reference log.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/perfgo/dgtest/model"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
)

// Exit codes of the comparison, as reported by diff(1).
const (
	DiffClean    = 0
	DiffMismatch = 1
	DiffTrouble  = 2
)

const (
	contextLines  = 3
	sideBySideCol = 62
)

// Comparison is the line diff of a reference against an actual output.
// Lines are matched with all whitespace removed.
type Comparison struct {
	ref, out []string
	matcher  *difflib.SequenceMatcher
}

// Compare diffs the reference lines against the output lines.
func Compare(ref, out []string) *Comparison {
	return &Comparison{
		ref:     ref,
		out:     out,
		matcher: difflib.NewMatcherWithJunk(normalize(ref), normalize(out), false, nil),
	}
}

// Clean reports whether both sides are equal up to whitespace.
func (c *Comparison) Clean() bool {
	for _, op := range c.matcher.GetOpCodes() {
		if op.Tag != 'e' {
			return false
		}
	}
	return true
}

// ExitCode returns DiffClean or DiffMismatch.
func (c *Comparison) ExitCode() int {
	if c.Clean() {
		return DiffClean
	}
	return DiffMismatch
}

// WriteUnified writes the differences in unified format, showing the
// original lines. Nothing is written for a clean comparison.
func (c *Comparison) WriteUnified(w io.Writer, refName, outName string) error {
	if c.Clean() {
		return nil
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "--- %s\n+++ %s\n", refName, outName)
	for _, group := range c.matcher.GetGroupedOpCodes(contextLines) {
		first, last := group[0], group[len(group)-1]
		fmt.Fprintf(bw, "@@ -%s +%s @@\n", formatRange(first.I1, last.I2), formatRange(first.J1, last.J2))
		for _, op := range group {
			switch op.Tag {
			case 'e':
				writePrefixed(bw, " ", c.ref[op.I1:op.I2])
			case 'r':
				writePrefixed(bw, "-", c.ref[op.I1:op.I2])
				writePrefixed(bw, "+", c.out[op.J1:op.J2])
			case 'd':
				writePrefixed(bw, "-", c.ref[op.I1:op.I2])
			case 'i':
				writePrefixed(bw, "+", c.out[op.J1:op.J2])
			}
		}
	}
	return bw.Flush()
}

// WriteSideBySide writes both sides in two columns, marking changed lines
// with "|", removed lines with "<" and added lines with ">".
func (c *Comparison) WriteSideBySide(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, op := range c.matcher.GetOpCodes() {
		ref, out := c.ref[op.I1:op.I2], c.out[op.J1:op.J2]
		switch op.Tag {
		case 'e':
			for i := range ref {
				writeColumns(bw, ref[i], ' ', out[i])
			}
		case 'r':
			for i := 0; i < max(len(ref), len(out)); i++ {
				switch {
				case i < len(ref) && i < len(out):
					writeColumns(bw, ref[i], '|', out[i])
				case i < len(ref):
					writeColumns(bw, ref[i], '<', "")
				default:
					writeColumns(bw, "", '>', out[i])
				}
			}
		case 'd':
			for _, line := range ref {
				writeColumns(bw, line, '<', "")
			}
		case 'i':
			for _, line := range out {
				writeColumns(bw, "", '>', line)
			}
		}
	}
	return bw.Flush()
}

func writePrefixed(w io.Writer, prefix string, lines []string) {
	for _, line := range lines {
		fmt.Fprintf(w, "%s%s\n", prefix, line)
	}
}

func writeColumns(w io.Writer, left string, mark rune, right string) {
	left = strings.ReplaceAll(left, "\t", "    ")
	if len(left) > sideBySideCol {
		left = left[:sideBySideCol]
	}
	line := fmt.Sprintf("%-*s %c %s", sideBySideCol, left, mark, right)
	fmt.Fprintln(w, strings.TrimRight(line, " "))
}

// formatRange renders a line range the way unified diffs do.
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

func normalize(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.Join(strings.Fields(line), "")
	}
	return out
}

// ReadLines reads a file into lines without their terminators.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// compareReference diffs the captured output of the unit against its
// reference log and records the outcome in result. The primary diff decides
// the diff exit code; a failure to write the side-by-side view is only logged.
func (r *Runner) compareReference(logger zerolog.Logger, dir string, result *model.ExecutionResult) {
	code := DiffTrouble
	result.DiffExitCode = &code
	result.DiffPath = filepath.Join(dir, DiffFile)

	defer func() {
		r.writeValue(logger, dir, DiffCodeFile, fmt.Sprintf("%d\n", code))
	}()

	diffFile, err := os.Create(result.DiffPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create diff file")
		return
	}
	defer diffFile.Close()

	ref, err := ReadLines(result.Unit.RefLog)
	if err != nil {
		logger.Warn().Err(err).Str("reflog", result.Unit.RefLog).Msg("Failed to read reference log")
		fmt.Fprintf(diffFile, "dgtest: failed to read reference log: %v\n", err)
		return
	}
	out, err := ReadLines(result.OutputPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read captured output")
		fmt.Fprintf(diffFile, "dgtest: failed to read captured output: %v\n", err)
		return
	}

	cmp := Compare(ref, out)
	if err := cmp.WriteUnified(diffFile, result.Unit.RefLog, result.OutputPath); err != nil {
		logger.Warn().Err(err).Msg("Failed to write diff")
	}
	code = cmp.ExitCode()
	if code == DiffClean {
		return
	}

	sbsPath := filepath.Join(dir, SideBySideFile)
	sbs, err := os.Create(sbsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create side-by-side diff")
		return
	}
	defer sbs.Close()
	if err := cmp.WriteSideBySide(sbs); err != nil {
		logger.Warn().Err(err).Msg("Failed to write side-by-side diff")
		return
	}
	result.SideBySidePath = sbsPath
}
