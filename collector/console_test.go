package collector

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perfgo/dgtest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Render(t *testing.T) {
	dir := t.TempDir()

	failOut := filepath.Join(dir, "t2", "output.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(failOut), 0755))
	require.NoError(t, os.WriteFile(failOut, []byte("a\nb\nc\nd\ne\nf\n"), 0644))

	diffOut := filepath.Join(dir, "t3", "refdiff.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(diffOut), 0755))
	require.NoError(t, os.WriteFile(diffOut, []byte("-expected\n+actual\n"), 0644))

	report := Collect([]model.ExecutionResult{
		{Unit: model.TestUnit{Name: "t1"}, DurationMS: 12.4, OutputPath: filepath.Join(dir, "t1", "output.log")},
		{Unit: model.TestUnit{Name: "t2"}, DurationMS: 3, ExitCode: 1, OutputPath: failOut},
		{Unit: model.TestUnit{Name: "t3"}, DurationMS: 5, DiffExitCode: intPtr(1), DiffPath: diffOut},
	}, model.Counts{Selected: 3, Blocked: 2})

	var buf bytes.Buffer
	NewConsole(&buf, ConsoleOptions{ExcerptLines: 2, BaseDir: dir}).Render(report)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", RuleWidth)+"\n"))
	assert.Contains(t, out, "FAIL (1)")
	assert.Contains(t, out, filepath.Join("t2", "output.log"))
	assert.Contains(t, out, filepath.Join("t3", "refdiff.log"))
	assert.Contains(t, out, "FAILURE: 3 executed, 1 passed, 2 failed")
	assert.Contains(t, out, "2 tests blocked by filters")
	assert.NotContains(t, out, "\x1b[")

	assert.Contains(t, out, "---- t2: execution-failure")
	assert.Contains(t, out, "a\nb\n[... 2 lines skipped ...]\ne\nf\n")
	assert.Contains(t, out, "---- t3: reference-mismatch")
	assert.Contains(t, out, "-expected\n+actual\n")
	assert.NotContains(t, out, "---- t1")
}

func TestConsole_RenderShortExcerpt(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "t1", "output.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0755))
	require.NoError(t, os.WriteFile(out, []byte("1\n2\n3\n4\n5\n"), 0644))

	report := Collect([]model.ExecutionResult{
		{Unit: model.TestUnit{Name: "t1"}, ExitCode: 2, OutputPath: out},
	}, model.Counts{Selected: 1})

	var buf bytes.Buffer
	NewConsole(&buf, ConsoleOptions{ExcerptLines: 3, BaseDir: dir}).Render(report)

	assert.Contains(t, buf.String(), "\n1\n2\n3\n4\n5\n")
	assert.NotContains(t, buf.String(), "lines skipped")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n3\n"))
}

func TestConsole_RenderEmpty(t *testing.T) {
	tests := []struct {
		name        string
		counts      model.Counts
		wantWarning bool
	}{
		{name: "nothing to run", counts: model.Counts{}},
		{name: "all blocked", counts: model.Counts{Blocked: 4}, wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewConsole(&buf, ConsoleOptions{ExcerptLines: 5}).Render(Collect(nil, tt.counts))
			out := buf.String()

			assert.Contains(t, out, "SUCCESS: 0 executed, 0 passed, 0 failed")
			assert.Equal(t, tt.wantWarning, strings.Contains(out, "WARNING: all 4 tests were blocked by filters"))
		})
	}
}

func TestConsole_RenderColor(t *testing.T) {
	report := Collect([]model.ExecutionResult{
		{Unit: model.TestUnit{Name: "t1"}},
	}, model.Counts{Selected: 1})

	var buf bytes.Buffer
	NewConsole(&buf, ConsoleOptions{Color: true}).Render(report)

	assert.Contains(t, buf.String(), "\x1b[32m")
}

func TestColorEnabled(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, ColorEnabled(f, false))
	assert.False(t, ColorEnabled(f, true))
}
