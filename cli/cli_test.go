package cli

import (
	"testing"

	"github.com/perfgo/dgtest/testrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// captureRunOptions parses args with the run actions replaced by one that
// records the resulting options.
func captureRunOptions(t *testing.T, args ...string) (testrun.Options, error) {
	t.Helper()
	app := New()

	var opts testrun.Options
	capture := func(ctx *cli.Context) error {
		opts = app.runOptions(ctx)
		return nil
	}
	app.cli.Action = capture
	for _, cmd := range app.cli.Commands {
		if cmd.Name == "run" {
			cmd.Action = capture
		}
	}

	err := app.Run(append([]string{AppName}, args...))
	return opts, err
}

func TestNew_RunFlagsRegisteredOnce(t *testing.T) {
	app := New()

	defined := map[string]bool{}
	for _, f := range app.cli.Flags {
		for _, name := range f.Names() {
			defined[name] = true
		}
	}
	require.True(t, defined["jobs"])

	for _, cmd := range app.cli.Commands {
		for _, f := range cmd.Flags {
			for _, name := range f.Names() {
				assert.False(t, defined[name], "flag %q of command %s shadows a global flag", name, cmd.Name)
			}
		}
	}
}

func TestRunOptions(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantJobs    int
		wantFilters []string
		wantJUnit   bool
	}{
		{
			name:      "options before run command",
			args:      []string{"-j", "4", "run"},
			wantJobs:  4,
			wantJUnit: true,
		},
		{
			name:      "default action",
			args:      []string{"--jobs", "3", "--junit=false"},
			wantJobs:  3,
			wantJUnit: false,
		},
		{
			name:        "repeated filters",
			args:        []string{"-j", "1", "-f", "t1*", "--filter", "!t2", "run"},
			wantJobs:    1,
			wantFilters: []string{"t1*", "!t2"},
			wantJUnit:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := captureRunOptions(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantJobs, opts.Concurrency)
			assert.ElementsMatch(t, tt.wantFilters, opts.Filters)
			assert.Equal(t, tt.wantJUnit, opts.JUnit)
		})
	}
}
