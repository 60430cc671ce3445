package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/perfgo/dgtest/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id := NewID(ts)
	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(ts), parsed.Time())
	assert.NotEqual(t, id, NewID(ts))
}

func TestDirName(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "20240501-123045-qrstvwxy", DirName(ts, "01HWABCDEFGHJKMNPQRSTVWXY"))
	assert.Equal(t, "20240501-123045-abc", DirName(ts, "ABC"))
}

func saveRun(t *testing.T, root, name, id string, ts time.Time) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "unit"), 0755))
	require.NoError(t, Save(&model.Run{
		ID:        id,
		Timestamp: ts,
		RunDir:    dir,
		Report:    &model.RunReport{Success: true},
	}))
	return dir
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	run := &model.Run{
		ID:        "01HWTEST",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Args:      []string{"dgtest", "run"},
		RunDir:    dir,
		Git:       &model.Git{Commit: "abc", Branch: "main"},
		Options:   model.RunOptions{Registry: "registry.yaml", Concurrency: 4, Filters: []string{"!slow*"}},
		Report: &model.RunReport{
			Results: []model.ExecutionResult{{Unit: model.TestUnit{Name: "t1", Package: "p"}, ExitCode: 1}},
			Counts:  model.Counts{Selected: 1, Executed: 1},
		},
	}
	require.NoError(t, Save(run))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, *run, loaded)
	assert.Equal(t, 1, loaded.ExitCode())
}

func TestLoadEntries(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	saveRun(t, root, "old", "01AAAA", base)
	saveRun(t, root, "new", "01CCCC", base.Add(2*time.Hour))
	saveRun(t, root, "mid", "01BBBB", base.Add(time.Hour))

	broken := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(broken, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, MetadataFile), []byte("{"), 0644))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "01CCCC", entries[0].Run.ID)
	assert.Equal(t, "01BBBB", entries[1].Run.ID)
	assert.Equal(t, "01AAAA", entries[2].Run.ID)
	assert.Equal(t, filepath.Join(root, "new"), entries[0].FullPath)
}

func TestLoadEntriesOnlyDirectChildren(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	saveRun(t, root, "done", "01AAAA", base)
	// An aborted run without metadata whose unit directory holds a stray run.json.
	saveRun(t, filepath.Join(root, "aborted"), "unit", "01BBBB", base.Add(time.Hour))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01AAAA", entries[0].Run.ID)
}

func TestLoadEntriesMissingRoot(t *testing.T) {
	_, err := LoadEntries(zerolog.Nop(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestFind(t *testing.T) {
	entries := []Entry{
		{Run: model.Run{ID: "01CCCC"}},
		{Run: model.Run{ID: "01BBBB"}},
		{Run: model.Run{ID: "01AAAA"}},
	}

	tests := []struct {
		name    string
		arg     string
		wantID  string
		wantErr string
	}{
		{name: "latest", arg: "0", wantID: "01CCCC"},
		{name: "previous", arg: "-1", wantID: "01BBBB"},
		{name: "oldest", arg: "-2", wantID: "01AAAA"},
		{name: "out of range", arg: "-3", wantErr: "out of range"},
		{name: "positive index", arg: "1", wantErr: "invalid index"},
		{name: "id prefix", arg: "01bb", wantID: "01BBBB"},
		{name: "unknown id", arg: "zz", wantErr: "no run found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := Find(entries, tt.arg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, entry.Run.ID)
		})
	}

	_, err := Find(nil, "0")
	assert.ErrorIs(t, err, ErrNoRuns)
}
