// Package history stores run metadata next to the run artifacts and finds
// previous runs again.
package history

// This file contains shared history utilities for saving, loading and
// resolving run metadata.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/perfgo/dgtest/model"
	"github.com/rs/zerolog"
)

// MetadataFile is the name of the run metadata inside a run directory.
const MetadataFile = "run.json"

// DefaultRoot is the directory below which run directories are created.
const DefaultRoot = ".dgtest/runs"

// ErrNoRuns is returned when no run metadata was found.
var ErrNoRuns = errors.New("no runs found")

// Entry is a run found below the runs root.
type Entry struct {
	Run      model.Run
	FullPath string
}

// NewID returns a new run ID.
func NewID(ts time.Time) string {
	return ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String()
}

// DirName returns the default run directory name: <timestamp>-<short id>.
func DirName(ts time.Time, id string) string {
	shortID := strings.ToLower(id)
	if len(shortID) > 8 {
		shortID = shortID[len(shortID)-8:]
	}
	return fmt.Sprintf("%s-%s", ts.Format("20060102-150405"), shortID)
}

// Save writes the run metadata into the run directory.
func Save(run *model.Run) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	path := filepath.Join(run.RunDir, MetadataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

// Load reads the run metadata stored in dir.
func Load(dir string) (model.Run, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return model.Run{}, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// LoadEntries loads all runs below root, newest first. Unit directories of
// a run are not descended into.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		// Runs live directly below root; never descend into unit directories.
		if _, err := os.Stat(filepath.Join(path, MetadataFile)); err != nil {
			if path == root {
				return nil
			}
			return filepath.SkipDir
		}

		run, err := Load(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to parse run.json")
			return filepath.SkipDir
		}

		entries = append(entries, Entry{Run: run, FullPath: path})
		return filepath.SkipDir
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoRuns, root)
		}
		return nil, fmt.Errorf("failed to walk runs directory: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Run.Timestamp.After(entries[j].Run.Timestamp)
	})
	return entries, nil
}

// Find resolves arg against entries sorted newest first. arg is either an
// index counting back from the latest run (0 is the latest, -1 the one
// before) or a case-insensitive prefix of a run ID.
func Find(entries []Entry, arg string) (*Entry, error) {
	if len(entries) == 0 {
		return nil, ErrNoRuns
	}

	if parsed, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if parsed > 0 {
			return nil, fmt.Errorf("invalid index: %s (use 0 for last, -1 for second-to-last, etc.)", arg)
		}
		index := int(-parsed)
		if index >= len(entries) {
			return nil, fmt.Errorf("index %s out of range (only %d runs)", arg, len(entries))
		}
		return &entries[index], nil
	}

	prefix := strings.ToLower(arg)
	for i := range entries {
		if strings.HasPrefix(strings.ToLower(entries[i].Run.ID), prefix) {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("no run found matching ID: %s", arg)
}
