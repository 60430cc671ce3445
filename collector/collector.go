// Package collector aggregates the results of a run and renders them for
// the console.
package collector

import (
	"sort"

	"github.com/perfgo/dgtest/model"
)

// Collect builds the report of a finished batch. Results are sorted by unit
// name and counts.Executed is set from the number of results.
func Collect(results []model.ExecutionResult, counts model.Counts) *model.RunReport {
	sorted := make([]model.ExecutionResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Unit.Name < sorted[j].Unit.Name
	})

	success := true
	for _, res := range sorted {
		if !res.Passed() {
			success = false
			break
		}
	}

	counts.Executed = len(sorted)
	return &model.RunReport{
		Results: sorted,
		Success: success,
		Counts:  counts,
	}
}

// Excerpt returns the k leading and the k trailing lines, or all lines for
// each part when there are fewer than k. The parts overlap when lines has
// fewer than 2k entries.
func Excerpt(lines []string, k int) (head, tail []string) {
	n := min(k, len(lines))
	if n <= 0 {
		return nil, nil
	}
	return lines[:n], lines[len(lines)-n:]
}
