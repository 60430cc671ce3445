package registry

// This file contains candidate discovery: turning the registry into the raw
// set of TestUnits before filtering.

import (
	"path/filepath"
	"slices"

	"github.com/perfgo/dgtest/model"
)

// Candidates returns every test of every enabled package together with the
// counts of what was skipped on the way. Duplicate names are kept so that
// the planner can reject them.
func (r *Registry) Candidates() ([]model.TestUnit, model.Counts, error) {
	var counts model.Counts

	isTest, err := r.TestPredicate()
	if err != nil {
		return nil, counts, err
	}

	var units []model.TestUnit
	for _, pkg := range r.Packages {
		for _, name := range pkg.Runnables {
			// A reference log makes a runnable a test whatever its name.
			if !isTest(name) && !slices.Contains(pkg.RefLogs, name) {
				if pkg.Enabled {
					counts.Candidates++
					counts.NotTests++
				}
				continue
			}
			if !pkg.Enabled {
				counts.Disabled++
				continue
			}
			counts.Candidates++
			units = append(units, pkg.unit(name))
		}
	}

	return units, counts, nil
}

func (p Package) unit(name string) model.TestUnit {
	unit := model.TestUnit{
		Name:    name,
		Package: p.Name,
		Command: filepath.Join(p.BinDir, name),
	}
	if slices.Contains(p.RefLogs, name) {
		unit.RefLog = filepath.Join(p.RefLogDir, name+".log")
	}
	switch {
	case slices.Contains(p.Instrumentable, name):
		yes := true
		unit.Instrumentable = &yes
	case slices.Contains(p.NotInstrumentable, name):
		no := false
		unit.Instrumentable = &no
	}
	return unit
}
