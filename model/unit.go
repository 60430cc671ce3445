package model

// TestUnit identifies one test to run.
type TestUnit struct {
	// Name of the test, unique within a run
	Name string `json:"name"`
	// Package owning the test
	Package string `json:"package"`
	// Absolute path of the test executable
	Command string `json:"command"`
	// Reference log to diff the captured output against (optional)
	RefLog string `json:"reflog,omitempty"`
	// Whether the command accepts the coverage wrapper. Nil means undeclared,
	// in which case the executable signature decides.
	Instrumentable *bool `json:"instrumentable,omitempty"`
}

// HasRefLog reports whether the unit output is compared against a reference log.
func (u TestUnit) HasRefLog() bool {
	return u.RefLog != ""
}
