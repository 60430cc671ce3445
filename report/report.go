// Package report serializes run reports as JUnit XML.
package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/perfgo/dgtest/model"
)

// FileName is the name of the report inside the run directory.
const FileName = "dgtest_results_junitformat.xml"

// SuitesName names the top level element.
const SuitesName = "dgtest"

// TestSuites is the JUnit document root.
type TestSuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Time     string      `xml:"time,attr"`
	Suites   []TestSuite `xml:"testsuite"`
}

// TestSuite groups the test cases of one package.
type TestSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Time      string     `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

// TestCase is one executed unit.
type TestCase struct {
	Classname string   `xml:"classname,attr"`
	Name      string   `xml:"name,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
}

// Failure references the artifact explaining a failed unit.
type Failure struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

// Build converts a run report into a JUnit document. Packages are sorted by
// name; test cases keep the order of the report.
func Build(report *model.RunReport) *TestSuites {
	byPackage := map[string]*TestSuite{}
	durations := map[string]float64{}
	var total float64

	doc := &TestSuites{Name: SuitesName}
	for _, res := range report.Results {
		suite, ok := byPackage[res.Unit.Package]
		if !ok {
			suite = &TestSuite{Name: res.Unit.Package}
			byPackage[res.Unit.Package] = suite
		}

		tc := TestCase{
			Classname: res.Unit.Package,
			Name:      res.Unit.Name,
			Time:      seconds(res.DurationMS),
		}
		if !res.Passed() {
			tc.Failure = failure(res)
			suite.Failures++
			doc.Failures++
		}

		suite.Tests++
		suite.TestCases = append(suite.TestCases, tc)
		durations[res.Unit.Package] += res.DurationMS
		total += res.DurationMS
		doc.Tests++
	}

	names := make([]string, 0, len(byPackage))
	for name := range byPackage {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		suite := byPackage[name]
		suite.Time = seconds(durations[name])
		doc.Suites = append(doc.Suites, *suite)
	}
	doc.Time = seconds(total)

	return doc
}

func failure(res model.ExecutionResult) *Failure {
	path := res.TroublePath()
	switch res.Status() {
	case model.StatusExecutionFailure:
		return &Failure{
			Type:    string(model.StatusExecutionFailure),
			Message: fmt.Sprintf("exit code %d", res.ExitCode),
			Content: path,
		}
	default:
		return &Failure{
			Type:    string(model.StatusReferenceMismatch),
			Message: fmt.Sprintf("reference diff exit code %d", *res.DiffExitCode),
			Content: path,
		}
	}
}

func seconds(ms float64) string {
	return fmt.Sprintf("%.3f", ms/1000)
}

// Marshal renders the report as an indented XML document.
func Marshal(report *model.RunReport) ([]byte, error) {
	data, err := xml.MarshalIndent(Build(report), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	return append(out, '\n'), nil
}

// Write stores the report as FileName in runDir and returns its path.
func Write(runDir string, report *model.RunReport) (string, error) {
	data, err := Marshal(report)
	if err != nil {
		return "", err
	}

	path := filepath.Join(runDir, FileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
