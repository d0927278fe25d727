package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/msgpulse/internal/ir"
)

// GoldenDir holds golden transcripts relative to the test's package.
const GoldenDir = "testdata/golden"

// Snapshot is the golden form of a run.
type Snapshot struct {
	ScenarioName string     `json:"scenario_name"`
	Transcript   Transcript `json:"transcript"`
}

// MarshalSnapshot renders a run as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot{ScenarioName: name, Transcript: result.Transcript})
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
