package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/payhatch/payhatch/internal/event"
)

// snapshotMap flattens a scenario result into the canonical-JSON-safe form
// pinned by golden files: the scenario name plus every committed
// notification's canonical map, in sequence order.
func snapshotMap(name string, trace []event.Event) map[string]any {
	events := make([]any, len(trace))
	for i, e := range trace {
		events[i] = e.CanonicalMap()
	}
	return map[string]any{
		"scenario_name": name,
		"trace":         events,
	}
}

// RunWithGolden executes a scenario and compares its canonical trace
// against testdata/golden/{scenario.Name}.golden.
//
// The scenario's expectations and assertions must also hold; a failing
// scenario never reaches the golden comparison. Regenerate golden files
// with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) {
	t.Helper()

	res, err := Run(s)
	if err != nil {
		t.Fatalf("running scenario %s: %v", s.Name, err)
	}
	if !res.Pass {
		t.Fatalf("scenario %s failed: %v", s.Name, res.Errors)
	}

	data, err := event.MarshalCanonical(snapshotMap(s.Name, res.Trace))
	if err != nil {
		t.Fatalf("encoding trace for %s: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
}
