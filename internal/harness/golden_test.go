package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGoldenTraces pins the canonical notification stream of selected
// scenarios. Any change to event payloads, sequencing, or call-token
// assignment shows up as a golden diff.
func TestGoldenTraces(t *testing.T) {
	for _, name := range []string{"payday_cycle", "escape_hatch"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			RunWithGolden(t, s)
		})
	}
}
