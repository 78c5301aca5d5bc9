// Package harness provides scenario-driven conformance testing for the
// payroll system.
//
// Scenarios are YAML files describing a sequence of external calls against
// a freshly wired system, the faults they are expected to raise, and
// assertions over the resulting notification trace and final state.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - op: addEmployee
//	    args: { caller: "0xowner", account: "0xalice", accepted: [ant], yearly: 1200 }
//	flow:
//	  - op: payday
//	    args: { caller: "0xalice" }
//	  - op: payday
//	    args: { caller: "0xalice" }
//	    expect:
//	      fault: temporal
//	assertions:
//	  - type: events_contain
//	    kind: paid
//	    fields: { employee_id: 1, monthly: 100 }
//
// Setup steps must succeed; flow steps are validated against their expect
// clause (absent clause means the step must succeed).
//
// # Determinism
//
// Every scenario runs against mock tokens, a manual clock frozen at the
// fixture epoch, and sequential call tokens, so two runs of the same
// scenario produce byte-identical traces. Golden trace files under
// testdata/golden pin the canonical JSON encoding of selected scenarios;
// regenerate them with:
//
//	go test ./internal/harness -update
package harness
