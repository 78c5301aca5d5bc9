// Package payroll implements the facade: the single entry point composing
// the ledger store, the payment engine, and the escrow vault.
//
// The facade holds no financial state. It owns exactly two things: the
// control phase (Normal, Paused, Escaped, with an explicit transition
// table) and the serialization of external calls. Every operation takes the
// facade mutex, stages its notifications in the recorder, and commits or
// aborts them with the call, so the system behaves as one totally ordered
// sequence of atomic operations.
//
// Escaped is terminal. Once the escape hatch fires, no transition leaves
// the phase and payday fails forever, regardless of pause state.
package payroll
