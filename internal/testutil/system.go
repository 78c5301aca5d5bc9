package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/payhatch/payhatch/internal/asset"
	"github.com/payhatch/payhatch/internal/event"
	"github.com/payhatch/payhatch/internal/payroll"
)

// Fixture identities shared across the test suite.
const (
	Owner asset.Account = "0xowner"
	Alice asset.Account = "0xalice"
	Bob   asset.Account = "0xbob"

	EngineAccount asset.Account = "0xengine"
	VaultAccount  asset.Account = "0xvault"
)

// Fixture assets: ANT converts at an operator-set rate, USD is the
// reference unit, and the native pseudo-asset receives payday remainders.
const (
	ANT asset.ID = "ant"
	USD asset.ID = "usd"
)

// SeqTokenGenerator yields "call-0001", "call-0002", ... for deterministic
// traces without budgeting an exact token count up front.
type SeqTokenGenerator struct {
	mu sync.Mutex
	n  int
}

// Generate returns the next sequential call token.
func (g *SeqTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("call-%04d", g.n)
}

// System is a fully wired payroll over mock tokens, a manual clock, and an
// in-memory notification sink.
type System struct {
	*payroll.System

	Clock  *ManualClock
	Events *event.MemorySink
	Tokens map[asset.ID]*asset.MockToken
}

// NewSystem wires a system with the fixture identities and assets.
// Extra sinks (e.g. a SQLite audit log) may be appended.
func NewSystem(t *testing.T, extraSinks ...event.Sink) *System {
	t.Helper()

	clock := NewManualClock()
	events := event.NewMemorySink()
	tokens := map[asset.ID]*asset.MockToken{
		ANT:          asset.NewMockToken(ANT),
		USD:          asset.NewMockToken(USD),
		asset.Native: asset.NewMockToken(asset.Native),
	}

	wired := map[asset.ID]asset.Token{}
	for id, tok := range tokens {
		wired[id] = tok
	}

	sinks := append([]event.Sink{events}, extraSinks...)
	sys, err := payroll.Wire(payroll.Config{
		Owner:         Owner,
		EngineAccount: EngineAccount,
		VaultAccount:  VaultAccount,
		Reference:     USD,
		Tokens:        wired,
		Clock:         clock,
		TokenGen:      &SeqTokenGenerator{},
		Sinks:         sinks,
	})
	if err != nil {
		t.Fatalf("wiring test system: %v", err)
	}

	return &System{
		System: sys,
		Clock:  clock,
		Events: events,
		Tokens: tokens,
	}
}

// Fund mints amount of an asset to the engine's operational account.
// Setup shortcut mirroring direct token funding.
func (s *System) Fund(id asset.ID, amount int64) {
	s.Tokens[id].Mint(EngineAccount, amount)
}
