package asset

import (
	"errors"
	"fmt"
	"sync"
)

// Token is the value-transfer collaborator contract for a single asset type.
//
// The core treats every call as fallible: a failed Transfer aborts the
// enclosing payroll operation with no state change. Implementations are
// external to the core; MockToken below exists for tests and the
// conformance harness.
type Token interface {
	// BalanceOf returns the amount held by the given account.
	BalanceOf(holder Account) int64

	// Transfer moves amount from one account to another.
	// Returns an error if from holds less than amount or the collaborator
	// rejects the transfer for any reason.
	Transfer(from, to Account, amount int64) error

	// Mint credits amount to an account out of thin air.
	// Funding/setup primitive only; never called by the core at runtime.
	Mint(to Account, amount int64)
}

// ErrTransferRejected is the failure injected by MockToken.FailNextTransfer.
var ErrTransferRejected = errors.New("transfer rejected by collaborator")

// MockToken is an in-memory Token keyed by account.
//
// Thread-safety: all methods lock; the facade serializes calls anyway, but
// tests mint from setup goroutines.
type MockToken struct {
	id ID

	mu       sync.Mutex
	balances map[Account]int64
	failNext bool
}

// NewMockToken creates an empty in-memory token for the given asset ID.
func NewMockToken(id ID) *MockToken {
	return &MockToken{
		id:       id,
		balances: make(map[Account]int64),
	}
}

// ID returns the asset ID this token implements.
func (t *MockToken) ID() ID {
	return t.id
}

// BalanceOf returns the amount held by holder.
func (t *MockToken) BalanceOf(holder Account) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[holder]
}

// Transfer moves amount between accounts, or fails if from is underfunded
// or a failure was injected with FailNextTransfer.
func (t *MockToken) Transfer(from, to Account, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failNext {
		t.failNext = false
		return fmt.Errorf("%s: %w", t.id, ErrTransferRejected)
	}
	if amount < 0 {
		return fmt.Errorf("%s: negative transfer amount %d", t.id, amount)
	}
	if t.balances[from] < amount {
		return fmt.Errorf("%s: insufficient balance: have %d, need %d", t.id, t.balances[from], amount)
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	return nil
}

// Mint credits amount to an account.
func (t *MockToken) Mint(to Account, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] += amount
}

// FailNextTransfer makes the next Transfer call fail with
// ErrTransferRejected. Used to test collaborator-failure atomicity.
func (t *MockToken) FailNextTransfer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = true
}

// Registry resolves asset IDs to their Token collaborators.
//
// Wiring is done once at setup; Resolve fails closed for unknown IDs.
type Registry struct {
	tokens map[ID]Token
}

// NewRegistry creates a registry over the given tokens.
func NewRegistry(tokens map[ID]Token) *Registry {
	m := make(map[ID]Token, len(tokens))
	for id, tok := range tokens {
		m[id] = tok
	}
	return &Registry{tokens: m}
}

// Resolve returns the Token for an asset ID.
func (r *Registry) Resolve(id ID) (Token, error) {
	tok, ok := r.tokens[id]
	if !ok {
		return nil, fmt.Errorf("no token registered for asset %q", id)
	}
	return tok, nil
}

// Known reports whether an asset ID has a registered token.
func (r *Registry) Known(id ID) bool {
	_, ok := r.tokens[id]
	return ok
}

// IDs returns the registered asset IDs in unspecified order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.tokens))
	for id := range r.tokens {
		ids = append(ids, id)
	}
	return ids
}
