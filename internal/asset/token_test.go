package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestID_Zero tests zero-value detection for IDs and accounts.
func TestID_Zero(t *testing.T) {
	assert.True(t, ID("").IsZero())
	assert.False(t, ID("ant").IsZero())
	assert.True(t, Native.IsNative())
	assert.False(t, ID("ant").IsNative())

	assert.True(t, Account("").IsZero())
	assert.False(t, Account("0xalice").IsZero())
}

// TestMockToken_TransferMovesBalance tests the happy transfer path.
func TestMockToken_TransferMovesBalance(t *testing.T) {
	tok := NewMockToken("ant")
	tok.Mint("a", 100)

	require.NoError(t, tok.Transfer("a", "b", 30))

	assert.Equal(t, int64(70), tok.BalanceOf("a"))
	assert.Equal(t, int64(30), tok.BalanceOf("b"))
}

// TestMockToken_InsufficientBalance tests that an underfunded transfer
// fails without moving anything.
func TestMockToken_InsufficientBalance(t *testing.T) {
	tok := NewMockToken("ant")
	tok.Mint("a", 10)

	err := tok.Transfer("a", "b", 11)
	require.Error(t, err)

	assert.Equal(t, int64(10), tok.BalanceOf("a"))
	assert.Equal(t, int64(0), tok.BalanceOf("b"))
}

// TestMockToken_FailNextTransfer tests single-shot failure injection.
func TestMockToken_FailNextTransfer(t *testing.T) {
	tok := NewMockToken("ant")
	tok.Mint("a", 100)

	tok.FailNextTransfer()
	err := tok.Transfer("a", "b", 10)
	require.ErrorIs(t, err, ErrTransferRejected)
	assert.Equal(t, int64(100), tok.BalanceOf("a"))

	// The injection is consumed; the next transfer succeeds.
	require.NoError(t, tok.Transfer("a", "b", 10))
	assert.Equal(t, int64(90), tok.BalanceOf("a"))
}

// TestRegistry_Resolve tests wiring lookups fail closed.
func TestRegistry_Resolve(t *testing.T) {
	ant := NewMockToken("ant")
	reg := NewRegistry(map[ID]Token{"ant": ant})

	got, err := reg.Resolve("ant")
	require.NoError(t, err)
	assert.Equal(t, Token(ant), got)

	_, err = reg.Resolve("usd")
	require.Error(t, err)
	assert.False(t, reg.Known("usd"))
	assert.True(t, reg.Known("ant"))
	assert.Len(t, reg.IDs(), 1)
}
