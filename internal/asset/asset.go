package asset

// ID identifies a fungible asset type accepted by the payroll.
//
// IDs are opaque strings. The zero value is invalid everywhere: operations
// that receive an ID must reject IsZero IDs before touching state.
type ID string

// Native is the reserved pseudo-ID for the base/native asset.
//
// It is routed through the same Token interface as every other asset, but
// components may treat it specially (e.g. the payday remainder share is
// always disbursed in the native asset).
const Native ID = "native"

// IsZero reports whether the ID is the invalid zero value.
func (id ID) IsZero() bool {
	return id == ""
}

// IsNative reports whether the ID is the reserved native pseudo-ID.
func (id ID) IsNative() bool {
	return id == Native
}

// Account identifies a payable party: an employee, an owner, or a component
// holding balances (the payment engine and the escrow vault each have one).
//
// The zero value is invalid and must be rejected by any operation that
// registers or pays an account.
type Account string

// IsZero reports whether the Account is the invalid zero value.
func (a Account) IsZero() bool {
	return a == ""
}
