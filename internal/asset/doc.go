// Package asset defines the value primitives shared by every payhatch
// component: asset identifiers, account identities, and the value-transfer
// collaborator contract.
//
// Assets are opaque to the core. The ledger never inspects how a token moves
// value; it only calls the Token interface and treats any failure as fatal
// for the enclosing operation. The native asset is a reserved pseudo-ID that
// behaves like any other token behind the same interface.
package asset
