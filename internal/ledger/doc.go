// Package ledger implements the durable employee registry.
//
// The Store owns identity, salary, allocation, and cooldown timestamps for
// every employee, plus the allow-list of upper-layer services permitted to
// mutate it. Monetary balances never live here; the payment engine and the
// escrow vault own those.
//
// Records are never deleted. Removing an employee flips Active to false and
// retains the record for audit and history.
//
// Trust model: the Store trusts exactly its owner and the accounts on its
// allow-list. The payment engine is allow-listed at wiring time so
// reallocation and payday can stamp the registry; nothing else can.
package ledger
