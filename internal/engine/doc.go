// Package engine implements the payment engine: exchange rates, operational
// balances, and the payday disbursement pipeline.
//
// ARCHITECTURE:
//
// The engine holds funds under its own account with each value-transfer
// collaborator; the operational balance of an asset is simply the engine
// account's balance there. Funds leave the engine only through a payday
// disbursement into the escrow vault or through the owner's emergency sweep
// while the facade is paused.
//
// Payday runs in two phases so a collaborator failure cannot leave a
// partial disbursement behind:
//
//  1. Plan and validate: resolve the split, check rates, cooldowns, the
//     vault's pause latch, and the engine's balances.
//  2. Execute: move every leg to the vault's holding account, then register
//     the quarantine entries. A failed transfer reverses the completed legs
//     before the call returns.
//
// All division is integer and truncating; fractional remainders (dust) are
// not carried forward.
package engine
