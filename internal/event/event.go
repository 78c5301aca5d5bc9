package event

import (
	"time"

	"github.com/payhatch/payhatch/internal/asset"
)

// Kind names a notification type.
type Kind string

// Notification kinds, one per state-changing operation.
const (
	KindEmployeeAdded     Kind = "employee_added"
	KindSalaryUpdated     Kind = "salary_updated"
	KindEmployeeRemoved   Kind = "employee_removed"
	KindAllowListChanged  Kind = "allow_list_changed"
	KindFundsAdded        Kind = "funds_added"
	KindExchangeRateSet   Kind = "exchange_rate_set"
	KindAllocationChanged Kind = "allocation_changed"
	KindPaid              Kind = "paid"
	KindQuarantined       Kind = "quarantined"
	KindWithdrawn         Kind = "withdrawn"
	KindVaultPaused       Kind = "vault_paused"
	KindVaultUnpaused     Kind = "vault_unpaused"
	KindVaultSwept        Kind = "vault_swept"
	KindEngineSwept       Kind = "engine_swept"
	KindPaused            Kind = "paused"
	KindUnpaused          Kind = "unpaused"
	KindEscaped           Kind = "escaped"
)

// Event is one notification record.
//
// Fields hold only strings, int64s, and bools so the record round-trips
// through canonical JSON and the audit log without loss.
type Event struct {
	// Seq is the position in the committed stream. Assigned at commit.
	Seq int64 `json:"seq"`

	// CallToken correlates all notifications of one external call.
	CallToken string `json:"call_token"`

	// At is the wall-clock time the operation committed.
	At time.Time `json:"at"`

	// Kind names the notification type.
	Kind Kind `json:"kind"`

	// Fields carries the named payload of the notification.
	Fields map[string]any `json:"fields"`
}

// EmployeeAdded reports a new employee with their id, account, yearly
// compensation, and accepted-asset set. The accepted set is carried so the
// registry can be rebuilt from the audit stream alone.
func EmployeeAdded(id int64, account asset.Account, accepted []asset.ID, yearly int64) Event {
	ids := make([]any, len(accepted))
	for i, a := range accepted {
		ids[i] = string(a)
	}
	return Event{Kind: KindEmployeeAdded, Fields: map[string]any{
		"employee_id": id,
		"account":     string(account),
		"accepted":    ids,
		"yearly":      yearly,
	}}
}

// SalaryUpdated reports a changed yearly compensation.
func SalaryUpdated(id int64, yearly int64) Event {
	return Event{Kind: KindSalaryUpdated, Fields: map[string]any{
		"employee_id": id,
		"yearly":      yearly,
	}}
}

// EmployeeRemoved reports a deactivated employee.
func EmployeeRemoved(id int64) Event {
	return Event{Kind: KindEmployeeRemoved, Fields: map[string]any{
		"employee_id": id,
	}}
}

// AllowListChanged reports a replaced mutation allow-list.
func AllowListChanged(count int) Event {
	return Event{Kind: KindAllowListChanged, Fields: map[string]any{
		"count": int64(count),
	}}
}

// FundsAdded reports an operational-balance deposit.
func FundsAdded(from asset.Account, id asset.ID, amount int64) Event {
	return Event{Kind: KindFundsAdded, Fields: map[string]any{
		"from":   string(from),
		"asset":  string(id),
		"amount": amount,
	}}
}

// ExchangeRateSet reports a rate change for one asset.
func ExchangeRateSet(id asset.ID, rate int64) Event {
	return Event{Kind: KindExchangeRateSet, Fields: map[string]any{
		"asset": string(id),
		"rate":  rate,
	}}
}

// AllocationChanged reports one asset's new percentage share. A reallocation
// emits one of these per asset, in argument order.
func AllocationChanged(id int64, a asset.ID, percent int64) Event {
	return Event{Kind: KindAllocationChanged, Fields: map[string]any{
		"employee_id": id,
		"asset":       string(a),
		"percent":     percent,
	}}
}

// Paid reports a completed payday with the monthly compensation disbursed.
func Paid(id int64, monthly int64) Event {
	return Event{Kind: KindPaid, Fields: map[string]any{
		"employee_id": id,
		"monthly":     monthly,
	}}
}

// Quarantined reports escrowed funds for one (employee, asset).
func Quarantined(employee asset.Account, a asset.ID, amount int64) Event {
	return Event{Kind: KindQuarantined, Fields: map[string]any{
		"employee": string(employee),
		"asset":    string(a),
		"amount":   amount,
	}}
}

// Withdrawn reports an employee claiming their escrowed funds.
func Withdrawn(employee asset.Account) Event {
	return Event{Kind: KindWithdrawn, Fields: map[string]any{
		"employee": string(employee),
	}}
}

// VaultPaused reports the vault entering its paused state.
func VaultPaused() Event {
	return Event{Kind: KindVaultPaused, Fields: map[string]any{}}
}

// VaultUnpaused reports the vault resuming.
func VaultUnpaused() Event {
	return Event{Kind: KindVaultUnpaused, Fields: map[string]any{}}
}

// VaultSwept reports an owner emergency withdrawal from the vault.
func VaultSwept(to asset.Account) Event {
	return Event{Kind: KindVaultSwept, Fields: map[string]any{
		"to": string(to),
	}}
}

// EngineSwept reports an owner emergency withdrawal from the payment engine.
func EngineSwept(to asset.Account) Event {
	return Event{Kind: KindEngineSwept, Fields: map[string]any{
		"to": string(to),
	}}
}

// Paused reports the facade entering its paused phase.
func Paused() Event {
	return Event{Kind: KindPaused, Fields: map[string]any{}}
}

// Unpaused reports the facade resuming normal operation.
func Unpaused() Event {
	return Event{Kind: KindUnpaused, Fields: map[string]any{}}
}

// Escaped reports the terminal escape-hatch trigger.
func Escaped() Event {
	return Event{Kind: KindEscaped, Fields: map[string]any{}}
}
