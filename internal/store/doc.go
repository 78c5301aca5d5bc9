// Package store provides the durable audit log for payhatch notifications.
//
// Every committed notification is appended to a SQLite events table in
// sequence order. The log is append-only: nothing updates or deletes a row.
// Reads return events in seq order, which is exactly the commit order of
// the operations that produced them, so the employee registry can be
// rebuilt from the log alone (see ledger.Rebuild).
//
// SQLite is configured for a single writer with WAL mode, matching the
// facade's serialized-call design.
package store
