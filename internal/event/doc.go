// Package event defines the notification records emitted by every
// state-changing payroll operation, and the machinery that stamps, stages,
// and delivers them.
//
// ARCHITECTURE:
//
// Staged delivery:
// Notifications raised during an operation are buffered in the Recorder and
// only flushed to sinks when the operation commits. An aborted operation
// discards its buffer, so the observable stream is fail-atomic: a rejected
// call leaves no notifications behind, exactly as it leaves no state behind.
//
// Ordering:
// Sequence numbers are assigned at commit time from a monotonic Sequencer,
// so the stream order equals the total order of committed operations. All
// notifications of one external call share a call token (UUIDv7 in
// production, fixed tokens in tests) for correlation.
//
// Serialization:
// MarshalCanonical produces deterministic JSON (sorted keys, NFC-normalized
// strings, integers only) used for golden-trace comparison and the durable
// audit log.
package event
