package store

import (
	"fmt"

	"github.com/payhatch/payhatch/internal/event"
)

// Record appends a committed notification to the log.
// Implements event.Sink, so a Store can be handed straight to the recorder.
//
// Uses ON CONFLICT(seq) DO NOTHING for idempotency: re-delivering an
// already-persisted notification is silently ignored. Other constraint
// violations still return errors.
func (s *Store) Record(e event.Event) error {
	fieldsJSON, err := event.MarshalCanonical(e.Fields)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO events (seq, call_token, kind, at, fields)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		e.Seq,
		e.CallToken,
		string(e.Kind),
		e.At.Unix(),
		string(fieldsJSON),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	return nil
}
