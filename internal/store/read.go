package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/payhatch/payhatch/internal/event"
)

// ReadAll returns every logged notification in seq order.
func (s *Store) ReadAll() ([]event.Event, error) {
	return s.readWhere("1=1")
}

// ReadSince returns notifications with seq greater than after, in order.
func (s *Store) ReadSince(after int64) ([]event.Event, error) {
	return s.readWhere("seq > ?", after)
}

// ReadByKind returns notifications of one kind, in seq order.
func (s *Store) ReadByKind(kind event.Kind) ([]event.Event, error) {
	return s.readWhere("kind = ?", string(kind))
}

// ReadByCallToken returns all notifications of one external call, in order.
func (s *Store) ReadByCallToken(token string) ([]event.Event, error) {
	return s.readWhere("call_token = ?", token)
}

// LastSeq returns the highest persisted sequence number, or 0 for an empty
// log. Used to resume the sequencer when reopening a system.
func (s *Store) LastSeq() (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(seq) FROM events").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func (s *Store) readWhere(where string, args ...any) ([]event.Event, error) {
	rows, err := s.db.Query(`
		SELECT seq, call_token, kind, at, fields
		FROM events
		WHERE `+where+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var (
			e      event.Event
			kind   string
			atUnix int64
			fields string
		)
		if err := rows.Scan(&e.Seq, &e.CallToken, &kind, &atUnix, &fields); err != nil {
			return nil, fmt.Errorf("read events: %w", err)
		}
		e.Kind = event.Kind(kind)
		e.At = time.Unix(atUnix, 0).UTC()
		e.Fields, err = decodeFields(fields)
		if err != nil {
			return nil, fmt.Errorf("read events: seq %d: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return out, nil
}

// decodeFields parses a canonical JSON payload back into the integer-only
// field representation notifications use in memory.
func decodeFields(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	normalized, err := normalizeValue(v)
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	fields, ok := normalized.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode fields: payload is %T, want object", normalized)
	}
	return fields, nil
}

// normalizeValue converts json.Number to int64 recursively. The canonical
// encoding never writes floats, so a non-integer number is corruption.
func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q in event payload", val)
		}
		return n, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			norm, err := normalizeValue(elem)
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			norm, err := normalizeValue(elem)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	default:
		return v, nil
	}
}
