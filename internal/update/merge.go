// Package update applies Micropub partial-update instructions to a
// canonical record.
package update

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/mf"
)

// Instruction is one partial-update request. Exactly one field is expected
// to be set: Replace and Add carry a structured-properties fragment; Delete
// carries either a list of property names to remove outright or a fragment
// naming values to remove from sequences.
type Instruction struct {
	Replace json.RawMessage `json:"replace,omitempty"`
	Add     json.RawMessage `json:"add,omitempty"`
	Delete  json.RawMessage `json:"delete,omitempty"`
}

// Apply mutates rec according to in. It reports apperr.ErrNoChange when the
// instruction names nothing that effectively changes the record; callers
// treat that as a no-op, not a failure.
func Apply(rec *mf.Record, in Instruction) (*mf.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("update: no record: %w", apperr.ErrNoChange)
	}
	if keys, ok := deleteKeys(in.Delete); ok {
		changed := false
		for _, key := range keys {
			if rec.Delete(key) {
				changed = true
			}
		}
		if !changed {
			return nil, fmt.Errorf("update: no named property present: %w", apperr.ErrNoChange)
		}
		return rec, nil
	}

	var fragment json.RawMessage
	switch {
	case in.Replace != nil:
		fragment = in.Replace
	case in.Add != nil:
		fragment = in.Add
	case in.Delete != nil:
		fragment = in.Delete
	default:
		return nil, fmt.Errorf("update: empty instruction: %w", apperr.ErrNoChange)
	}

	updates := mf.FromProperties(rec.Type(), gjson.ParseBytes(fragment))
	updates.Compact()
	if updates.Empty() {
		return nil, fmt.Errorf("update: empty fragment: %w", apperr.ErrNoChange)
	}

	if in.Replace != nil {
		updates.Each(func(key string, v any) {
			if key != "type" {
				rec.Set(key, v)
			}
		})
		return rec, nil
	}

	changed := false
	updates.Each(func(key string, v any) {
		// The type tag never merges, and photo sets are replaced
		// wholesale elsewhere, never appended to.
		if key == "type" || key == "photo" {
			return
		}
		if in.Add != nil {
			if cur, ok := rec.Get(key); ok {
				rec.Set(key, append(mf.Sequence(cur), mf.Sequence(v)...))
			} else {
				rec.Set(key, mf.Sequence(v))
			}
			changed = true
			return
		}
		cur, ok := rec.Get(key)
		if !ok {
			return
		}
		// Value removal only applies to sequence-valued properties.
		seq, isSeq := mf.AsSequence(cur)
		if !isSeq {
			return
		}
		for _, item := range mf.Sequence(v) {
			for i, have := range seq {
				if reflect.DeepEqual(have, item) {
					seq = append(seq[:i], seq[i+1:]...)
					changed = true
					break
				}
			}
		}
		rec.Set(key, seq)
	})
	if !changed {
		return nil, fmt.Errorf("update: nothing changed: %w", apperr.ErrNoChange)
	}
	return rec, nil
}

// deleteKeys interprets the delete field as an outright key-removal list.
// A fragment-shaped delete (object) reports false.
func deleteKeys(raw json.RawMessage) ([]string, bool) {
	if raw == nil {
		return nil, false
	}
	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, false
	}
	return keys, true
}
