package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Action identifies the kind of mutation applied to a record.
type Action string

// Mutation actions recorded in transactions and activity entries.
const (
	// ActionCreate marks a record insertion.
	ActionCreate Action = "create"
	// ActionUpdate marks a partial record update.
	ActionUpdate Action = "update"
	// ActionDelete marks a record removal.
	ActionDelete Action = "delete"
)

// Change captures a single mutation applied within a transaction, with clones
// of the record before and after the mutation.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	ID     string     `json:"id"`
	Before any        `json:"before,omitempty"`
	After  any        `json:"after,omitempty"`
}

// FieldChange holds the original (non-normalized) old and new values of a
// single changed field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeMap maps field names to their old/new values. Only fields whose
// normalized values differ are present.
type ChangeMap map[string]FieldChange

// systemFields are excluded from change detection; the store maintains them.
var systemFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

// normalizeValue collapses the empty-equivalent values nil and "" to nil so
// that a change from null to empty string is not reported as a change.
func normalizeValue(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

// DetectChanges compares two flat records field by field and returns the map
// of changed fields. Every key of the new record is considered except the
// system timestamp fields and any caller-designated transient fields. The
// stored old/new values are the literal inputs, not their normalized forms.
// DetectChanges never fails; it is a pure function over plain records.
func DetectChanges(oldRecord, newRecord map[string]any, transient ...string) ChangeMap {
	skip := make(map[string]bool, len(transient))
	for _, f := range transient {
		skip[f] = true
	}
	changes := ChangeMap{}
	for key, newValue := range newRecord {
		if systemFields[key] || skip[key] {
			continue
		}
		oldValue := oldRecord[key]
		if reflect.DeepEqual(normalizeValue(oldValue), normalizeValue(newValue)) {
			continue
		}
		changes[key] = FieldChange{Old: oldValue, New: newValue}
	}
	return changes
}

// DetectRecordChanges diffs two struct records through their JSON object
// forms, so field names match the wire/storage representation.
func DetectRecordChanges(oldRecord, newRecord any, transient ...string) (ChangeMap, error) {
	oldMap, err := recordToMap(oldRecord)
	if err != nil {
		return nil, fmt.Errorf("encode old record: %w", err)
	}
	newMap, err := recordToMap(newRecord)
	if err != nil {
		return nil, fmt.Errorf("encode new record: %w", err)
	}
	return DetectChanges(oldMap, newMap, transient...), nil
}

func recordToMap(record any) (map[string]any, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
