package domain

import "reflect"

// PendingSet is the aggregate query surface shared by the per-root pending
// change structures.
type PendingSet interface {
	// HasPending reports whether any bucket holds buffered operations.
	HasPending() bool
	// Count returns the total number of buffered operations.
	Count() int
}

// DirtyInput bundles the inputs of ComputeDirty. Pending may be nil when the
// editing session tracks only root form fields.
type DirtyInput struct {
	Form     map[string]any
	Original map[string]any
	Pending  PendingSet
}

// DirtyState is the result of dirty evaluation; IsDirty gates whether a save
// action is offered.
type DirtyState struct {
	IsDirty           bool      `json:"is_dirty"`
	FormChanged       bool      `json:"form_changed"`
	HasPendingChanges bool      `json:"has_pending_changes"`
	FormDiff          ChangeMap `json:"form_diff,omitempty"`
}

// ComputeDirty performs a structural diff of the root form against its
// original snapshot and combines it with pending collection changes. The diff
// walks the union of keys, so removed fields count, and compares values
// structurally so key order never produces a false positive.
func ComputeDirty(in DirtyInput) DirtyState {
	diff := structuralDiff(in.Original, in.Form)
	state := DirtyState{
		FormChanged: len(diff) > 0,
		FormDiff:    diff,
	}
	if in.Pending != nil {
		state.HasPendingChanges = in.Pending.HasPending()
	}
	state.IsDirty = state.FormChanged || state.HasPendingChanges
	return state
}

func structuralDiff(original, form map[string]any) ChangeMap {
	diff := ChangeMap{}
	seen := make(map[string]bool, len(form))
	for key, formValue := range form {
		seen[key] = true
		if systemFields[key] {
			continue
		}
		originalValue := original[key]
		if reflect.DeepEqual(normalizeValue(originalValue), normalizeValue(formValue)) {
			continue
		}
		diff[key] = FieldChange{Old: originalValue, New: formValue}
	}
	for key, originalValue := range original {
		if seen[key] || systemFields[key] {
			continue
		}
		if normalizeValue(originalValue) == nil {
			continue
		}
		diff[key] = FieldChange{Old: originalValue, New: nil}
	}
	return diff
}
