package domain

import "testing"

func TestComputeDirtyCleanWhenEqual(t *testing.T) {
	state := ComputeDirty(DirtyInput{
		Form:     map[string]any{"a": 1},
		Original: map[string]any{"a": 1},
		Pending:  NewParticipantChanges(),
	})
	if state.IsDirty || state.FormChanged || state.HasPendingChanges {
		t.Fatalf("expected clean state, got %+v", state)
	}
}

func TestComputeDirtyRoundTrip(t *testing.T) {
	original := map[string]any{"a": 1}
	form := map[string]any{"a": 2}

	state := ComputeDirty(DirtyInput{Form: form, Original: original})
	if !state.IsDirty || !state.FormChanged {
		t.Fatalf("expected dirty after edit, got %+v", state)
	}
	if len(state.FormDiff) != 1 {
		t.Fatalf("expected one diff entry, got %v", state.FormDiff)
	}

	form["a"] = 1
	state = ComputeDirty(DirtyInput{Form: form, Original: original})
	if state.IsDirty {
		t.Fatalf("expected clean after revert, got %+v", state)
	}
}

func TestComputeDirtyPendingOnly(t *testing.T) {
	pending := NewHouseChanges()
	pending.Events.Add(CalendarEvent{Base: Base{ID: NewTempID()}, Title: "Fire drill"})

	state := ComputeDirty(DirtyInput{
		Form:     map[string]any{"name": "Acacia House"},
		Original: map[string]any{"name": "Acacia House"},
		Pending:  pending,
	})
	if !state.IsDirty || state.FormChanged || !state.HasPendingChanges {
		t.Fatalf("expected pending-only dirty state, got %+v", state)
	}
}

func TestComputeDirtyCountsRemovedKeys(t *testing.T) {
	state := ComputeDirty(DirtyInput{
		Form:     map[string]any{},
		Original: map[string]any{"notes": "keep"},
	})
	if !state.FormChanged {
		t.Fatal("expected removed key to count as a change")
	}
	change := state.FormDiff["notes"]
	if change.Old != "keep" || change.New != nil {
		t.Fatalf("unexpected diff entry: %+v", change)
	}
}

func TestComputeDirtyIgnoresRemovedEmptyKeys(t *testing.T) {
	state := ComputeDirty(DirtyInput{
		Form:     map[string]any{},
		Original: map[string]any{"notes": ""},
	})
	if state.FormChanged {
		t.Fatalf("expected removed empty key to be no change, got %+v", state.FormDiff)
	}
}
