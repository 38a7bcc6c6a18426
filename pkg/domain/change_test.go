package domain

import (
	"testing"
	"time"
)

func TestDetectChangesSelfDiffIsEmpty(t *testing.T) {
	record := map[string]any{
		"first_name": "Alex",
		"phone":      "0400 000 000",
		"is_active":  true,
		"house_id":   nil,
	}
	if got := DetectChanges(record, record); len(got) != 0 {
		t.Fatalf("expected empty change map for self diff, got %v", got)
	}
}

func TestDetectChangesEmptyEquivalence(t *testing.T) {
	if got := DetectChanges(map[string]any{"f": nil}, map[string]any{"f": ""}); len(got) != 0 {
		t.Fatalf("expected nil -> empty string to be no change, got %v", got)
	}
	got := DetectChanges(map[string]any{"f": nil}, map[string]any{"f": "x"})
	if len(got) != 1 {
		t.Fatalf("expected single change, got %v", got)
	}
	change, ok := got["f"]
	if !ok {
		t.Fatal("expected change entry for f")
	}
	if change.Old != nil || change.New != "x" {
		t.Fatalf("unexpected change values: %+v", change)
	}
}

func TestDetectChangesKeepsLiteralValues(t *testing.T) {
	got := DetectChanges(map[string]any{"name": "A"}, map[string]any{"name": "B"})
	if change := got["name"]; change.Old != "A" || change.New != "B" {
		t.Fatalf("expected literal old/new values, got %+v", change)
	}
}

func TestDetectChangesExcludesSystemFields(t *testing.T) {
	oldRecord := map[string]any{"created_at": "2024-01-01", "updated_at": "2024-01-01"}
	newRecord := map[string]any{"created_at": "2024-06-01", "updated_at": "2024-06-01"}
	if got := DetectChanges(oldRecord, newRecord); len(got) != 0 {
		t.Fatalf("expected system fields to be excluded, got %v", got)
	}
}

func TestDetectChangesExcludesTransientFields(t *testing.T) {
	oldRecord := map[string]any{"photo_file": nil}
	newRecord := map[string]any{"photo_file": "staged-upload"}
	if got := DetectChanges(oldRecord, newRecord, "photo_file"); len(got) != 0 {
		t.Fatalf("expected transient field to be excluded, got %v", got)
	}
}

func TestDetectRecordChangesDiffsStructs(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	before := Goal{Base: Base{ID: "g1", CreatedAt: now, UpdatedAt: now}, ParticipantID: "p1", GoalType: "ndis", Description: "Improve mobility"}
	after := before
	after.Description = "Improve community access"

	got, err := DetectRecordChanges(before, after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one changed field, got %v", got)
	}
	change := got["description"]
	if change.Old != "Improve mobility" || change.New != "Improve community access" {
		t.Fatalf("unexpected description change: %+v", change)
	}
}
