package core

import (
	"careops/pkg/domain"
	"context"
	"strings"
	"testing"
)

func TestCommitParticipantInsertsGoalUnderOwner(t *testing.T) {
	svc := newTestService(t)
	p := mustCreateParticipant(t, svc, "Jordan", "Lee")

	tempID := domain.NewTempID()
	changes := domain.NewParticipantChanges()
	goal := domain.Goal{Description: "Improve community access", GoalType: "community", IsActive: true}
	goal.ID = tempID
	changes.Goals.Add(goal)

	res, after, err := svc.CommitParticipant(context.Background(), ParticipantSave{
		Participant: p,
		Changes:     changes,
		UserName:    "Priya Sharma",
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Root != p.ID {
		t.Fatalf("root %q, want %q", res.Root, p.ID)
	}
	if res.Created != 1 {
		t.Fatalf("created %d, want 1", res.Created)
	}
	goals := svc.Store().ListGoals(p.ID)
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	if goals[0].ParticipantID != p.ID {
		t.Fatalf("goal owner %q", goals[0].ParticipantID)
	}
	if domain.IsTempID(goals[0].ID) || goals[0].ID == "" {
		t.Fatalf("goal id not persisted: %q", goals[0].ID)
	}
	if res.TempIDs[tempID] != goals[0].ID {
		t.Fatalf("temp id mapping %v", res.TempIDs)
	}
	if after.HasPending() {
		t.Fatalf("expected cleared pending changes, got %d ops", after.Count())
	}
}

func TestCommitParticipantFailureKeepsPendingChanges(t *testing.T) {
	svc := newTestService(t)
	p := mustCreateParticipant(t, svc, "Jordan", "Lee")

	changes := domain.NewParticipantChanges()
	changes.Goals.ToDelete = append(changes.Goals.ToDelete, domain.DeleteRef{ID: "no-such-goal"})
	goal := domain.Goal{Description: "Kept on failure"}
	goal.ID = domain.NewTempID()
	changes.Goals.Add(goal)

	_, after, err := svc.CommitParticipant(context.Background(), ParticipantSave{
		Participant: p,
		Changes:     changes,
	})
	if err == nil {
		t.Fatal("expected commit failure")
	}
	if after != changes {
		t.Fatal("expected original pending changes back on failure")
	}
	if !after.HasPending() || after.Count() != 2 {
		t.Fatalf("pending ops lost: %d", after.Count())
	}
	if got := svc.Store().ListGoals(p.ID); len(got) != 0 {
		t.Fatalf("rollback leaked %d goals", len(got))
	}
}

func TestCommitParticipantCreatesRootWhenNew(t *testing.T) {
	svc := newTestService(t)
	res, _, err := svc.CommitParticipant(context.Background(), ParticipantSave{
		Participant: domain.Participant{FirstName: "Sam", LastName: "Nguyen"},
		UserName:    "Priya Sharma",
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, ok := svc.GetParticipant(res.Root)
	if !ok {
		t.Fatal("root not persisted")
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("status %q", got.Status)
	}
	if res.Created != 1 {
		t.Fatalf("created %d, want 1 for the new root", res.Created)
	}
}

func TestCommitParticipantSkipsUnchangedRoot(t *testing.T) {
	svc := newTestService(t)
	p := mustCreateParticipant(t, svc, "Jordan", "Lee")
	before := len(svc.ActivityFeed(domain.ActivityFilter{}))

	if _, _, err := svc.CommitParticipant(context.Background(), ParticipantSave{Participant: p}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if after := len(svc.ActivityFeed(domain.ActivityFilter{})); after != before {
		t.Fatalf("no-op commit recorded %d new entries", after-before)
	}
}

func TestCommitParticipantUpdateDescribesChangedFields(t *testing.T) {
	svc := newTestService(t)
	p := mustCreateParticipant(t, svc, "Jordan", "Lee")
	p.Phone = "0400 000 000"

	if _, _, err := svc.CommitParticipant(context.Background(), ParticipantSave{
		Participant: p,
		UserName:    "Priya Sharma",
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	feed := svc.ActivityFeed(domain.ActivityFilter{EntityID: p.ID, Limit: 1})
	if len(feed) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(feed))
	}
	want := `Updated phone from "(empty)" to "0400 000 000"`
	if feed[0].Description != want {
		t.Fatalf("description %q, want %q", feed[0].Description, want)
	}
}

func TestCommitParticipantUpdatesAndDeletesCollections(t *testing.T) {
	svc := newTestService(t)
	p := mustCreateParticipant(t, svc, "Jordan", "Lee")
	ctx := context.Background()

	seed := domain.NewParticipantChanges()
	keep := domain.Goal{Description: "Keep and edit"}
	keep.ID = domain.NewTempID()
	drop := domain.Goal{Description: "Remove later"}
	drop.ID = domain.NewTempID()
	seed.Goals.Add(keep)
	seed.Goals.Add(drop)
	res, _, err := svc.CommitParticipant(ctx, ParticipantSave{Participant: p, Changes: seed})
	if err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	keepID := res.TempIDs[keep.ID]
	dropID := res.TempIDs[drop.ID]
	edit := domain.NewParticipantChanges()
	edited := domain.Goal{Description: "Edited description", IsActive: true}
	edited.ID = keepID
	edit.Goals.Stage(edited)
	edit.Goals.Remove(domain.DeleteRef{ID: dropID, DisplayName: "Remove later"})

	res2, _, err := svc.CommitParticipant(ctx, ParticipantSave{Participant: p, Changes: edit, UserName: "Priya Sharma"})
	if err != nil {
		t.Fatalf("edit commit: %v", err)
	}
	if res2.Updated != 1 || res2.Deleted != 1 {
		t.Fatalf("counts updated=%d deleted=%d", res2.Updated, res2.Deleted)
	}
	goals := svc.Store().ListGoals(p.ID)
	if len(goals) != 1 {
		t.Fatalf("expected 1 goal, got %d", len(goals))
	}
	if goals[0].ID != keepID || goals[0].Description != "Edited description" {
		t.Fatalf("unexpected goal %+v", goals[0])
	}
	feed := svc.ActivityFeed(domain.ActivityFilter{EntityType: domain.EntityGoal})
	var sawDelete bool
	for _, entry := range feed {
		if entry.Description == "Deleted goal" && entry.EntityName == "Remove later" {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("delete entry missing from feed: %+v", feed)
	}
}

func TestCommitHouseResolvesChecklistItemReference(t *testing.T) {
	svc := newTestService(t)
	h, err := svc.CreateHouse(context.Background(), domain.House{Name: "Acacia House"}, "Priya Sharma")
	if err != nil {
		t.Fatalf("create house: %v", err)
	}

	checklistTemp := domain.NewTempID()
	changes := domain.NewHouseChanges()
	checklist := domain.Checklist{Name: "Morning routine", Frequency: "daily", IsActive: true}
	checklist.ID = checklistTemp
	changes.Checklists.Add(checklist)
	item := domain.ChecklistItem{ChecklistID: checklistTemp, Title: "Check medication chart", Position: 1}
	item.ID = domain.NewTempID()
	changes.ChecklistItems.Add(item)

	res, after, err := svc.CommitHouse(context.Background(), HouseSave{House: h, Changes: changes})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if after.HasPending() {
		t.Fatalf("pending not cleared: %d", after.Count())
	}
	persistedChecklist := res.TempIDs[checklistTemp]
	if persistedChecklist == "" || domain.IsTempID(persistedChecklist) {
		t.Fatalf("checklist id not resolved: %v", res.TempIDs)
	}
	items := svc.Store().ListChecklistItems(persistedChecklist)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ChecklistID != persistedChecklist {
		t.Fatalf("item references %q, want %q", items[0].ChecklistID, persistedChecklist)
	}
	if domain.IsTempID(items[0].ID) {
		t.Fatalf("item kept temporary id %q", items[0].ID)
	}
}

func TestCommitHouseUnresolvedChecklistReferenceFails(t *testing.T) {
	svc := newTestService(t)
	h, err := svc.CreateHouse(context.Background(), domain.House{Name: "Acacia House"}, "")
	if err != nil {
		t.Fatalf("create house: %v", err)
	}
	changes := domain.NewHouseChanges()
	item := domain.ChecklistItem{ChecklistID: domain.NewTempID(), Title: "Orphan item"}
	item.ID = domain.NewTempID()
	changes.ChecklistItems.Add(item)

	_, after, err := svc.CommitHouse(context.Background(), HouseSave{House: h, Changes: changes})
	if err == nil || !strings.Contains(err.Error(), "unresolved temporary reference") {
		t.Fatalf("expected unresolved reference error, got %v", err)
	}
	if !after.HasPending() {
		t.Fatal("pending changes dropped on failure")
	}
}

func TestCommitHouseDeletesResourceBlobWithRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	h, err := svc.CreateHouse(ctx, domain.House{Name: "Acacia House"}, "")
	if err != nil {
		t.Fatalf("create house: %v", err)
	}
	resource, err := svc.UploadResource(ctx, h.ID, "fire-plan.pdf", "application/pdf", "safety", strings.NewReader("exits"), "Priya Sharma")
	if err != nil {
		t.Fatalf("upload resource: %v", err)
	}

	changes := domain.NewHouseChanges()
	changes.Resources.Remove(domain.DeleteRef{
		ID:          resource.ID,
		StorageKey:  resource.StorageKey,
		DisplayName: resource.Name,
	})
	if _, _, err := svc.CommitHouse(ctx, HouseSave{House: h, Changes: changes, UserName: "Priya Sharma"}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got := svc.ListResources(h.ID); len(got) != 0 {
		t.Fatalf("resource row survived: %+v", got)
	}
	if _, _, err := svc.Blobs().Get(ctx, resource.StorageKey); err == nil {
		t.Fatal("blob object survived delete")
	}
}

func TestCommitHouseRemovesBlobBeforeTransaction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	h, err := svc.CreateHouse(ctx, domain.House{Name: "Acacia House"}, "")
	if err != nil {
		t.Fatalf("create house: %v", err)
	}
	resource, err := svc.UploadResource(ctx, h.ID, "fire-plan.pdf", "application/pdf", "safety", strings.NewReader("exits"), "")
	if err != nil {
		t.Fatalf("upload resource: %v", err)
	}

	// A deletion ref pointing at a missing row fails the transaction, but
	// the object behind it is already gone: blob removal happens ahead of
	// the store transaction and stays safe to retry.
	changes := domain.NewHouseChanges()
	changes.Resources.Remove(domain.DeleteRef{
		ID:          "no-such-resource",
		StorageKey:  resource.StorageKey,
		DisplayName: resource.Name,
	})
	_, after, err := svc.CommitHouse(ctx, HouseSave{House: h, Changes: changes})
	if err == nil {
		t.Fatal("expected commit failure")
	}
	if !after.HasPending() {
		t.Fatal("pending changes dropped on failure")
	}
	if _, _, err := svc.Blobs().Get(ctx, resource.StorageKey); err == nil {
		t.Fatal("blob object survived queued delete")
	}
	if got := svc.ListResources(h.ID); len(got) != 1 {
		t.Fatalf("resource row count %d, want 1 after rollback", len(got))
	}
}

func TestCommitStaffComplianceRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	st, err := svc.CreateStaff(ctx, domain.Staff{FirstName: "Mia", LastName: "Chen", Role: "support worker"}, "")
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}

	changes := domain.NewStaffChanges()
	record := domain.ComplianceRecord{Name: "First aid certificate", Status: "current"}
	record.ID = domain.NewTempID()
	changes.Compliance.Add(record)

	res, after, err := svc.CommitStaff(ctx, StaffSave{Staff: st, Changes: changes, UserName: "Priya Sharma"})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if after.HasPending() {
		t.Fatal("pending not cleared")
	}
	records := svc.Store().ListComplianceRecords(st.ID)
	if len(records) != 1 || records[0].StaffID != st.ID {
		t.Fatalf("unexpected records %+v", records)
	}
	if res.TempIDs[record.ID] != records[0].ID {
		t.Fatalf("temp mapping %v", res.TempIDs)
	}
}
