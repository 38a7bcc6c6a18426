package sqlite

import (
	"careops/pkg/domain"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careops.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var created domain.Participant
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateParticipant(domain.Participant{FirstName: "Ava", LastName: "Nguyen", Status: domain.StatusActive})
		if err != nil {
			return err
		}
		_, err = tx.AppendActivity(domain.ActivityEntry{
			ActivityType: domain.ActionCreate,
			EntityType:   domain.EntityParticipant,
			EntityID:     created.ID,
			Description:  "Created participant",
		})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.GetParticipant(created.ID)
	if !ok {
		t.Fatalf("participant missing after reopen")
	}
	if got.FirstName != "Ava" || got.Status != domain.StatusActive {
		t.Fatalf("unexpected row after reopen: %+v", got)
	}
	feed := reopened.ListActivity(domain.ActivityFilter{EntityID: created.ID})
	if len(feed) != 1 || feed[0].Description != "Created participant" {
		t.Fatalf("unexpected activity after reopen: %+v", feed)
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careops.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateHouse(domain.House{Name: "Banksia"})
		if err != nil {
			return err
		}
		_, err = tx.CreateParticipant(domain.Participant{Base: domain.Base{ID: domain.NewTempID()}})
		return err
	})
	if err == nil {
		t.Fatalf("expected transaction failure")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListHouses()); got != 0 {
		t.Fatalf("failed transaction persisted %d houses", got)
	}
}

func TestDefaultPathFallback(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != defaultPath {
		t.Fatalf("expected default path, got %q", store.Path())
	}
}
