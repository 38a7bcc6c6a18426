package postgres

import (
	"careops/internal/infra/persistence/postgres/testutil"
	"careops/pkg/domain"
	"context"
	"database/sql"
	"fmt"
	"testing"
)

func openStubStore(t *testing.T, db *sql.DB) *Store {
	t.Helper()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != defaultDriver {
			return nil, fmt.Errorf("unexpected driver %q", driverName)
		}
		return db, nil
	})
	defer restore()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestTransactionSnapshotsToStateTable(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := openStubStore(t, db)

	var created domain.Participant
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateParticipant(domain.Participant{FirstName: "Ava", LastName: "Nguyen"})
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if len(conn.State["participants"]) == 0 {
		t.Fatalf("participants bucket not persisted")
	}
	for _, bucket := range []string{"staff", "houses", "activity"} {
		if _, ok := conn.State[bucket]; !ok {
			t.Fatalf("bucket %q not persisted", bucket)
		}
	}
}

func TestHydratesFromExistingSnapshot(t *testing.T) {
	db, _ := testutil.NewStubDB()
	store := openStubStore(t, db)
	var created domain.House
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateHouse(domain.House{Name: "Banksia", Suburb: "Preston", Capacity: 4})
		return err
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	rehydrated := openStubStore(t, db)
	got, ok := rehydrated.GetHouse(created.ID)
	if !ok {
		t.Fatalf("house missing after rehydration")
	}
	if got.Name != "Banksia" || got.Capacity != 4 {
		t.Fatalf("unexpected row after rehydration: %+v", got)
	}
}

func TestFailedTransactionSkipsPersist(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := openStubStore(t, db)

	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateParticipant(domain.Participant{Base: domain.Base{ID: domain.NewTempID()}})
		return err
	})
	if err == nil {
		t.Fatalf("expected transaction failure")
	}
	if len(conn.State) != 0 {
		t.Fatalf("failed transaction persisted buckets: %v", conn.State)
	}
}

func TestPersistErrorSurfaces(t *testing.T) {
	db, conn := testutil.NewStubDB()
	store := openStubStore(t, db)

	conn.FailCommit = true
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateStaff(domain.Staff{FirstName: "Ben", Role: "support worker"})
		return err
	})
	if err == nil {
		t.Fatalf("expected commit failure to surface")
	}
}

func TestOpenFailsWhenPingFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected open to fail on ping error")
	}
}
