// Package core exposes the transactional service layer: root entity CRUD,
// save reconciliation for pending changes, document and resource uploads,
// and the activity feed.
package core

import (
	"careops/pkg/domain"
	"fmt"
)

// Aliases re-exported for callers that only import core.
type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// ErrNotFound reports a missing entity by type and id.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
