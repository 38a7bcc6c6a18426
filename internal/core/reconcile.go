package core

import (
	"careops/internal/activity"
	"careops/pkg/domain"
	"context"
	"fmt"
)

// CommitResult summarizes one save reconciliation.
type CommitResult struct {
	// Root is the persistent id of the root entity the save was scoped to.
	Root string `json:"root_id"`
	// TempIDs maps each committed temporary id to the persistent id the
	// store assigned.
	TempIDs map[string]string `json:"temp_ids"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Deleted int               `json:"deleted"`
}

// ParticipantSave carries a participant detail edit session: the (possibly
// edited) root record plus all buffered collection changes.
type ParticipantSave struct {
	Participant domain.Participant
	Changes     *domain.ParticipantChanges
	UserName    string
}

// StaffSave carries a staff detail edit session.
type StaffSave struct {
	Staff    domain.Staff
	Changes  *domain.StaffChanges
	UserName string
}

// HouseSave carries a house detail edit session.
type HouseSave struct {
	House    domain.House
	Changes  *domain.HouseChanges
	UserName string
}

// bucketOps binds the generic commit loop to one entity's store operations.
// prepare runs on each row about to be inserted: it stamps the owner id,
// rewrites temporary references through the resolution map, and clears the
// row's identity so the store assigns a persistent id.
type bucketOps[T domain.Row] struct {
	entity  domain.EntityType
	prepare func(row *T, resolved map[string]string) error
	create  func(tx domain.Transaction, row T) (T, error)
	update  func(tx domain.Transaction, id string, mutator func(*T) error) (T, error)
	remove  func(tx domain.Transaction, id string) error
	name    func(row T) string
}

// commitBucket applies one bucket's buffered operations in delete, update,
// add order and appends one activity entry per row.
func commitBucket[T domain.Row](tx domain.Transaction, b *domain.Bucket[T], ops bucketOps[T], user string, res *CommitResult) error {
	for _, ref := range b.ToDelete {
		if err := ops.remove(tx, ref.ID); err != nil {
			return fmt.Errorf("delete %s %s: %w", ops.entity, ref.ID, err)
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionDelete,
			EntityType: ops.entity,
			EntityID:   ref.ID,
			EntityName: ref.DisplayName,
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	for _, row := range b.ToUpdate {
		var before T
		updated, err := ops.update(tx, row.RowID(), func(cur *T) error {
			before = *cur
			*cur = row
			return nil
		})
		if err != nil {
			return fmt.Errorf("update %s %s: %w", ops.entity, row.RowID(), err)
		}
		changes, err := domain.DetectRecordChanges(before, updated)
		if err != nil {
			return err
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionUpdate,
			EntityType: ops.entity,
			EntityID:   updated.RowID(),
			EntityName: ops.name(updated),
			UserName:   user,
			Changes:    changes,
		})); err != nil {
			return err
		}
	}
	for _, row := range b.ToAdd {
		tempID := row.RowID()
		if err := ops.prepare(&row, res.TempIDs); err != nil {
			return fmt.Errorf("prepare %s: %w", ops.entity, err)
		}
		created, err := ops.create(tx, row)
		if err != nil {
			return fmt.Errorf("create %s: %w", ops.entity, err)
		}
		if domain.IsTempID(tempID) {
			res.TempIDs[tempID] = created.RowID()
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: ops.entity,
			EntityID:   created.RowID(),
			EntityName: ops.name(created),
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	return nil
}

// tallyChanges derives the commit's operation counts from the transaction's
// change ledger, so the summary reflects every row the store actually
// mutated, root record included.
func tallyChanges(tx domain.Transaction, res *CommitResult) {
	for _, ch := range tx.Changes() {
		switch ch.Action {
		case domain.ActionCreate:
			res.Created++
		case domain.ActionUpdate:
			res.Updated++
		case domain.ActionDelete:
			res.Deleted++
		}
	}
}

// removeQueuedBlobs deletes the stored objects behind queued file deletions.
// It runs ahead of the store transaction: a row must never outlive a failed
// object removal, and blob deletion is idempotent so a later retry of a
// failed commit is safe.
func (s *Service) removeQueuedBlobs(ctx context.Context, refs ...[]domain.DeleteRef) error {
	for _, group := range refs {
		for _, ref := range group {
			if ref.StorageKey == "" {
				continue
			}
			if _, err := s.blobs.Delete(ctx, ref.StorageKey); err != nil {
				return fmt.Errorf("delete blob %s: %w", ref.StorageKey, err)
			}
		}
	}
	return nil
}

// resolveRef rewrites a temporary reference to the persistent id it was
// committed under. Persistent references pass through untouched.
func resolveRef(id string, resolved map[string]string) (string, error) {
	if !domain.IsTempID(id) {
		return id, nil
	}
	persistent, ok := resolved[id]
	if !ok {
		return "", fmt.Errorf("unresolved temporary reference %s", id)
	}
	return persistent, nil
}

// CommitParticipant persists an edited participant record and all of its
// buffered collection changes in one transaction. On success the returned
// changes structure is a fresh empty one; on failure the caller's original
// structure is returned untouched so the session can retry.
func (s *Service) CommitParticipant(ctx context.Context, save ParticipantSave) (CommitResult, *domain.ParticipantChanges, error) {
	changes := save.Changes
	if changes == nil {
		changes = domain.NewParticipantChanges()
	}
	user := userOrSystem(save.UserName)
	res := CommitResult{TempIDs: map[string]string{}}
	err := s.observe(ctx, "commit_participant", func() error {
		if err := s.removeQueuedBlobs(ctx, changes.Documents.ToDelete); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			root, err := s.commitParticipantRoot(tx, save.Participant, user)
			if err != nil {
				return err
			}
			res.Root = root.ID
			owner := root.ID

			if err := commitBucket(tx, &changes.Goals, bucketOps[domain.Goal]{
				entity: domain.EntityGoal,
				prepare: func(g *domain.Goal, _ map[string]string) error {
					g.Base = domain.Base{}
					g.ParticipantID = owner
					return nil
				},
				create: func(tx domain.Transaction, g domain.Goal) (domain.Goal, error) { return tx.CreateGoal(g) },
				update: func(tx domain.Transaction, id string, m func(*domain.Goal) error) (domain.Goal, error) {
					return tx.UpdateGoal(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteGoal(id) },
				name:   func(g domain.Goal) string { return g.Description },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.Medications, bucketOps[domain.Medication]{
				entity: domain.EntityMedication,
				prepare: func(m *domain.Medication, _ map[string]string) error {
					m.Base = domain.Base{}
					m.ParticipantID = owner
					return nil
				},
				create: func(tx domain.Transaction, m domain.Medication) (domain.Medication, error) {
					return tx.CreateMedication(m)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.Medication) error) (domain.Medication, error) {
					return tx.UpdateMedication(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteMedication(id) },
				name:   func(m domain.Medication) string { return m.Name },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.Contacts, bucketOps[domain.Contact]{
				entity: domain.EntityContact,
				prepare: func(c *domain.Contact, _ map[string]string) error {
					c.Base = domain.Base{}
					c.ParticipantID = owner
					return nil
				},
				create: func(tx domain.Transaction, c domain.Contact) (domain.Contact, error) {
					return tx.CreateContact(c)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.Contact) error) (domain.Contact, error) {
					return tx.UpdateContact(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteContact(id) },
				name:   func(c domain.Contact) string { return c.Name },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.Funding, bucketOps[domain.FundingRecord]{
				entity: domain.EntityFundingRecord,
				prepare: func(f *domain.FundingRecord, _ map[string]string) error {
					f.Base = domain.Base{}
					f.ParticipantID = owner
					return nil
				},
				create: func(tx domain.Transaction, f domain.FundingRecord) (domain.FundingRecord, error) {
					return tx.CreateFundingRecord(f)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.FundingRecord) error) (domain.FundingRecord, error) {
					return tx.UpdateFundingRecord(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteFundingRecord(id) },
				name:   func(f domain.FundingRecord) string { return f.Category },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.ShiftNotes, bucketOps[domain.ShiftNote]{
				entity: domain.EntityShiftNote,
				prepare: func(n *domain.ShiftNote, _ map[string]string) error {
					n.Base = domain.Base{}
					n.ParticipantID = owner
					return nil
				},
				create: func(tx domain.Transaction, n domain.ShiftNote) (domain.ShiftNote, error) {
					return tx.CreateShiftNote(n)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.ShiftNote) error) (domain.ShiftNote, error) {
					return tx.UpdateShiftNote(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteShiftNote(id) },
				name:   func(n domain.ShiftNote) string { return "shift note" },
			}, user, &res); err != nil {
				return err
			}

			if err := commitDocumentBucket(tx, &changes.Documents, domain.EntityParticipant, owner, user, &res); err != nil {
				return err
			}
			tallyChanges(tx, &res)
			return nil
		})
	})
	if err != nil {
		return CommitResult{}, changes, err
	}
	return res, domain.NewParticipantChanges(), nil
}

// CommitStaff persists an edited staff record and its buffered collection
// changes in one transaction.
func (s *Service) CommitStaff(ctx context.Context, save StaffSave) (CommitResult, *domain.StaffChanges, error) {
	changes := save.Changes
	if changes == nil {
		changes = domain.NewStaffChanges()
	}
	user := userOrSystem(save.UserName)
	res := CommitResult{TempIDs: map[string]string{}}
	err := s.observe(ctx, "commit_staff", func() error {
		if err := s.removeQueuedBlobs(ctx, changes.Documents.ToDelete); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			root, err := s.commitStaffRoot(tx, save.Staff, user)
			if err != nil {
				return err
			}
			res.Root = root.ID
			owner := root.ID

			if err := commitBucket(tx, &changes.Compliance, bucketOps[domain.ComplianceRecord]{
				entity: domain.EntityComplianceRecord,
				prepare: func(c *domain.ComplianceRecord, _ map[string]string) error {
					c.Base = domain.Base{}
					c.StaffID = owner
					return nil
				},
				create: func(tx domain.Transaction, c domain.ComplianceRecord) (domain.ComplianceRecord, error) {
					return tx.CreateComplianceRecord(c)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.ComplianceRecord) error) (domain.ComplianceRecord, error) {
					return tx.UpdateComplianceRecord(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteComplianceRecord(id) },
				name:   func(c domain.ComplianceRecord) string { return c.Name },
			}, user, &res); err != nil {
				return err
			}

			if err := commitDocumentBucket(tx, &changes.Documents, domain.EntityStaff, owner, user, &res); err != nil {
				return err
			}
			tallyChanges(tx, &res)
			return nil
		})
	})
	if err != nil {
		return CommitResult{}, changes, err
	}
	return res, domain.NewStaffChanges(), nil
}

// CommitHouse persists an edited house record and its buffered collection
// changes in one transaction. Checklists commit before checklist items so an
// item referencing a pending checklist by temporary id resolves to the
// persistent checklist id.
func (s *Service) CommitHouse(ctx context.Context, save HouseSave) (CommitResult, *domain.HouseChanges, error) {
	changes := save.Changes
	if changes == nil {
		changes = domain.NewHouseChanges()
	}
	user := userOrSystem(save.UserName)
	res := CommitResult{TempIDs: map[string]string{}}
	err := s.observe(ctx, "commit_house", func() error {
		if err := s.removeQueuedBlobs(ctx, changes.Resources.ToDelete, changes.Documents.ToDelete); err != nil {
			return err
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			root, err := s.commitHouseRoot(tx, save.House, user)
			if err != nil {
				return err
			}
			res.Root = root.ID
			owner := root.ID

			if err := commitBucket(tx, &changes.Checklists, bucketOps[domain.Checklist]{
				entity: domain.EntityChecklist,
				prepare: func(c *domain.Checklist, _ map[string]string) error {
					c.Base = domain.Base{}
					c.HouseID = owner
					return nil
				},
				create: func(tx domain.Transaction, c domain.Checklist) (domain.Checklist, error) {
					return tx.CreateChecklist(c)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.Checklist) error) (domain.Checklist, error) {
					return tx.UpdateChecklist(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteChecklist(id) },
				name:   func(c domain.Checklist) string { return c.Name },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.ChecklistItems, bucketOps[domain.ChecklistItem]{
				entity: domain.EntityChecklistItem,
				prepare: func(it *domain.ChecklistItem, resolved map[string]string) error {
					it.Base = domain.Base{}
					checklistID, err := resolveRef(it.ChecklistID, resolved)
					if err != nil {
						return err
					}
					it.ChecklistID = checklistID
					return nil
				},
				create: func(tx domain.Transaction, it domain.ChecklistItem) (domain.ChecklistItem, error) {
					return tx.CreateChecklistItem(it)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.ChecklistItem) error) (domain.ChecklistItem, error) {
					return tx.UpdateChecklistItem(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteChecklistItem(id) },
				name:   func(it domain.ChecklistItem) string { return it.Title },
			}, user, &res); err != nil {
				return err
			}

			if err := commitBucket(tx, &changes.Events, bucketOps[domain.CalendarEvent]{
				entity: domain.EntityCalendarEvent,
				prepare: func(e *domain.CalendarEvent, _ map[string]string) error {
					e.Base = domain.Base{}
					e.HouseID = owner
					return nil
				},
				create: func(tx domain.Transaction, e domain.CalendarEvent) (domain.CalendarEvent, error) {
					return tx.CreateCalendarEvent(e)
				},
				update: func(tx domain.Transaction, id string, m func(*domain.CalendarEvent) error) (domain.CalendarEvent, error) {
					return tx.UpdateCalendarEvent(id, m)
				},
				remove: func(tx domain.Transaction, id string) error { return tx.DeleteCalendarEvent(id) },
				name:   func(e domain.CalendarEvent) string { return e.Title },
			}, user, &res); err != nil {
				return err
			}

			if err := commitResourceBucket(tx, &changes.Resources, owner, user, &res); err != nil {
				return err
			}
			if err := commitDocumentBucket(tx, &changes.Documents, domain.EntityHouse, owner, user, &res); err != nil {
				return err
			}
			tallyChanges(tx, &res)
			return nil
		})
	})
	if err != nil {
		return CommitResult{}, changes, err
	}
	return res, domain.NewHouseChanges(), nil
}

func (s *Service) commitParticipantRoot(tx domain.Transaction, p domain.Participant, user string) (domain.Participant, error) {
	if p.ID == "" || domain.IsTempID(p.ID) {
		if p.Status == "" {
			p.Status = domain.StatusActive
		}
		p.Base = domain.Base{}
		created, err := tx.CreateParticipant(p)
		if err != nil {
			return domain.Participant{}, err
		}
		_, err = tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: domain.EntityParticipant,
			EntityID:   created.ID,
			EntityName: personName(created.FirstName, created.LastName),
			UserName:   user,
		}))
		return created, err
	}
	before, ok := tx.FindParticipant(p.ID)
	if !ok {
		return domain.Participant{}, ErrNotFound{Entity: domain.EntityParticipant, ID: p.ID}
	}
	changes, err := domain.DetectRecordChanges(before, p)
	if err != nil {
		return domain.Participant{}, err
	}
	if len(changes) == 0 {
		return before, nil
	}
	updated, err := tx.UpdateParticipant(p.ID, func(cur *domain.Participant) error {
		*cur = p
		return nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	_, err = tx.AppendActivity(activity.Entry(activity.Input{
		Action:     domain.ActionUpdate,
		EntityType: domain.EntityParticipant,
		EntityID:   updated.ID,
		EntityName: personName(updated.FirstName, updated.LastName),
		UserName:   user,
		Changes:    changes,
	}))
	return updated, err
}

func (s *Service) commitStaffRoot(tx domain.Transaction, st domain.Staff, user string) (domain.Staff, error) {
	if st.ID == "" || domain.IsTempID(st.ID) {
		if st.Status == "" {
			st.Status = domain.StatusActive
		}
		st.Base = domain.Base{}
		created, err := tx.CreateStaff(st)
		if err != nil {
			return domain.Staff{}, err
		}
		_, err = tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: domain.EntityStaff,
			EntityID:   created.ID,
			EntityName: personName(created.FirstName, created.LastName),
			UserName:   user,
		}))
		return created, err
	}
	before, ok := tx.FindStaff(st.ID)
	if !ok {
		return domain.Staff{}, ErrNotFound{Entity: domain.EntityStaff, ID: st.ID}
	}
	changes, err := domain.DetectRecordChanges(before, st)
	if err != nil {
		return domain.Staff{}, err
	}
	if len(changes) == 0 {
		return before, nil
	}
	updated, err := tx.UpdateStaff(st.ID, func(cur *domain.Staff) error {
		*cur = st
		return nil
	})
	if err != nil {
		return domain.Staff{}, err
	}
	_, err = tx.AppendActivity(activity.Entry(activity.Input{
		Action:     domain.ActionUpdate,
		EntityType: domain.EntityStaff,
		EntityID:   updated.ID,
		EntityName: personName(updated.FirstName, updated.LastName),
		UserName:   user,
		Changes:    changes,
	}))
	return updated, err
}

func (s *Service) commitHouseRoot(tx domain.Transaction, h domain.House, user string) (domain.House, error) {
	if h.ID == "" || domain.IsTempID(h.ID) {
		if h.Status == "" {
			h.Status = domain.StatusActive
		}
		h.Base = domain.Base{}
		created, err := tx.CreateHouse(h)
		if err != nil {
			return domain.House{}, err
		}
		_, err = tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: domain.EntityHouse,
			EntityID:   created.ID,
			EntityName: created.Name,
			UserName:   user,
		}))
		return created, err
	}
	before, ok := tx.FindHouse(h.ID)
	if !ok {
		return domain.House{}, ErrNotFound{Entity: domain.EntityHouse, ID: h.ID}
	}
	changes, err := domain.DetectRecordChanges(before, h)
	if err != nil {
		return domain.House{}, err
	}
	if len(changes) == 0 {
		return before, nil
	}
	updated, err := tx.UpdateHouse(h.ID, func(cur *domain.House) error {
		*cur = h
		return nil
	})
	if err != nil {
		return domain.House{}, err
	}
	_, err = tx.AppendActivity(activity.Entry(activity.Input{
		Action:     domain.ActionUpdate,
		EntityType: domain.EntityHouse,
		EntityID:   updated.ID,
		EntityName: updated.Name,
		UserName:   user,
		Changes:    changes,
	}))
	return updated, err
}

// commitDocumentBucket applies a document file bucket. The blob objects
// behind queued deletions are already gone by the time this runs (see
// removeQueuedBlobs); adds create rows for already-uploaded objects (upload
// happens before the save via UploadDocument queuing, so StorageKey is
// already set).
func commitDocumentBucket(tx domain.Transaction, b *domain.FileBucket[domain.Document], ownerType domain.EntityType, ownerID, user string, res *CommitResult) error {
	for _, ref := range b.ToDelete {
		if err := tx.DeleteDocument(ref.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", ref.ID, err)
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionDelete,
			EntityType: domain.EntityDocument,
			EntityID:   ref.ID,
			EntityName: ref.DisplayName,
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	for _, row := range b.ToAdd {
		tempID := row.RowID()
		row.Base = domain.Base{}
		row.OwnerType = ownerType
		row.OwnerID = ownerID
		created, err := tx.CreateDocument(row)
		if err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if domain.IsTempID(tempID) {
			res.TempIDs[tempID] = created.ID
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: domain.EntityDocument,
			EntityID:   created.ID,
			EntityName: created.Name,
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	return nil
}

// commitResourceBucket mirrors commitDocumentBucket for house resources.
func commitResourceBucket(tx domain.Transaction, b *domain.FileBucket[domain.Resource], houseID, user string, res *CommitResult) error {
	for _, ref := range b.ToDelete {
		if err := tx.DeleteResource(ref.ID); err != nil {
			return fmt.Errorf("delete resource %s: %w", ref.ID, err)
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionDelete,
			EntityType: domain.EntityResource,
			EntityID:   ref.ID,
			EntityName: ref.DisplayName,
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	for _, row := range b.ToAdd {
		tempID := row.RowID()
		row.Base = domain.Base{}
		row.HouseID = houseID
		created, err := tx.CreateResource(row)
		if err != nil {
			return fmt.Errorf("create resource: %w", err)
		}
		if domain.IsTempID(tempID) {
			res.TempIDs[tempID] = created.ID
		}
		if _, err := tx.AppendActivity(activity.Entry(activity.Input{
			Action:     domain.ActionCreate,
			EntityType: domain.EntityResource,
			EntityID:   created.ID,
			EntityName: created.Name,
			UserName:   user,
		})); err != nil {
			return err
		}
	}
	return nil
}
