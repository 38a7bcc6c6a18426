package domain

// Row is implemented by every entity via its embedded Base.
type Row interface {
	RowID() string
}

// DeleteRef identifies a persisted row queued for deletion. StorageKey and
// DisplayName are set for file-backed rows so the blob object can be removed
// alongside the database row and the removal can be described in the
// activity feed.
type DeleteRef struct {
	ID          string `json:"id"`
	StorageKey  string `json:"storage_key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Bucket buffers the not-yet-committed operations of one dependent
// collection. A row id appears in at most one of the three lists at any
// time; the mutators below maintain that invariant, so callers should not
// append to the lists directly when removing or re-staging rows.
//
// The zero value is an empty bucket. Buckets hold plain values only, so a
// fresh empty structure never shares state with a previous session.
type Bucket[T Row] struct {
	ToAdd    []T         `json:"to_add"`
	ToUpdate []T         `json:"to_update"`
	ToDelete []DeleteRef `json:"to_delete"`
}

// Add buffers a new row. The row should carry a temporary id (NewTempID) so
// the session can reference it before it is persisted.
func (b *Bucket[T]) Add(row T) {
	b.ToAdd = append(b.ToAdd, row)
}

// Stage buffers an edit. Edits to a not-yet-persisted row are folded into
// its ToAdd entry; edits to a row already queued for deletion are ignored.
func (b *Bucket[T]) Stage(row T) {
	id := row.RowID()
	for i, existing := range b.ToAdd {
		if existing.RowID() == id {
			b.ToAdd[i] = row
			return
		}
	}
	for _, ref := range b.ToDelete {
		if ref.ID == id {
			return
		}
	}
	for i, existing := range b.ToUpdate {
		if existing.RowID() == id {
			b.ToUpdate[i] = row
			return
		}
	}
	b.ToUpdate = append(b.ToUpdate, row)
}

// Remove queues a row for deletion. A row that only exists in ToAdd (never
// persisted) is dropped from the session entirely; its temporary id must
// never reach ToDelete, because temporary ids are not valid delete targets
// against the store.
func (b *Bucket[T]) Remove(ref DeleteRef) {
	if dropRow(&b.ToAdd, ref.ID) {
		return
	}
	dropRow(&b.ToUpdate, ref.ID)
	if IsTempID(ref.ID) {
		return
	}
	for _, existing := range b.ToDelete {
		if existing.ID == ref.ID {
			return
		}
	}
	b.ToDelete = append(b.ToDelete, ref)
}

// HasPending reports whether the bucket buffers any operation.
func (b *Bucket[T]) HasPending() bool {
	return len(b.ToAdd) > 0 || len(b.ToUpdate) > 0 || len(b.ToDelete) > 0
}

// Count returns the number of buffered operations.
func (b *Bucket[T]) Count() int {
	return len(b.ToAdd) + len(b.ToUpdate) + len(b.ToDelete)
}

// FileBucket buffers operations for file-backed collections (documents,
// resources). In-place edits are not modeled for uploads; rows are added or
// deleted, and deletes always carry the storage key of the object to remove.
type FileBucket[T Row] struct {
	ToAdd    []T         `json:"to_add"`
	ToDelete []DeleteRef `json:"to_delete"`
}

// Add buffers a new file row.
func (b *FileBucket[T]) Add(row T) {
	b.ToAdd = append(b.ToAdd, row)
}

// Remove queues a file row for deletion, dropping never-persisted rows from
// ToAdd instead of queueing their temporary ids.
func (b *FileBucket[T]) Remove(ref DeleteRef) {
	if dropRow(&b.ToAdd, ref.ID) {
		return
	}
	if IsTempID(ref.ID) {
		return
	}
	for _, existing := range b.ToDelete {
		if existing.ID == ref.ID {
			return
		}
	}
	b.ToDelete = append(b.ToDelete, ref)
}

// HasPending reports whether the bucket buffers any operation.
func (b *FileBucket[T]) HasPending() bool {
	return len(b.ToAdd) > 0 || len(b.ToDelete) > 0
}

// Count returns the number of buffered operations.
func (b *FileBucket[T]) Count() int {
	return len(b.ToAdd) + len(b.ToDelete)
}

func dropRow[T Row](rows *[]T, id string) bool {
	for i, row := range *rows {
		if row.RowID() == id {
			*rows = append((*rows)[:i], (*rows)[i+1:]...)
			return true
		}
	}
	return false
}

// ParticipantChanges buffers one editing session's collection changes for a
// participant detail view.
type ParticipantChanges struct {
	Goals       Bucket[Goal]          `json:"goals"`
	Medications Bucket[Medication]    `json:"medications"`
	Contacts    Bucket[Contact]       `json:"contacts"`
	Funding     Bucket[FundingRecord] `json:"funding"`
	ShiftNotes  Bucket[ShiftNote]     `json:"shift_notes"`
	Documents   FileBucket[Document]  `json:"documents"`
}

// NewParticipantChanges returns a fresh empty pending-changes structure.
func NewParticipantChanges() *ParticipantChanges { return &ParticipantChanges{} }

// HasPending reports whether any bucket buffers an operation.
func (c *ParticipantChanges) HasPending() bool {
	return c.Goals.HasPending() || c.Medications.HasPending() || c.Contacts.HasPending() ||
		c.Funding.HasPending() || c.ShiftNotes.HasPending() || c.Documents.HasPending()
}

// Count returns the total number of buffered operations, used for unsaved
// change badges.
func (c *ParticipantChanges) Count() int {
	return c.Goals.Count() + c.Medications.Count() + c.Contacts.Count() +
		c.Funding.Count() + c.ShiftNotes.Count() + c.Documents.Count()
}

// StaffChanges buffers one editing session's collection changes for a staff
// detail view.
type StaffChanges struct {
	Compliance Bucket[ComplianceRecord] `json:"compliance"`
	Documents  FileBucket[Document]     `json:"documents"`
}

// NewStaffChanges returns a fresh empty pending-changes structure.
func NewStaffChanges() *StaffChanges { return &StaffChanges{} }

// HasPending reports whether any bucket buffers an operation.
func (c *StaffChanges) HasPending() bool {
	return c.Compliance.HasPending() || c.Documents.HasPending()
}

// Count returns the total number of buffered operations.
func (c *StaffChanges) Count() int {
	return c.Compliance.Count() + c.Documents.Count()
}

// HouseChanges buffers one editing session's collection changes for a house
// detail view. ChecklistItems may reference a pending checklist by its
// temporary id; reconciliation commits Checklists first.
type HouseChanges struct {
	Checklists     Bucket[Checklist]     `json:"checklists"`
	ChecklistItems Bucket[ChecklistItem] `json:"checklist_items"`
	Events         Bucket[CalendarEvent] `json:"events"`
	Resources      FileBucket[Resource]  `json:"resources"`
	Documents      FileBucket[Document]  `json:"documents"`
}

// NewHouseChanges returns a fresh empty pending-changes structure.
func NewHouseChanges() *HouseChanges { return &HouseChanges{} }

// HasPending reports whether any bucket buffers an operation.
func (c *HouseChanges) HasPending() bool {
	return c.Checklists.HasPending() || c.ChecklistItems.HasPending() ||
		c.Events.HasPending() || c.Resources.HasPending() || c.Documents.HasPending()
}

// Count returns the total number of buffered operations.
func (c *HouseChanges) Count() int {
	return c.Checklists.Count() + c.ChecklistItems.Count() + c.Events.Count() +
		c.Resources.Count() + c.Documents.Count()
}
