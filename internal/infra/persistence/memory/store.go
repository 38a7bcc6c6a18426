// Package memory provides the in-memory implementation of the core
// persistence store. It is the canonical implementation: transactions run
// against a cloned state that is swapped in atomically on success, and the
// durable backends persist snapshots of this state.
package memory

import (
	"careops/pkg/domain"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store satisfies the domain
// persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type memoryState struct {
	participants   map[string]domain.Participant
	staff          map[string]domain.Staff
	houses         map[string]domain.House
	goals          map[string]domain.Goal
	medications    map[string]domain.Medication
	contacts       map[string]domain.Contact
	funding        map[string]domain.FundingRecord
	shiftNotes     map[string]domain.ShiftNote
	compliance     map[string]domain.ComplianceRecord
	checklists     map[string]domain.Checklist
	checklistItems map[string]domain.ChecklistItem
	events         map[string]domain.CalendarEvent
	documents      map[string]domain.Document
	resources      map[string]domain.Resource
	activity       []domain.ActivityEntry
}

// Snapshot captures a point-in-time clone of the store state for external
// persistence.
type Snapshot struct {
	Participants   map[string]domain.Participant     `json:"participants"`
	Staff          map[string]domain.Staff           `json:"staff"`
	Houses         map[string]domain.House           `json:"houses"`
	Goals          map[string]domain.Goal            `json:"goals"`
	Medications    map[string]domain.Medication      `json:"medications"`
	Contacts       map[string]domain.Contact         `json:"contacts"`
	Funding        map[string]domain.FundingRecord   `json:"funding"`
	ShiftNotes     map[string]domain.ShiftNote       `json:"shift_notes"`
	Compliance     map[string]domain.ComplianceRecord `json:"compliance"`
	Checklists     map[string]domain.Checklist       `json:"checklists"`
	ChecklistItems map[string]domain.ChecklistItem   `json:"checklist_items"`
	Events         map[string]domain.CalendarEvent   `json:"events"`
	Documents      map[string]domain.Document        `json:"documents"`
	Resources      map[string]domain.Resource        `json:"resources"`
	Activity       []domain.ActivityEntry            `json:"activity"`
}

func newMemoryState() memoryState {
	return memoryState{
		participants:   make(map[string]domain.Participant),
		staff:          make(map[string]domain.Staff),
		houses:         make(map[string]domain.House),
		goals:          make(map[string]domain.Goal),
		medications:    make(map[string]domain.Medication),
		contacts:       make(map[string]domain.Contact),
		funding:        make(map[string]domain.FundingRecord),
		shiftNotes:     make(map[string]domain.ShiftNote),
		compliance:     make(map[string]domain.ComplianceRecord),
		checklists:     make(map[string]domain.Checklist),
		checklistItems: make(map[string]domain.ChecklistItem),
		events:         make(map[string]domain.CalendarEvent),
		documents:      make(map[string]domain.Document),
		resources:      make(map[string]domain.Resource),
	}
}

func cloneMap[T any](src map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(src))
	for k, v := range src {
		out[k] = clone(v)
	}
	return out
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		participants:   cloneMap(s.participants, cloneParticipant),
		staff:          cloneMap(s.staff, cloneStaff),
		houses:         cloneMap(s.houses, cloneHouse),
		goals:          cloneMap(s.goals, cloneGoal),
		medications:    cloneMap(s.medications, cloneMedication),
		contacts:       cloneMap(s.contacts, cloneContact),
		funding:        cloneMap(s.funding, cloneFunding),
		shiftNotes:     cloneMap(s.shiftNotes, cloneShiftNote),
		compliance:     cloneMap(s.compliance, cloneCompliance),
		checklists:     cloneMap(s.checklists, cloneChecklist),
		checklistItems: cloneMap(s.checklistItems, cloneChecklistItem),
		events:         cloneMap(s.events, cloneEvent),
		documents:      cloneMap(s.documents, cloneDocument),
		resources:      cloneMap(s.resources, cloneResource),
		activity:       append([]domain.ActivityEntry(nil), s.activity...),
	}
	return cloned
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func cloneParticipant(p domain.Participant) domain.Participant {
	cp := p
	cp.DateOfBirth = cloneTimePtr(p.DateOfBirth)
	cp.HouseID = cloneStringPtr(p.HouseID)
	return cp
}

func cloneStaff(s domain.Staff) domain.Staff {
	cp := s
	cp.HireDate = cloneTimePtr(s.HireDate)
	return cp
}

func cloneHouse(h domain.House) domain.House { return h }

func cloneGoal(g domain.Goal) domain.Goal {
	cp := g
	cp.TargetDate = cloneTimePtr(g.TargetDate)
	return cp
}

func cloneMedication(m domain.Medication) domain.Medication { return m }
func cloneContact(c domain.Contact) domain.Contact          { return c }

func cloneFunding(f domain.FundingRecord) domain.FundingRecord {
	cp := f
	cp.StartDate = cloneTimePtr(f.StartDate)
	cp.EndDate = cloneTimePtr(f.EndDate)
	return cp
}

func cloneShiftNote(n domain.ShiftNote) domain.ShiftNote {
	cp := n
	cp.HouseID = cloneStringPtr(n.HouseID)
	return cp
}

func cloneCompliance(c domain.ComplianceRecord) domain.ComplianceRecord {
	cp := c
	cp.IssuedAt = cloneTimePtr(c.IssuedAt)
	cp.ExpiresAt = cloneTimePtr(c.ExpiresAt)
	return cp
}

func cloneChecklist(c domain.Checklist) domain.Checklist              { return c }
func cloneChecklistItem(i domain.ChecklistItem) domain.ChecklistItem  { return i }
func cloneEvent(e domain.CalendarEvent) domain.CalendarEvent          { return e }
func cloneDocument(d domain.Document) domain.Document                 { return d }
func cloneResource(r domain.Resource) domain.Resource                 { return r }

func cloneActivity(e domain.ActivityEntry) domain.ActivityEntry {
	cp := e
	if e.Metadata != nil {
		cp.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Participants:   cloneMap(state.participants, cloneParticipant),
		Staff:          cloneMap(state.staff, cloneStaff),
		Houses:         cloneMap(state.houses, cloneHouse),
		Goals:          cloneMap(state.goals, cloneGoal),
		Medications:    cloneMap(state.medications, cloneMedication),
		Contacts:       cloneMap(state.contacts, cloneContact),
		Funding:        cloneMap(state.funding, cloneFunding),
		ShiftNotes:     cloneMap(state.shiftNotes, cloneShiftNote),
		Compliance:     cloneMap(state.compliance, cloneCompliance),
		Checklists:     cloneMap(state.checklists, cloneChecklist),
		ChecklistItems: cloneMap(state.checklistItems, cloneChecklistItem),
		Events:         cloneMap(state.events, cloneEvent),
		Documents:      cloneMap(state.documents, cloneDocument),
		Resources:      cloneMap(state.resources, cloneResource),
	}
	s.Activity = make([]domain.ActivityEntry, 0, len(state.activity))
	for _, e := range state.activity {
		s.Activity = append(s.Activity, cloneActivity(e))
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Participants {
		state.participants[k] = cloneParticipant(v)
	}
	for k, v := range s.Staff {
		state.staff[k] = cloneStaff(v)
	}
	for k, v := range s.Houses {
		state.houses[k] = cloneHouse(v)
	}
	for k, v := range s.Goals {
		state.goals[k] = cloneGoal(v)
	}
	for k, v := range s.Medications {
		state.medications[k] = cloneMedication(v)
	}
	for k, v := range s.Contacts {
		state.contacts[k] = cloneContact(v)
	}
	for k, v := range s.Funding {
		state.funding[k] = cloneFunding(v)
	}
	for k, v := range s.ShiftNotes {
		state.shiftNotes[k] = cloneShiftNote(v)
	}
	for k, v := range s.Compliance {
		state.compliance[k] = cloneCompliance(v)
	}
	for k, v := range s.Checklists {
		state.checklists[k] = cloneChecklist(v)
	}
	for k, v := range s.ChecklistItems {
		state.checklistItems[k] = cloneChecklistItem(v)
	}
	for k, v := range s.Events {
		state.events[k] = cloneEvent(v)
	}
	for k, v := range s.Documents {
		state.documents[k] = cloneDocument(v)
	}
	for k, v := range s.Resources {
		state.resources[k] = cloneResource(v)
	}
	for _, e := range s.Activity {
		state.activity = append(state.activity, cloneActivity(e))
	}
	return state
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	nowFn func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the time provider; tests use it to freeze the clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

func newID() string { return uuid.NewString() }

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	changes []domain.Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the live state only when fn returns nil, so a
// failing commit leaves the store untouched.
func (s *Store) RunInTransaction(_ context.Context, fn func(domain.Transaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(&transactionView{state: &snapshot})
}

// Changes returns the mutations recorded so far within the transaction.
func (tx *transaction) Changes() []domain.Change {
	return append([]domain.Change(nil), tx.changes...)
}

func (tx *transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// create inserts the row into bucket after identity checks, stamping
// timestamps and recording the change. base must point into *row.
func create[T domain.Row](tx *transaction, bucket map[string]T, entity domain.EntityType, row *T, base *domain.Base) (T, error) {
	var zero T
	if domain.IsTempID(base.ID) {
		return zero, fmt.Errorf("%s: temporary id %q is not a valid primary key", entity, base.ID)
	}
	if base.ID == "" {
		base.ID = newID()
	}
	if _, exists := bucket[base.ID]; exists {
		return zero, fmt.Errorf("%s %q already exists", entity, base.ID)
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	bucket[base.ID] = *row
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionCreate, ID: base.ID, After: *row})
	return *row, nil
}

// update applies mutator to the stored row, preserving identity and creation
// time regardless of what the mutator wrote.
func update[T domain.Row](tx *transaction, bucket map[string]T, entity domain.EntityType, id string, clone func(T) T, mutator func(*T) error, base func(*T) *domain.Base) (T, error) {
	var zero T
	current, ok := bucket[id]
	if !ok {
		return zero, fmt.Errorf("%s %q not found", entity, id)
	}
	before := clone(current)
	if err := mutator(&current); err != nil {
		return zero, err
	}
	b := base(&current)
	b.ID = id
	b.CreatedAt = base(&before).CreatedAt
	b.UpdatedAt = tx.now
	bucket[id] = current
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionUpdate, ID: id, Before: before, After: clone(current)})
	return clone(current), nil
}

func remove[T domain.Row](tx *transaction, bucket map[string]T, entity domain.EntityType, id string) error {
	current, ok := bucket[id]
	if !ok {
		return fmt.Errorf("%s %q not found", entity, id)
	}
	delete(bucket, id)
	tx.recordChange(domain.Change{Entity: entity, Action: domain.ActionDelete, ID: id, Before: current})
	return nil
}

// CreateParticipant stores a new participant within the transaction.
func (tx *transaction) CreateParticipant(p domain.Participant) (domain.Participant, error) {
	p = cloneParticipant(p)
	return create(tx, tx.state.participants, domain.EntityParticipant, &p, &p.Base)
}

// UpdateParticipant mutates a participant using the provided mutator.
func (tx *transaction) UpdateParticipant(id string, mutator func(*domain.Participant) error) (domain.Participant, error) {
	return update(tx, tx.state.participants, domain.EntityParticipant, id, cloneParticipant, mutator,
		func(p *domain.Participant) *domain.Base { return &p.Base })
}

// CreateStaff stores a new staff record.
func (tx *transaction) CreateStaff(s domain.Staff) (domain.Staff, error) {
	s = cloneStaff(s)
	return create(tx, tx.state.staff, domain.EntityStaff, &s, &s.Base)
}

// UpdateStaff mutates a staff record.
func (tx *transaction) UpdateStaff(id string, mutator func(*domain.Staff) error) (domain.Staff, error) {
	return update(tx, tx.state.staff, domain.EntityStaff, id, cloneStaff, mutator,
		func(s *domain.Staff) *domain.Base { return &s.Base })
}

// CreateHouse stores a new house record.
func (tx *transaction) CreateHouse(h domain.House) (domain.House, error) {
	h = cloneHouse(h)
	return create(tx, tx.state.houses, domain.EntityHouse, &h, &h.Base)
}

// UpdateHouse mutates a house record.
func (tx *transaction) UpdateHouse(id string, mutator func(*domain.House) error) (domain.House, error) {
	return update(tx, tx.state.houses, domain.EntityHouse, id, cloneHouse, mutator,
		func(h *domain.House) *domain.Base { return &h.Base })
}

// CreateGoal stores a new goal.
func (tx *transaction) CreateGoal(g domain.Goal) (domain.Goal, error) {
	g = cloneGoal(g)
	return create(tx, tx.state.goals, domain.EntityGoal, &g, &g.Base)
}

// UpdateGoal mutates an existing goal.
func (tx *transaction) UpdateGoal(id string, mutator func(*domain.Goal) error) (domain.Goal, error) {
	return update(tx, tx.state.goals, domain.EntityGoal, id, cloneGoal, mutator,
		func(g *domain.Goal) *domain.Base { return &g.Base })
}

// DeleteGoal removes a goal from state.
func (tx *transaction) DeleteGoal(id string) error {
	return remove(tx, tx.state.goals, domain.EntityGoal, id)
}

// CreateMedication stores a new medication entry.
func (tx *transaction) CreateMedication(m domain.Medication) (domain.Medication, error) {
	m = cloneMedication(m)
	return create(tx, tx.state.medications, domain.EntityMedication, &m, &m.Base)
}

// UpdateMedication mutates an existing medication entry.
func (tx *transaction) UpdateMedication(id string, mutator func(*domain.Medication) error) (domain.Medication, error) {
	return update(tx, tx.state.medications, domain.EntityMedication, id, cloneMedication, mutator,
		func(m *domain.Medication) *domain.Base { return &m.Base })
}

// DeleteMedication removes a medication entry.
func (tx *transaction) DeleteMedication(id string) error {
	return remove(tx, tx.state.medications, domain.EntityMedication, id)
}

// CreateContact stores a new contact.
func (tx *transaction) CreateContact(c domain.Contact) (domain.Contact, error) {
	c = cloneContact(c)
	return create(tx, tx.state.contacts, domain.EntityContact, &c, &c.Base)
}

// UpdateContact mutates an existing contact.
func (tx *transaction) UpdateContact(id string, mutator func(*domain.Contact) error) (domain.Contact, error) {
	return update(tx, tx.state.contacts, domain.EntityContact, id, cloneContact, mutator,
		func(c *domain.Contact) *domain.Base { return &c.Base })
}

// DeleteContact removes a contact.
func (tx *transaction) DeleteContact(id string) error {
	return remove(tx, tx.state.contacts, domain.EntityContact, id)
}

// CreateFundingRecord stores a new funding record.
func (tx *transaction) CreateFundingRecord(f domain.FundingRecord) (domain.FundingRecord, error) {
	f = cloneFunding(f)
	return create(tx, tx.state.funding, domain.EntityFundingRecord, &f, &f.Base)
}

// UpdateFundingRecord mutates an existing funding record.
func (tx *transaction) UpdateFundingRecord(id string, mutator func(*domain.FundingRecord) error) (domain.FundingRecord, error) {
	return update(tx, tx.state.funding, domain.EntityFundingRecord, id, cloneFunding, mutator,
		func(f *domain.FundingRecord) *domain.Base { return &f.Base })
}

// DeleteFundingRecord removes a funding record.
func (tx *transaction) DeleteFundingRecord(id string) error {
	return remove(tx, tx.state.funding, domain.EntityFundingRecord, id)
}

// CreateShiftNote stores a new shift note.
func (tx *transaction) CreateShiftNote(n domain.ShiftNote) (domain.ShiftNote, error) {
	n = cloneShiftNote(n)
	return create(tx, tx.state.shiftNotes, domain.EntityShiftNote, &n, &n.Base)
}

// UpdateShiftNote mutates an existing shift note.
func (tx *transaction) UpdateShiftNote(id string, mutator func(*domain.ShiftNote) error) (domain.ShiftNote, error) {
	return update(tx, tx.state.shiftNotes, domain.EntityShiftNote, id, cloneShiftNote, mutator,
		func(n *domain.ShiftNote) *domain.Base { return &n.Base })
}

// DeleteShiftNote removes a shift note.
func (tx *transaction) DeleteShiftNote(id string) error {
	return remove(tx, tx.state.shiftNotes, domain.EntityShiftNote, id)
}

// CreateComplianceRecord stores a new compliance record.
func (tx *transaction) CreateComplianceRecord(c domain.ComplianceRecord) (domain.ComplianceRecord, error) {
	c = cloneCompliance(c)
	return create(tx, tx.state.compliance, domain.EntityComplianceRecord, &c, &c.Base)
}

// UpdateComplianceRecord mutates an existing compliance record.
func (tx *transaction) UpdateComplianceRecord(id string, mutator func(*domain.ComplianceRecord) error) (domain.ComplianceRecord, error) {
	return update(tx, tx.state.compliance, domain.EntityComplianceRecord, id, cloneCompliance, mutator,
		func(c *domain.ComplianceRecord) *domain.Base { return &c.Base })
}

// DeleteComplianceRecord removes a compliance record.
func (tx *transaction) DeleteComplianceRecord(id string) error {
	return remove(tx, tx.state.compliance, domain.EntityComplianceRecord, id)
}

// CreateChecklist stores a new checklist.
func (tx *transaction) CreateChecklist(c domain.Checklist) (domain.Checklist, error) {
	c = cloneChecklist(c)
	return create(tx, tx.state.checklists, domain.EntityChecklist, &c, &c.Base)
}

// UpdateChecklist mutates an existing checklist.
func (tx *transaction) UpdateChecklist(id string, mutator func(*domain.Checklist) error) (domain.Checklist, error) {
	return update(tx, tx.state.checklists, domain.EntityChecklist, id, cloneChecklist, mutator,
		func(c *domain.Checklist) *domain.Base { return &c.Base })
}

// DeleteChecklist removes a checklist and leaves its items to the caller;
// reconciliation deletes items explicitly so each removal is audited.
func (tx *transaction) DeleteChecklist(id string) error {
	return remove(tx, tx.state.checklists, domain.EntityChecklist, id)
}

// CreateChecklistItem stores a new checklist item. The referenced checklist
// must already exist with a persistent id.
func (tx *transaction) CreateChecklistItem(i domain.ChecklistItem) (domain.ChecklistItem, error) {
	if domain.IsTempID(i.ChecklistID) {
		return domain.ChecklistItem{}, fmt.Errorf("checklist_item: unresolved checklist reference %q", i.ChecklistID)
	}
	if _, ok := tx.state.checklists[i.ChecklistID]; !ok {
		return domain.ChecklistItem{}, fmt.Errorf("checklist %q not found", i.ChecklistID)
	}
	i = cloneChecklistItem(i)
	return create(tx, tx.state.checklistItems, domain.EntityChecklistItem, &i, &i.Base)
}

// UpdateChecklistItem mutates an existing checklist item.
func (tx *transaction) UpdateChecklistItem(id string, mutator func(*domain.ChecklistItem) error) (domain.ChecklistItem, error) {
	return update(tx, tx.state.checklistItems, domain.EntityChecklistItem, id, cloneChecklistItem, mutator,
		func(i *domain.ChecklistItem) *domain.Base { return &i.Base })
}

// DeleteChecklistItem removes a checklist item.
func (tx *transaction) DeleteChecklistItem(id string) error {
	return remove(tx, tx.state.checklistItems, domain.EntityChecklistItem, id)
}

// CreateCalendarEvent stores a new calendar event.
func (tx *transaction) CreateCalendarEvent(e domain.CalendarEvent) (domain.CalendarEvent, error) {
	e = cloneEvent(e)
	return create(tx, tx.state.events, domain.EntityCalendarEvent, &e, &e.Base)
}

// UpdateCalendarEvent mutates an existing calendar event.
func (tx *transaction) UpdateCalendarEvent(id string, mutator func(*domain.CalendarEvent) error) (domain.CalendarEvent, error) {
	return update(tx, tx.state.events, domain.EntityCalendarEvent, id, cloneEvent, mutator,
		func(e *domain.CalendarEvent) *domain.Base { return &e.Base })
}

// DeleteCalendarEvent removes a calendar event.
func (tx *transaction) DeleteCalendarEvent(id string) error {
	return remove(tx, tx.state.events, domain.EntityCalendarEvent, id)
}

// CreateDocument stores a new document row.
func (tx *transaction) CreateDocument(d domain.Document) (domain.Document, error) {
	d = cloneDocument(d)
	return create(tx, tx.state.documents, domain.EntityDocument, &d, &d.Base)
}

// DeleteDocument removes a document row. Removing the underlying storage
// object is the caller's responsibility and happens first.
func (tx *transaction) DeleteDocument(id string) error {
	return remove(tx, tx.state.documents, domain.EntityDocument, id)
}

// CreateResource stores a new resource row.
func (tx *transaction) CreateResource(r domain.Resource) (domain.Resource, error) {
	r = cloneResource(r)
	return create(tx, tx.state.resources, domain.EntityResource, &r, &r.Base)
}

// DeleteResource removes a resource row.
func (tx *transaction) DeleteResource(id string) error {
	return remove(tx, tx.state.resources, domain.EntityResource, id)
}

// FindParticipant retrieves a participant from the transactional state.
func (tx *transaction) FindParticipant(id string) (domain.Participant, bool) {
	p, ok := tx.state.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return cloneParticipant(p), true
}

// FindStaff retrieves a staff record from the transactional state.
func (tx *transaction) FindStaff(id string) (domain.Staff, bool) {
	s, ok := tx.state.staff[id]
	if !ok {
		return domain.Staff{}, false
	}
	return cloneStaff(s), true
}

// FindHouse retrieves a house from the transactional state.
func (tx *transaction) FindHouse(id string) (domain.House, bool) {
	h, ok := tx.state.houses[id]
	if !ok {
		return domain.House{}, false
	}
	return cloneHouse(h), true
}

// FindChecklist retrieves a checklist from the transactional state.
func (tx *transaction) FindChecklist(id string) (domain.Checklist, bool) {
	c, ok := tx.state.checklists[id]
	if !ok {
		return domain.Checklist{}, false
	}
	return cloneChecklist(c), true
}

// AppendActivity adds an audit entry to the append-only activity log.
func (tx *transaction) AppendActivity(entry domain.ActivityEntry) (domain.ActivityEntry, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = tx.now
	}
	tx.state.activity = append(tx.state.activity, cloneActivity(entry))
	return entry, nil
}

// transactionView provides read-only access to a cloned state.
type transactionView struct {
	state *memoryState
}

func sortedRows[T domain.Row](bucket map[string]T, clone func(T) T, less func(a, b T) bool) []T {
	out := make([]T, 0, len(bucket))
	for _, v := range bucket {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreation[T domain.Row](base func(T) domain.Base) func(a, b T) bool {
	return func(a, b T) bool {
		ba, bb := base(a), base(b)
		if !ba.CreatedAt.Equal(bb.CreatedAt) {
			return ba.CreatedAt.Before(bb.CreatedAt)
		}
		return ba.ID < bb.ID
	}
}

func filteredRows[T domain.Row](bucket map[string]T, clone func(T) T, less func(a, b T) bool, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, v := range bucket {
		if keep(v) {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func listParticipants(state *memoryState) []domain.Participant {
	return sortedRows(state.participants, cloneParticipant, byCreation(func(p domain.Participant) domain.Base { return p.Base }))
}

func listStaff(state *memoryState) []domain.Staff {
	return sortedRows(state.staff, cloneStaff, byCreation(func(s domain.Staff) domain.Base { return s.Base }))
}

func listHouses(state *memoryState) []domain.House {
	return sortedRows(state.houses, cloneHouse, byCreation(func(h domain.House) domain.Base { return h.Base }))
}

func listActivity(state *memoryState, filter domain.ActivityFilter) []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, 0, len(state.activity))
	for i := len(state.activity) - 1; i >= 0; i-- {
		e := state.activity[i]
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		out = append(out, cloneActivity(e))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// ListParticipants returns all participants ordered by creation time.
func (v *transactionView) ListParticipants() []domain.Participant { return listParticipants(v.state) }

// ListStaff returns all staff ordered by creation time.
func (v *transactionView) ListStaff() []domain.Staff { return listStaff(v.state) }

// ListHouses returns all houses ordered by creation time.
func (v *transactionView) ListHouses() []domain.House { return listHouses(v.state) }

// FindParticipant retrieves a participant from the snapshot.
func (v *transactionView) FindParticipant(id string) (domain.Participant, bool) {
	p, ok := v.state.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return cloneParticipant(p), true
}

// FindStaff retrieves a staff record from the snapshot.
func (v *transactionView) FindStaff(id string) (domain.Staff, bool) {
	s, ok := v.state.staff[id]
	if !ok {
		return domain.Staff{}, false
	}
	return cloneStaff(s), true
}

// FindHouse retrieves a house from the snapshot.
func (v *transactionView) FindHouse(id string) (domain.House, bool) {
	h, ok := v.state.houses[id]
	if !ok {
		return domain.House{}, false
	}
	return cloneHouse(h), true
}

// ListActivity returns activity entries newest first, honoring the filter.
func (v *transactionView) ListActivity(filter domain.ActivityFilter) []domain.ActivityEntry {
	return listActivity(v.state, filter)
}

// GetParticipant retrieves a participant by id.
func (s *Store) GetParticipant(id string) (domain.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.participants[id]
	if !ok {
		return domain.Participant{}, false
	}
	return cloneParticipant(p), true
}

// ListParticipants returns all participants ordered by creation time.
func (s *Store) ListParticipants() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listParticipants(&s.state)
}

// GetStaff retrieves a staff record by id.
func (s *Store) GetStaff(id string) (domain.Staff, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.staff[id]
	if !ok {
		return domain.Staff{}, false
	}
	return cloneStaff(st), true
}

// ListStaff returns all staff ordered by creation time.
func (s *Store) ListStaff() []domain.Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStaff(&s.state)
}

// GetHouse retrieves a house by id.
func (s *Store) GetHouse(id string) (domain.House, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.state.houses[id]
	if !ok {
		return domain.House{}, false
	}
	return cloneHouse(h), true
}

// ListHouses returns all houses ordered by creation time.
func (s *Store) ListHouses() []domain.House {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHouses(&s.state)
}

// ListGoals returns a participant's goals ordered by creation time.
func (s *Store) ListGoals(participantID string) []domain.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.goals, cloneGoal, byCreation(func(g domain.Goal) domain.Base { return g.Base }),
		func(g domain.Goal) bool { return g.ParticipantID == participantID })
}

// ListMedications returns a participant's medications ordered by creation time.
func (s *Store) ListMedications(participantID string) []domain.Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.medications, cloneMedication, byCreation(func(m domain.Medication) domain.Base { return m.Base }),
		func(m domain.Medication) bool { return m.ParticipantID == participantID })
}

// ListContacts returns a participant's contacts ordered by creation time.
func (s *Store) ListContacts(participantID string) []domain.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.contacts, cloneContact, byCreation(func(c domain.Contact) domain.Base { return c.Base }),
		func(c domain.Contact) bool { return c.ParticipantID == participantID })
}

// ListFundingRecords returns a participant's funding records ordered by
// creation time.
func (s *Store) ListFundingRecords(participantID string) []domain.FundingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.funding, cloneFunding, byCreation(func(f domain.FundingRecord) domain.Base { return f.Base }),
		func(f domain.FundingRecord) bool { return f.ParticipantID == participantID })
}

// ListShiftNotes returns a participant's shift notes ordered by creation time.
func (s *Store) ListShiftNotes(participantID string) []domain.ShiftNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.shiftNotes, cloneShiftNote, byCreation(func(n domain.ShiftNote) domain.Base { return n.Base }),
		func(n domain.ShiftNote) bool { return n.ParticipantID == participantID })
}

// ListComplianceRecords returns a staff member's compliance records ordered by
// creation time.
func (s *Store) ListComplianceRecords(staffID string) []domain.ComplianceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.compliance, cloneCompliance, byCreation(func(c domain.ComplianceRecord) domain.Base { return c.Base }),
		func(c domain.ComplianceRecord) bool { return c.StaffID == staffID })
}

// ListChecklists returns a house's checklists ordered by creation time.
func (s *Store) ListChecklists(houseID string) []domain.Checklist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.checklists, cloneChecklist, byCreation(func(c domain.Checklist) domain.Base { return c.Base }),
		func(c domain.Checklist) bool { return c.HouseID == houseID })
}

// ListChecklistItems returns a checklist's items ordered by position.
func (s *Store) ListChecklistItems(checklistID string) []domain.ChecklistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := filteredRows(s.state.checklistItems, cloneChecklistItem, byCreation(func(i domain.ChecklistItem) domain.Base { return i.Base }),
		func(i domain.ChecklistItem) bool { return i.ChecklistID == checklistID })
	sort.SliceStable(items, func(a, b int) bool { return items[a].Position < items[b].Position })
	return items
}

// ListCalendarEvents returns a house's calendar events ordered by start time.
func (s *Store) ListCalendarEvents(houseID string) []domain.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := filteredRows(s.state.events, cloneEvent, byCreation(func(e domain.CalendarEvent) domain.Base { return e.Base }),
		func(e domain.CalendarEvent) bool { return e.HouseID == houseID })
	sort.SliceStable(events, func(a, b int) bool { return events[a].StartsAt.Before(events[b].StartsAt) })
	return events
}

// ListDocuments returns the documents attached to the given owner ordered by
// creation time.
func (s *Store) ListDocuments(ownerType domain.EntityType, ownerID string) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.documents, cloneDocument, byCreation(func(d domain.Document) domain.Base { return d.Base }),
		func(d domain.Document) bool { return d.OwnerType == ownerType && d.OwnerID == ownerID })
}

// ListResources returns a house's resources ordered by creation time.
func (s *Store) ListResources(houseID string) []domain.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filteredRows(s.state.resources, cloneResource, byCreation(func(r domain.Resource) domain.Base { return r.Base }),
		func(r domain.Resource) bool { return r.HouseID == houseID })
}

// ListActivity returns activity entries newest first, honoring the filter.
func (s *Store) ListActivity(filter domain.ActivityFilter) []domain.ActivityEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listActivity(&s.state, filter)
}

// StateBucket names one persisted bucket of the snapshot. Target points into
// the snapshot, so durable backends marshal from it and unmarshal into it.
type StateBucket struct {
	Name   string
	Target any
}

// StateBuckets returns the named persistence buckets of the snapshot in a
// stable order.
func (s *Snapshot) StateBuckets() []StateBucket {
	return []StateBucket{
		{Name: "participants", Target: &s.Participants},
		{Name: "staff", Target: &s.Staff},
		{Name: "houses", Target: &s.Houses},
		{Name: "goals", Target: &s.Goals},
		{Name: "medications", Target: &s.Medications},
		{Name: "contacts", Target: &s.Contacts},
		{Name: "funding", Target: &s.Funding},
		{Name: "shift_notes", Target: &s.ShiftNotes},
		{Name: "compliance", Target: &s.Compliance},
		{Name: "checklists", Target: &s.Checklists},
		{Name: "checklist_items", Target: &s.ChecklistItems},
		{Name: "events", Target: &s.Events},
		{Name: "documents", Target: &s.Documents},
		{Name: "resources", Target: &s.Resources},
		{Name: "activity", Target: &s.Activity},
	}
}
