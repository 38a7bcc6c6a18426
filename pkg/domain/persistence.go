package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Update operations take a mutator so
// implementations can capture before/after clones; implementations preserve
// the record's identity and creation timestamp across mutations and reject
// temporary ids as primary keys.
type Transaction interface {
	CreateParticipant(Participant) (Participant, error)
	UpdateParticipant(id string, mutator func(*Participant) error) (Participant, error)
	CreateStaff(Staff) (Staff, error)
	UpdateStaff(id string, mutator func(*Staff) error) (Staff, error)
	CreateHouse(House) (House, error)
	UpdateHouse(id string, mutator func(*House) error) (House, error)

	CreateGoal(Goal) (Goal, error)
	UpdateGoal(id string, mutator func(*Goal) error) (Goal, error)
	DeleteGoal(id string) error
	CreateMedication(Medication) (Medication, error)
	UpdateMedication(id string, mutator func(*Medication) error) (Medication, error)
	DeleteMedication(id string) error
	CreateContact(Contact) (Contact, error)
	UpdateContact(id string, mutator func(*Contact) error) (Contact, error)
	DeleteContact(id string) error
	CreateFundingRecord(FundingRecord) (FundingRecord, error)
	UpdateFundingRecord(id string, mutator func(*FundingRecord) error) (FundingRecord, error)
	DeleteFundingRecord(id string) error
	CreateShiftNote(ShiftNote) (ShiftNote, error)
	UpdateShiftNote(id string, mutator func(*ShiftNote) error) (ShiftNote, error)
	DeleteShiftNote(id string) error
	CreateComplianceRecord(ComplianceRecord) (ComplianceRecord, error)
	UpdateComplianceRecord(id string, mutator func(*ComplianceRecord) error) (ComplianceRecord, error)
	DeleteComplianceRecord(id string) error
	CreateChecklist(Checklist) (Checklist, error)
	UpdateChecklist(id string, mutator func(*Checklist) error) (Checklist, error)
	DeleteChecklist(id string) error
	CreateChecklistItem(ChecklistItem) (ChecklistItem, error)
	UpdateChecklistItem(id string, mutator func(*ChecklistItem) error) (ChecklistItem, error)
	DeleteChecklistItem(id string) error
	CreateCalendarEvent(CalendarEvent) (CalendarEvent, error)
	UpdateCalendarEvent(id string, mutator func(*CalendarEvent) error) (CalendarEvent, error)
	DeleteCalendarEvent(id string) error
	CreateDocument(Document) (Document, error)
	DeleteDocument(id string) error
	CreateResource(Resource) (Resource, error)
	DeleteResource(id string) error

	FindParticipant(id string) (Participant, bool)
	FindStaff(id string) (Staff, bool)
	FindHouse(id string) (House, bool)
	FindChecklist(id string) (Checklist, bool)

	// AppendActivity adds an audit entry to the append-only activity log.
	AppendActivity(ActivityEntry) (ActivityEntry, error)

	// Changes returns the mutations recorded so far within the
	// transaction, with Before/After clones per mutation. Callers use the
	// ledger to summarize what a commit applied.
	Changes() []Change
}

// TransactionView provides read-only access to a consistent snapshot.
type TransactionView interface {
	ListParticipants() []Participant
	ListStaff() []Staff
	ListHouses() []House
	FindParticipant(id string) (Participant, bool)
	FindStaff(id string) (Staff, bool)
	FindHouse(id string) (House, bool)
	ListActivity(filter ActivityFilter) []ActivityEntry
}

// ActivityFilter narrows activity feed reads. Zero values match everything;
// Limit <= 0 means no limit. Entries are returned newest first.
type ActivityFilter struct {
	EntityType EntityType
	EntityID   string
	Limit      int
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error

	GetParticipant(id string) (Participant, bool)
	ListParticipants() []Participant
	GetStaff(id string) (Staff, bool)
	ListStaff() []Staff
	GetHouse(id string) (House, bool)
	ListHouses() []House

	ListGoals(participantID string) []Goal
	ListMedications(participantID string) []Medication
	ListContacts(participantID string) []Contact
	ListFundingRecords(participantID string) []FundingRecord
	ListShiftNotes(participantID string) []ShiftNote
	ListComplianceRecords(staffID string) []ComplianceRecord
	ListChecklists(houseID string) []Checklist
	ListChecklistItems(checklistID string) []ChecklistItem
	ListCalendarEvents(houseID string) []CalendarEvent
	ListDocuments(ownerType EntityType, ownerID string) []Document
	ListResources(houseID string) []Resource
	ListActivity(filter ActivityFilter) []ActivityEntry
}
