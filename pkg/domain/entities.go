// Package domain defines the persistent entities, pending-change structures,
// and change-detection primitives used by careops.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records, activity entries,
// and persistence buckets.
const (
	// EntityParticipant identifies a participant record.
	EntityParticipant EntityType = "participant"
	// EntityStaff identifies a staff member record.
	EntityStaff EntityType = "staff"
	// EntityHouse identifies a house record.
	EntityHouse EntityType = "house"
	// EntityGoal identifies a participant goal record.
	EntityGoal EntityType = "goal"
	// EntityMedication identifies a medication record.
	EntityMedication EntityType = "medication"
	// EntityContact identifies an emergency/support contact record.
	EntityContact EntityType = "contact"
	// EntityFundingRecord identifies an NDIS funding record.
	EntityFundingRecord EntityType = "funding_record"
	// EntityShiftNote identifies a shift note record.
	EntityShiftNote EntityType = "shift_note"
	// EntityComplianceRecord identifies a staff compliance record.
	EntityComplianceRecord EntityType = "compliance_record"
	// EntityChecklist identifies a house checklist record.
	EntityChecklist EntityType = "checklist"
	// EntityChecklistItem identifies a single checklist item record.
	EntityChecklistItem EntityType = "checklist_item"
	// EntityCalendarEvent identifies a house calendar event record.
	EntityCalendarEvent EntityType = "calendar_event"
	// EntityDocument identifies an uploaded document record.
	EntityDocument EntityType = "document"
	// EntityResource identifies a house resource record.
	EntityResource EntityType = "resource"
)

// Status represents the lifecycle state of a root entity. Roots are never
// hard-deleted; they are archived by status flip.
type Status string

// Canonical root entity lifecycle statuses.
const (
	// StatusDraft marks a record created with incomplete fields.
	StatusDraft Status = "draft"
	// StatusActive marks a record in active service.
	StatusActive Status = "active"
	// StatusInactive marks a record temporarily out of service.
	StatusInactive Status = "inactive"
	// StatusArchived marks a soft-deleted record.
	StatusArchived Status = "archived"
)

// Base carries the identity and timestamps shared by every persisted record.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RowID returns the record identifier. While a record is pending it may hold
// a temporary id; the store only ever sees persistent ids.
func (b Base) RowID() string { return b.ID }

// Participant represents an NDIS participant supported by the provider.
type Participant struct {
	Base
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	NDISNumber   string     `json:"ndis_number"`
	DateOfBirth  *time.Time `json:"date_of_birth"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	Status       Status     `json:"status"`
	HouseID      *string    `json:"house_id"`
	SupportNotes string     `json:"support_notes"`
	PhotoKey     string     `json:"photo_key"`
}

// Staff represents a support worker or coordinator employed by the provider.
type Staff struct {
	Base
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      string     `json:"role"`
	Status    Status     `json:"status"`
	HireDate  *time.Time `json:"hire_date"`
}

// House represents a supported-accommodation property.
type House struct {
	Base
	Name     string `json:"name"`
	Address  string `json:"address"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Capacity int    `json:"capacity"`
	Status   Status `json:"status"`
	Notes    string `json:"notes"`
}

// Goal is a support goal owned by a participant.
type Goal struct {
	Base
	ParticipantID string     `json:"participant_id"`
	GoalType      string     `json:"goal_type"`
	Description   string     `json:"description"`
	TargetDate    *time.Time `json:"target_date"`
	IsActive      bool       `json:"is_active"`
}

// Medication is a medication entry owned by a participant.
type Medication struct {
	Base
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Dosage        string `json:"dosage"`
	Frequency     string `json:"frequency"`
	Route         string `json:"route"`
	Notes         string `json:"notes"`
	IsActive      bool   `json:"is_active"`
}

// Contact is an emergency or support contact owned by a participant.
type Contact struct {
	Base
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Relationship  string `json:"relationship"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	IsPrimary     bool   `json:"is_primary"`
}

// FundingRecord captures an NDIS plan funding line for a participant.
type FundingRecord struct {
	Base
	ParticipantID string     `json:"participant_id"`
	Category      string     `json:"category"`
	Amount        float64    `json:"amount"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	PlanManager   string     `json:"plan_manager"`
}

// ShiftNote records what happened during a support shift. A note is owned by
// a participant and may additionally reference the house where it occurred.
type ShiftNote struct {
	Base
	ParticipantID string    `json:"participant_id"`
	HouseID       *string   `json:"house_id"`
	StaffID       string    `json:"staff_id"`
	Content       string    `json:"content"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ComplianceRecord tracks a staff certification or clearance.
type ComplianceRecord struct {
	Base
	StaffID   string     `json:"staff_id"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	IssuedAt  *time.Time `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Checklist is a recurring house checklist definition.
type Checklist struct {
	Base
	HouseID   string `json:"house_id"`
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
	IsActive  bool   `json:"is_active"`
}

// ChecklistItem is a single line within a checklist. While both the checklist
// and its items are pending, the item references the checklist by its
// temporary id; reconciliation rewrites the reference to the persistent id.
type ChecklistItem struct {
	Base
	ChecklistID string `json:"checklist_id"`
	Title       string `json:"title"`
	Position    int    `json:"position"`
	IsRequired  bool   `json:"is_required"`
}

// CalendarEvent is a scheduled event at a house.
type CalendarEvent struct {
	Base
	HouseID  string    `json:"house_id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Location string    `json:"location"`
}

// Document is an uploaded file attached to a root entity. StorageKey points
// at the object in the blob store; deleting the row also removes the object.
type Document struct {
	Base
	OwnerType   EntityType `json:"owner_type"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	StorageKey  string     `json:"storage_key"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
}

// Resource is a house-level reference file (manuals, plans, rosters).
type Resource struct {
	Base
	HouseID    string `json:"house_id"`
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
	Category   string `json:"category"`
}
