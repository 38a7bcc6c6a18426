package validation

import "careops/pkg/domain"

// Errors maps field names to the first failed rule message for each field.
type Errors map[string]string

// Any reports whether at least one field failed.
func (e Errors) Any() bool { return len(e) > 0 }

func (e Errors) check(field string, value any, rules ...Rule) {
	if _, seen := e[field]; seen {
		return
	}
	if res := Field(value, rules...); !res.IsValid {
		e[field] = res.Error
	}
}

// ValidateParticipant applies the participant form rules.
func ValidateParticipant(p domain.Participant) Errors {
	e := Errors{}
	e.check("first_name", p.FirstName, Required("first name"), MaxLength(100))
	e.check("last_name", p.LastName, Required("last name"), MaxLength(100))
	e.check("ndis_number", p.NDISNumber, MaxLength(20))
	e.check("email", p.Email, Email())
	e.check("phone", p.Phone, Phone())
	if p.DateOfBirth != nil {
		e.check("date_of_birth", *p.DateOfBirth, PastDate())
	}
	return e
}

// ValidateStaff applies the staff form rules.
func ValidateStaff(st domain.Staff) Errors {
	e := Errors{}
	e.check("first_name", st.FirstName, Required("first name"), MaxLength(100))
	e.check("last_name", st.LastName, Required("last name"), MaxLength(100))
	e.check("email", st.Email, Email())
	e.check("phone", st.Phone, Phone())
	e.check("role", st.Role, MaxLength(100))
	return e
}

// ValidateHouse applies the house form rules.
func ValidateHouse(h domain.House) Errors {
	e := Errors{}
	e.check("name", h.Name, Required("name"), MaxLength(120))
	e.check("address", h.Address, MaxLength(200))
	e.check("postcode", h.Postcode, MaxLength(10))
	e.check("capacity", h.Capacity, Min(0), Max(50))
	return e
}

// ValidateGoal applies the goal form rules.
func ValidateGoal(g domain.Goal) Errors {
	e := Errors{}
	e.check("description", g.Description, Required("description"), MaxLength(2000))
	return e
}

// ValidateMedication applies the medication form rules.
func ValidateMedication(m domain.Medication) Errors {
	e := Errors{}
	e.check("name", m.Name, Required("name"), MaxLength(200))
	e.check("dosage", m.Dosage, MaxLength(100))
	return e
}

// ValidateContact applies the contact form rules.
func ValidateContact(c domain.Contact) Errors {
	e := Errors{}
	e.check("name", c.Name, Required("name"), MaxLength(200))
	e.check("phone", c.Phone, Phone())
	e.check("email", c.Email, Email())
	return e
}

// ValidateFundingRecord applies the funding record form rules.
func ValidateFundingRecord(f domain.FundingRecord) Errors {
	e := Errors{}
	e.check("category", f.Category, Required("category"), MaxLength(120))
	e.check("amount", f.Amount, Min(0))
	return e
}

// ValidateComplianceRecord applies the compliance record form rules.
func ValidateComplianceRecord(c domain.ComplianceRecord) Errors {
	e := Errors{}
	e.check("name", c.Name, Required("name"), MaxLength(200))
	return e
}

// ValidateChecklist applies the checklist form rules.
func ValidateChecklist(c domain.Checklist) Errors {
	e := Errors{}
	e.check("name", c.Name, Required("name"), MaxLength(200))
	return e
}

// ValidateChecklistItem applies the checklist item form rules.
func ValidateChecklistItem(it domain.ChecklistItem) Errors {
	e := Errors{}
	e.check("title", it.Title, Required("title"), MaxLength(500))
	return e
}

// ValidateCalendarEvent applies the calendar event form rules.
func ValidateCalendarEvent(ev domain.CalendarEvent) Errors {
	e := Errors{}
	e.check("title", ev.Title, Required("title"), MaxLength(200))
	return e
}

// ValidateParticipantChanges validates every pending row in a participant
// editing session, keyed by "<bucket>[<row id>].<field>".
func ValidateParticipantChanges(c *domain.ParticipantChanges) Errors {
	e := Errors{}
	if c == nil {
		return e
	}
	for _, g := range append(append([]domain.Goal{}, c.Goals.ToAdd...), c.Goals.ToUpdate...) {
		mergeRowErrors(e, "goals", g.ID, ValidateGoal(g))
	}
	for _, m := range append(append([]domain.Medication{}, c.Medications.ToAdd...), c.Medications.ToUpdate...) {
		mergeRowErrors(e, "medications", m.ID, ValidateMedication(m))
	}
	for _, ct := range append(append([]domain.Contact{}, c.Contacts.ToAdd...), c.Contacts.ToUpdate...) {
		mergeRowErrors(e, "contacts", ct.ID, ValidateContact(ct))
	}
	for _, f := range append(append([]domain.FundingRecord{}, c.Funding.ToAdd...), c.Funding.ToUpdate...) {
		mergeRowErrors(e, "funding", f.ID, ValidateFundingRecord(f))
	}
	return e
}

// ValidateStaffChanges validates every pending row in a staff editing
// session, keyed like ValidateParticipantChanges.
func ValidateStaffChanges(c *domain.StaffChanges) Errors {
	e := Errors{}
	if c == nil {
		return e
	}
	for _, r := range append(append([]domain.ComplianceRecord{}, c.Compliance.ToAdd...), c.Compliance.ToUpdate...) {
		mergeRowErrors(e, "compliance", r.ID, ValidateComplianceRecord(r))
	}
	return e
}

// ValidateHouseChanges validates every pending row in a house editing
// session, keyed like ValidateParticipantChanges.
func ValidateHouseChanges(c *domain.HouseChanges) Errors {
	e := Errors{}
	if c == nil {
		return e
	}
	for _, cl := range append(append([]domain.Checklist{}, c.Checklists.ToAdd...), c.Checklists.ToUpdate...) {
		mergeRowErrors(e, "checklists", cl.ID, ValidateChecklist(cl))
	}
	for _, it := range append(append([]domain.ChecklistItem{}, c.ChecklistItems.ToAdd...), c.ChecklistItems.ToUpdate...) {
		mergeRowErrors(e, "checklist_items", it.ID, ValidateChecklistItem(it))
	}
	for _, ev := range append(append([]domain.CalendarEvent{}, c.Events.ToAdd...), c.Events.ToUpdate...) {
		mergeRowErrors(e, "events", ev.ID, ValidateCalendarEvent(ev))
	}
	return e
}

func mergeRowErrors(dst Errors, bucket, rowID string, src Errors) {
	for field, msg := range src {
		dst[bucket+"["+rowID+"]."+field] = msg
	}
}
