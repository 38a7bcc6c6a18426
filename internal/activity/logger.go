// Package activity builds and records audit log entries. Descriptions are
// generated from change maps so the feed reads naturally without storing
// presentation logic alongside the data.
package activity

import (
	"careops/pkg/domain"
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const maxValueRunes = 50

// fieldLabels maps storage field names to human-readable labels. Unknown
// fields fall back to the raw name.
var fieldLabels = map[string]string{
	"first_name":    "first name",
	"last_name":     "last name",
	"ndis_number":   "NDIS number",
	"date_of_birth": "date of birth",
	"email":         "email",
	"phone":         "phone",
	"address":       "address",
	"status":        "status",
	"house_id":      "house",
	"support_notes": "support notes",
	"role":          "role",
	"hire_date":     "hire date",
	"name":          "name",
	"suburb":        "suburb",
	"state":         "state",
	"postcode":      "postcode",
	"capacity":      "capacity",
	"notes":         "notes",
	"goal_type":     "goal type",
	"description":   "description",
	"target_date":   "target date",
	"is_active":     "active",
	"dosage":        "dosage",
	"frequency":     "frequency",
	"route":         "route",
	"relationship":  "relationship",
	"is_primary":    "primary contact",
	"category":      "category",
	"amount":        "amount",
	"start_date":    "start date",
	"end_date":      "end date",
	"plan_manager":  "plan manager",
	"content":       "content",
	"occurred_at":   "occurred at",
	"issued_at":     "issued at",
	"expires_at":    "expires at",
	"title":         "title",
	"position":      "position",
	"is_required":   "required",
	"starts_at":     "starts at",
	"ends_at":       "ends at",
	"location":      "location",
}

// Input describes one auditable event.
type Input struct {
	Action      domain.Action
	EntityType  domain.EntityType
	EntityID    string
	EntityName  string
	UserName    string
	Changes     domain.ChangeMap
	Description string // optional override; generated from the rest when empty
	Metadata    map[string]any
}

// Entry builds the audit entry for the given input. The store assigns the id
// and timestamp when the entry is appended.
func Entry(in Input) domain.ActivityEntry {
	desc := in.Description
	if desc == "" {
		desc = Describe(in.Action, in.EntityType, in.Changes)
	}
	return domain.ActivityEntry{
		ActivityType: in.Action,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		EntityName:   in.EntityName,
		Description:  desc,
		UserName:     in.UserName,
		Metadata:     in.Metadata,
	}
}

// Describe generates a human-readable description for an action. Update
// descriptions name up to two changed fields; further fields are summarized
// by count.
func Describe(action domain.Action, entity domain.EntityType, changes domain.ChangeMap) string {
	label := entityLabel(entity)
	switch action {
	case domain.ActionCreate:
		return fmt.Sprintf("Created new %s", label)
	case domain.ActionDelete:
		return fmt.Sprintf("Deleted %s", label)
	case domain.ActionUpdate:
		return describeUpdate(label, changes)
	default:
		return fmt.Sprintf("%s %s", action, label)
	}
}

func describeUpdate(entityLabel string, changes domain.ChangeMap) string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	switch len(fields) {
	case 0:
		return fmt.Sprintf("Updated %s", entityLabel)
	case 1:
		field := fields[0]
		change := changes[field]
		return fmt.Sprintf("Updated %s from %q to %q", fieldLabel(field), formatValue(change.Old), formatValue(change.New))
	case 2:
		return fmt.Sprintf("Updated %s and %s", fieldLabel(fields[0]), fieldLabel(fields[1]))
	default:
		rest := len(fields) - 2
		noun := "fields"
		if rest == 1 {
			noun = "field"
		}
		return fmt.Sprintf("Updated %s, %s and %d other %s", fieldLabel(fields[0]), fieldLabel(fields[1]), rest, noun)
	}
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

func entityLabel(entity domain.EntityType) string {
	return strings.ReplaceAll(string(entity), "_", " ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "(empty)"
	case bool:
		if val {
			return "Active"
		}
		return "Inactive"
	case string:
		if val == "" {
			return "(empty)"
		}
		return truncate(val)
	default:
		return truncate(fmt.Sprintf("%v", val))
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxValueRunes {
		return s
	}
	return string(runes[:maxValueRunes]) + "…"
}

// Recorder writes audit entries outside of an existing transaction.
// Recording is fire-and-forget: failures are logged and swallowed so audit
// logging never blocks a primary operation.
type Recorder struct {
	store domain.PersistentStore
	log   *zap.Logger
}

// NewRecorder constructs a Recorder. A nil logger falls back to zap.NewNop.
func NewRecorder(store domain.PersistentStore, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log}
}

// Record appends an audit entry, swallowing any error.
func (r *Recorder) Record(ctx context.Context, in Input) {
	err := r.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.AppendActivity(Entry(in))
		return err
	})
	if err != nil {
		r.log.Warn("activity entry dropped",
			zap.String("entity_type", string(in.EntityType)),
			zap.String("entity_id", in.EntityID),
			zap.Error(err))
	}
}
