package domain

import "time"

// ActivityEntry is a single append-only audit record. Entries are created by
// the activity logger after a successful commit and are never mutated or
// deleted by the application.
type ActivityEntry struct {
	ID           string         `json:"id"`
	ActivityType Action         `json:"activity_type"`
	EntityType   EntityType     `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	EntityName   string         `json:"entity_name,omitempty"`
	Description  string         `json:"description"`
	UserName     string         `json:"user_name,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
