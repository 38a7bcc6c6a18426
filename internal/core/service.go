package core

import (
	"careops/internal/activity"
	blobcore "careops/internal/infra/blob/core"
	"careops/pkg/domain"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service exposes the transactional operations of the application: root
// entity CRUD, save reconciliation, uploads, and the activity feed.
type Service struct {
	store    domain.PersistentStore
	blobs    blobcore.Store
	logger   Logger
	metrics  MetricsRecorder
	audit    *activity.Recorder
	auditLog *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger used by the service.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder used by the service.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithAuditLogger sets the logger the audit recorder reports dropped entries
// to. The recorder itself is always present; without this option drops are
// silent.
func WithAuditLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.auditLog = log
	}
}

// WithClock overrides the service time source; tests use it to freeze time.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a service over the given persistent store and blob
// store.
func NewService(store domain.PersistentStore, blobs blobcore.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		blobs:   blobs,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = activity.NewRecorder(store, s.auditLog)
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Blobs returns the underlying blob store.
func (s *Service) Blobs() blobcore.Store { return s.blobs }

func (s *Service) observe(ctx context.Context, operation string, fn func() error) error {
	start := s.now()
	err := fn()
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation complete", "operation", operation)
	}
	return err
}

func userOrSystem(name string) string {
	if strings.TrimSpace(name) == "" {
		return "System"
	}
	return name
}

func personName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// CreateParticipant persists a new participant and records the creation in
// the activity feed. An empty status defaults to active.
func (s *Service) CreateParticipant(ctx context.Context, p domain.Participant, userName string) (domain.Participant, error) {
	var created domain.Participant
	err := s.observe(ctx, "create_participant", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if p.Status == "" {
				p.Status = domain.StatusActive
			}
			var err error
			created, err = tx.CreateParticipant(p)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionCreate,
				EntityType: domain.EntityParticipant,
				EntityID:   created.ID,
				EntityName: personName(created.FirstName, created.LastName),
				UserName:   userOrSystem(userName),
			}))
			return err
		})
	})
	return created, err
}

// CreateStaff persists a new staff member.
func (s *Service) CreateStaff(ctx context.Context, st domain.Staff, userName string) (domain.Staff, error) {
	var created domain.Staff
	err := s.observe(ctx, "create_staff", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if st.Status == "" {
				st.Status = domain.StatusActive
			}
			var err error
			created, err = tx.CreateStaff(st)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionCreate,
				EntityType: domain.EntityStaff,
				EntityID:   created.ID,
				EntityName: personName(created.FirstName, created.LastName),
				UserName:   userOrSystem(userName),
			}))
			return err
		})
	})
	return created, err
}

// CreateHouse persists a new house.
func (s *Service) CreateHouse(ctx context.Context, h domain.House, userName string) (domain.House, error) {
	var created domain.House
	err := s.observe(ctx, "create_house", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if h.Status == "" {
				h.Status = domain.StatusActive
			}
			var err error
			created, err = tx.CreateHouse(h)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionCreate,
				EntityType: domain.EntityHouse,
				EntityID:   created.ID,
				EntityName: created.Name,
				UserName:   userOrSystem(userName),
			}))
			return err
		})
	})
	return created, err
}

// GetParticipant retrieves a participant by id.
func (s *Service) GetParticipant(id string) (domain.Participant, bool) { return s.store.GetParticipant(id) }

// ListParticipants returns all participants.
func (s *Service) ListParticipants() []domain.Participant { return s.store.ListParticipants() }

// GetStaff retrieves a staff member by id.
func (s *Service) GetStaff(id string) (domain.Staff, bool) { return s.store.GetStaff(id) }

// ListStaff returns all staff.
func (s *Service) ListStaff() []domain.Staff { return s.store.ListStaff() }

// GetHouse retrieves a house by id.
func (s *Service) GetHouse(id string) (domain.House, bool) { return s.store.GetHouse(id) }

// ListHouses returns all houses.
func (s *Service) ListHouses() []domain.House { return s.store.ListHouses() }

// ArchiveParticipant flips a participant to archived status. Roots are never
// hard-deleted.
func (s *Service) ArchiveParticipant(ctx context.Context, id, userName string) (domain.Participant, error) {
	var archived domain.Participant
	err := s.observe(ctx, "archive_participant", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			before, ok := tx.FindParticipant(id)
			if !ok {
				return ErrNotFound{Entity: domain.EntityParticipant, ID: id}
			}
			var err error
			archived, err = tx.UpdateParticipant(id, func(p *domain.Participant) error {
				p.Status = domain.StatusArchived
				return nil
			})
			if err != nil {
				return err
			}
			changes, err := domain.DetectRecordChanges(before, archived)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionUpdate,
				EntityType: domain.EntityParticipant,
				EntityID:   id,
				EntityName: personName(archived.FirstName, archived.LastName),
				UserName:   userOrSystem(userName),
				Changes:    changes,
			}))
			return err
		})
	})
	return archived, err
}

// ArchiveStaff flips a staff member to archived status.
func (s *Service) ArchiveStaff(ctx context.Context, id, userName string) (domain.Staff, error) {
	var archived domain.Staff
	err := s.observe(ctx, "archive_staff", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			before, ok := tx.FindStaff(id)
			if !ok {
				return ErrNotFound{Entity: domain.EntityStaff, ID: id}
			}
			var err error
			archived, err = tx.UpdateStaff(id, func(st *domain.Staff) error {
				st.Status = domain.StatusArchived
				return nil
			})
			if err != nil {
				return err
			}
			changes, err := domain.DetectRecordChanges(before, archived)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionUpdate,
				EntityType: domain.EntityStaff,
				EntityID:   id,
				EntityName: personName(archived.FirstName, archived.LastName),
				UserName:   userOrSystem(userName),
				Changes:    changes,
			}))
			return err
		})
	})
	return archived, err
}

// ArchiveHouse flips a house to archived status.
func (s *Service) ArchiveHouse(ctx context.Context, id, userName string) (domain.House, error) {
	var archived domain.House
	err := s.observe(ctx, "archive_house", func() error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			before, ok := tx.FindHouse(id)
			if !ok {
				return ErrNotFound{Entity: domain.EntityHouse, ID: id}
			}
			var err error
			archived, err = tx.UpdateHouse(id, func(h *domain.House) error {
				h.Status = domain.StatusArchived
				return nil
			})
			if err != nil {
				return err
			}
			changes, err := domain.DetectRecordChanges(before, archived)
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionUpdate,
				EntityType: domain.EntityHouse,
				EntityID:   id,
				EntityName: archived.Name,
				UserName:   userOrSystem(userName),
				Changes:    changes,
			}))
			return err
		})
	})
	return archived, err
}

// UploadInput carries one file upload.
type UploadInput struct {
	OwnerType   domain.EntityType
	OwnerID     string
	Filename    string
	ContentType string
	Body        io.Reader
	UserName    string
}

// UploadDocument stores the file in the blob store and creates the document
// row. If the row cannot be created the blob is removed again.
func (s *Service) UploadDocument(ctx context.Context, in UploadInput) (domain.Document, error) {
	var created domain.Document
	err := s.observe(ctx, "upload_document", func() error {
		key := blobcore.DocumentKey(in.OwnerType, in.OwnerID, in.Filename)
		info, err := s.blobs.Put(ctx, key, in.Body, blobcore.PutOptions{ContentType: in.ContentType})
		if err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if err := ownerExists(tx, in.OwnerType, in.OwnerID); err != nil {
				return err
			}
			var err error
			created, err = tx.CreateDocument(domain.Document{
				OwnerType:   in.OwnerType,
				OwnerID:     in.OwnerID,
				Name:        in.Filename,
				StorageKey:  key,
				ContentType: info.ContentType,
				SizeBytes:   info.Size,
			})
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionCreate,
				EntityType: domain.EntityDocument,
				EntityID:   created.ID,
				EntityName: created.Name,
				UserName:   userOrSystem(in.UserName),
			}))
			return err
		})
		if err != nil {
			if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.logger.Warn("orphaned blob after failed upload", "key", key, "error", delErr)
			}
			return err
		}
		return nil
	})
	return created, err
}

// UploadResource stores a house resource file and its row.
func (s *Service) UploadResource(ctx context.Context, houseID, filename, contentType, category string, body io.Reader, userName string) (domain.Resource, error) {
	var created domain.Resource
	err := s.observe(ctx, "upload_resource", func() error {
		key := blobcore.ResourceKey(houseID, filename)
		if _, err := s.blobs.Put(ctx, key, body, blobcore.PutOptions{ContentType: contentType}); err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindHouse(houseID); !ok {
				return ErrNotFound{Entity: domain.EntityHouse, ID: houseID}
			}
			var err error
			created, err = tx.CreateResource(domain.Resource{
				HouseID:    houseID,
				Name:       filename,
				StorageKey: key,
				Category:   category,
			})
			if err != nil {
				return err
			}
			_, err = tx.AppendActivity(activity.Entry(activity.Input{
				Action:     domain.ActionCreate,
				EntityType: domain.EntityResource,
				EntityID:   created.ID,
				EntityName: created.Name,
				UserName:   userOrSystem(userName),
			}))
			return err
		})
		if err != nil {
			if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.logger.Warn("orphaned blob after failed upload", "key", key, "error", delErr)
			}
			return err
		}
		return nil
	})
	return created, err
}

// SetParticipantPhoto uploads a new photo, points the participant at it, and
// removes the previous photo object.
func (s *Service) SetParticipantPhoto(ctx context.Context, participantID, filename, contentType string, body io.Reader, userName string) (domain.Participant, error) {
	var updated domain.Participant
	err := s.observe(ctx, "set_participant_photo", func() error {
		key := blobcore.PhotoKey(participantID, filename)
		if _, err := s.blobs.Put(ctx, key, body, blobcore.PutOptions{ContentType: contentType}); err != nil {
			return fmt.Errorf("store blob: %w", err)
		}
		var previousKey string
		err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			before, ok := tx.FindParticipant(participantID)
			if !ok {
				return ErrNotFound{Entity: domain.EntityParticipant, ID: participantID}
			}
			previousKey = before.PhotoKey
			var err error
			updated, err = tx.UpdateParticipant(participantID, func(p *domain.Participant) error {
				p.PhotoKey = key
				return nil
			})
			return err
		})
		if err != nil {
			if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.logger.Warn("orphaned blob after failed upload", "key", key, "error", delErr)
			}
			return err
		}
		if previousKey != "" && previousKey != key {
			if _, err := s.blobs.Delete(ctx, previousKey); err != nil {
				s.logger.Warn("stale photo blob not removed", "key", previousKey, "error", err)
			}
		}
		// The row update and the old object removal are separate steps, so
		// the audit entry is recorded after both rather than inside the
		// transaction.
		s.audit.Record(ctx, activity.Input{
			Action:      domain.ActionUpdate,
			EntityType:  domain.EntityParticipant,
			EntityID:    updated.ID,
			EntityName:  personName(updated.FirstName, updated.LastName),
			UserName:    userOrSystem(userName),
			Description: "Updated photo",
		})
		return nil
	})
	return updated, err
}

// DocumentURL returns a URL for fetching the document content. Backends
// without presigning support report ErrUnsupported.
func (s *Service) DocumentURL(ctx context.Context, storageKey string, expiry time.Duration) (string, error) {
	return s.blobs.PresignURL(ctx, storageKey, blobcore.PresignOptions{Expiry: expiry})
}

// ListDocuments returns the documents attached to an owner.
func (s *Service) ListDocuments(ownerType domain.EntityType, ownerID string) []domain.Document {
	return s.store.ListDocuments(ownerType, ownerID)
}

// ListResources returns a house's resources.
func (s *Service) ListResources(houseID string) []domain.Resource {
	return s.store.ListResources(houseID)
}

// ActivityFeed returns audit entries newest first.
func (s *Service) ActivityFeed(filter domain.ActivityFilter) []domain.ActivityEntry {
	return s.store.ListActivity(filter)
}

func ownerExists(tx domain.Transaction, ownerType domain.EntityType, ownerID string) error {
	var ok bool
	switch ownerType {
	case domain.EntityParticipant:
		_, ok = tx.FindParticipant(ownerID)
	case domain.EntityStaff:
		_, ok = tx.FindStaff(ownerID)
	case domain.EntityHouse:
		_, ok = tx.FindHouse(ownerID)
	default:
		return fmt.Errorf("entity type %q cannot own documents", ownerType)
	}
	if !ok {
		return ErrNotFound{Entity: ownerType, ID: ownerID}
	}
	return nil
}
