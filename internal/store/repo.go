// Package store persists documents, recipients, sends and views.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/repo"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a lookup matches no row visible to the caller.
var ErrNotFound = errors.New("store: not found")

// Repository is the document store used by the sheet services.
type Repository interface {
	GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error)
	AppendSendRecord(ctx context.Context, record *models.SendRecord) error
	FindSendRecordByToken(ctx context.Context, documentID uuid.UUID, token string) (*models.SendRecord, error)
	AppendViewEvent(ctx context.Context, event *models.ViewEvent) error
	QueryEvents(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*EventSet, error)
	MarkDocumentSent(ctx context.Context, documentID uuid.UUID, recipientIDs []uuid.UUID, sentAt time.Time) error
	ListSendRecords(ctx context.Context, params ListSendRecordsParams) ([]models.SendRecord, *pagination.Cursor, error)
	FindUnviewedSendsBetween(ctx context.Context, since, before time.Time, limit int) ([]models.SendRecord, error)
}

// EventSet is the raw material for engagement summaries: sends created in a
// range and the views of those sends that happened in the same range.
type EventSet struct {
	Sends []models.SendRecord
	Views []models.ViewEvent
}

type ListSendRecordsParams struct {
	OwnerID    uuid.UUID
	DocumentID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a gorm-backed store.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := r.DB(ctx).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Where("id = ?", documentID).
		First(&doc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (r *repository) GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error) {
	var recipient models.Recipient
	err := r.DB(ctx).
		Preload("ProductAdjustments").
		Where("id = ? AND owner_id = ?", recipientID, ownerID).
		First(&recipient).Error
	if err != nil {
		return nil, translate(err)
	}
	return &recipient, nil
}

func (r *repository) AppendSendRecord(ctx context.Context, record *models.SendRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return r.DB(ctx).Create(record).Error
}

func (r *repository) FindSendRecordByToken(ctx context.Context, documentID uuid.UUID, token string) (*models.SendRecord, error) {
	var record models.SendRecord
	err := r.DB(ctx).
		Where("token = ? AND document_id = ?", token, documentID).
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *repository) AppendViewEvent(ctx context.Context, event *models.ViewEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.ViewedAt.IsZero() {
		event.ViewedAt = time.Now()
	}
	event.ViewedAt = event.ViewedAt.UTC()
	return r.DB(ctx).Create(event).Error
}

func (r *repository) QueryEvents(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*EventSet, error) {
	start, end = start.UTC(), end.UTC()

	var sends []models.SendRecord
	if err := r.DB(ctx).
		Where("owner_id = ? AND created_at >= ? AND created_at <= ?", ownerID, start, end).
		Order("created_at ASC, id ASC").
		Find(&sends).Error; err != nil {
		return nil, err
	}
	if len(sends) == 0 {
		return &EventSet{}, nil
	}

	tokens := r.Subquery().Model(&models.SendRecord{}).
		Select("token").
		Where("owner_id = ? AND created_at >= ? AND created_at <= ?", ownerID, start, end)

	var views []models.ViewEvent
	if err := r.DB(ctx).
		Where("owner_id = ? AND token IN (?)", ownerID, tokens).
		Where("viewed_at >= ? AND viewed_at <= ?", start, end).
		Order("viewed_at ASC, id ASC").
		Find(&views).Error; err != nil {
		return nil, err
	}
	return &EventSet{Sends: sends, Views: views}, nil
}

func (r *repository) MarkDocumentSent(ctx context.Context, documentID uuid.UUID, recipientIDs []uuid.UUID, sentAt time.Time) error {
	return r.Transaction(ctx, func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "recipient_ids").
			Where("id = ?", documentID).
			First(&doc).Error; err != nil {
			return translate(err)
		}

		merged, err := json.Marshal(mergeIDs(doc.RecipientIDs, recipientIDs))
		if err != nil {
			return err
		}
		return tx.Model(&models.Document{}).
			Where("id = ?", documentID).
			Updates(map[string]any{
				"status":        enums.DocumentStatusSent,
				"last_sent_at":  sentAt.UTC(),
				"recipient_ids": string(merged),
				"updated_at":    sentAt.UTC(),
			}).Error
	})
}

func (r *repository) ListSendRecords(ctx context.Context, params ListSendRecordsParams) ([]models.SendRecord, *pagination.Cursor, error) {
	query := r.DB(ctx).
		Model(&models.SendRecord{}).
		Where("owner_id = ? AND document_id = ?", params.OwnerID, params.DocumentID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt.UTC(), params.Cursor.ID)
	}

	var records []models.SendRecord
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&records).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(records, params.Limit, func(rec models.SendRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: rec.CreatedAt, ID: rec.ID}
	})
	return page, next, nil
}

func (r *repository) FindUnviewedSendsBetween(ctx context.Context, since, before time.Time, limit int) ([]models.SendRecord, error) {
	viewed := r.Subquery().Model(&models.ViewEvent{}).
		Select("1").
		Where("view_events.send_record_id = send_records.id")
	notified := r.Subquery().Model(&models.Notification{}).
		Select("1").
		Where("notifications.send_record_id = send_records.id")

	var records []models.SendRecord
	err := r.DB(ctx).
		Where("created_at >= ? AND created_at < ?", since.UTC(), before.UTC()).
		Where("NOT EXISTS (?)", viewed).
		Where("NOT EXISTS (?)", notified).
		Order("created_at ASC, id ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func mergeIDs(existing, added []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(existing)+len(added))
	out := make([]uuid.UUID, 0, len(existing)+len(added))
	for _, list := range [][]uuid.UUID{existing, added} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
