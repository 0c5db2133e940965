// Package notifications stores in-app notices for sheet owners.
package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service defines notification create/list/read operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Notification, bool, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, ownerID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// CreateInput describes a new notification. SendRecordID, when set, makes the
// notification unique for that send.
type CreateInput struct {
	OwnerID      uuid.UUID
	Type         enums.NotificationType
	Title        string
	Message      string
	Link         string
	SendRecordID *uuid.UUID
}

// ListParams configures pagination for notifications.
type ListParams struct {
	OwnerID    uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Create stores a notification. The boolean is false when a notification for
// the same send record already existed.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Notification, bool, error) {
	if input.OwnerID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if !input.Type.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}

	notification := &models.Notification{
		ID:           uuid.New(),
		OwnerID:      input.OwnerID,
		Type:         input.Type,
		Title:        title,
		Message:      strings.TrimSpace(input.Message),
		SendRecordID: input.SendRecordID,
		CreatedAt:    s.now().UTC(),
	}
	if link := strings.TrimSpace(input.Link); link != "" {
		notification.Link = &link
	}

	created, err := s.repo.Create(ctx, notification)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, created, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	query := listNotificationsParams{
		OwnerID:    params.OwnerID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}

	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, ownerID, notificationID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, ownerID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if ownerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}

	count, err := s.repo.MarkAllRead(ctx, ownerID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}
