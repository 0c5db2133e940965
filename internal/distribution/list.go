package distribution

import (
	"context"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListSendsParams pages through a document's send history.
type ListSendsParams struct {
	OwnerID    uuid.UUID
	DocumentID uuid.UUID
	Limit      int
	Cursor     string
}

// SendSummary is the owner-facing view of a send record.
type SendSummary struct {
	ID          uuid.UUID         `json:"id"`
	RecipientID uuid.UUID         `json:"recipientId"`
	Subject     string            `json:"subject"`
	PriceBasis  *enums.PriceBasis `json:"priceBasis,omitempty"`
	Link        string            `json:"link"`
	Overrides   int               `json:"overrideCount"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type ListSendsResult struct {
	Items  []SendSummary `json:"items"`
	Cursor string        `json:"cursor"`
}

func (s *service) ListSends(ctx context.Context, params ListSendsParams) (*ListSendsResult, error) {
	if _, err := s.loadOwnedDocument(ctx, params.OwnerID, params.DocumentID); err != nil {
		return nil, err
	}

	query := store.ListSendRecordsParams{
		OwnerID:    params.OwnerID,
		DocumentID: params.DocumentID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	records, next, err := s.store.ListSendRecords(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list send records")
	}

	items := make([]SendSummary, 0, len(records))
	for _, rec := range records {
		items = append(items, SendSummary{
			ID:          rec.ID,
			RecipientID: rec.RecipientID,
			Subject:     rec.Subject,
			PriceBasis:  rec.PriceBasis,
			Link:        SheetURL(s.baseURL, rec.DocumentID.String(), rec.Token),
			Overrides:   len(rec.Overrides),
			CreatedAt:   rec.CreatedAt,
		})
	}

	result := &ListSendsResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}
