// Package publicview resolves what a visitor of a shared price sheet may see.
package publicview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/internal/tokens"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/google/uuid"
)

// Store is the subset of the document store read by the gateway.
type Store interface {
	GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error)
	FindSendRecordByToken(ctx context.Context, documentID uuid.UUID, token string) (*models.SendRecord, error)
}

// Recorder accepts view events for asynchronous persistence.
type Recorder interface {
	Record(ctx context.Context, event models.ViewEvent)
}

// Service resolves public and preview views of a document.
type Service interface {
	ResolveView(ctx context.Context, req ViewRequest) (*View, error)
}

// RequestMeta is what the transport knows about the visitor.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// ViewRequest identifies the document and the presented token. OwnerID is set
// for authenticated owner previews and restricts the lookup to that owner.
type ViewRequest struct {
	DocumentID uuid.UUID
	Token      string
	Preview    bool
	OwnerID    *uuid.UUID
	Meta       RequestMeta
}

// LineItemView is one row of the rendered sheet.
type LineItemView struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	Commodity    string    `json:"commodity"`
	Variety      string    `json:"variety,omitempty"`
	Package      string    `json:"package,omitempty"`
	Grade        string    `json:"grade,omitempty"`
	Availability *string   `json:"availability,omitempty"`
	Price        *string   `json:"price"`
	Comment      string    `json:"comment,omitempty"`
}

// View is the resolved sheet returned to the visitor.
type View struct {
	DocumentID     uuid.UUID        `json:"documentId"`
	Title          string           `json:"title"`
	Notes          *string          `json:"notes,omitempty"`
	PriceBasis     enums.PriceBasis `json:"priceBasis"`
	PricingVisible bool             `json:"pricingVisible"`
	PreparedFor    string           `json:"preparedFor,omitempty"`
	LineItems      []LineItemView   `json:"lineItems"`
}

// ServiceParams wires the gateway.
type ServiceParams struct {
	Store    Store
	Codec    *tokens.Codec
	Recorder Recorder
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	store    Store
	codec    *tokens.Codec
	recorder Recorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Codec == nil {
		return nil, fmt.Errorf("token codec required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("view recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		store:    params.Store,
		codec:    params.Codec,
		recorder: params.Recorder,
		logg:     params.Logger,
		now:      clock,
	}, nil
}

func (s *service) ResolveView(ctx context.Context, req ViewRequest) (*View, error) {
	doc, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
	}
	if req.OwnerID != nil && *req.OwnerID != doc.OwnerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	ctx = s.logg.WithDocumentID(ctx, doc.ID.String())

	items := store.PricingItems(doc.LineItems)
	view := &View{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Notes:      doc.Notes,
		PriceBasis: doc.PriceBasis,
	}

	record := s.authorize(ctx, doc, req.Token)
	var resolutions []pricing.Resolution
	if record != nil {
		profile, preparedFor, ok := s.profileFor(ctx, doc, record)
		if ok {
			resolutions = pricing.ResolveAll(items, profile, store.OverridesOf(record))
			view.PricingVisible = true
			view.PreparedFor = preparedFor
			if record.PriceBasis != nil {
				view.PriceBasis = *record.PriceBasis
			}
		}
	}
	if !view.PricingVisible {
		resolutions = pricing.HideAll(items)
	}
	view.LineItems = buildLineItems(doc.LineItems, resolutions)

	if !req.Preview {
		s.recorder.Record(ctx, s.viewEvent(doc, record, view.PricingVisible, req.Meta))
	}
	return view, nil
}

// authorize returns the send record behind a token only when the token
// recomputes for that record. Every failure looks the same to the caller.
func (s *service) authorize(ctx context.Context, doc *models.Document, token string) *models.SendRecord {
	if token == "" || !tokens.WellFormed(token) {
		return nil
	}
	record, err := s.store.FindSendRecordByToken(ctx, doc.ID, token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logg.Error(ctx, "send record lookup failed; hiding pricing", err)
		}
		return nil
	}
	if record.DocumentID != doc.ID {
		return nil
	}
	if !s.codec.Verify(token, record.RecipientID.String(), record.DocumentID.String(), record.Nonce) {
		s.logg.Warn(s.logg.WithField(ctx, "send_record_id", record.ID.String()), "stored token failed verification")
		return nil
	}
	return record
}

// profileFor prefers the snapshot taken at send time. Legacy records without
// one fall back to the recipient's current profile.
func (s *service) profileFor(ctx context.Context, doc *models.Document, record *models.SendRecord) (pricing.Profile, string, bool) {
	recipient, err := s.store.GetRecipient(ctx, doc.OwnerID, record.RecipientID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logg.Error(ctx, "recipient lookup failed", err)
	}
	preparedFor := ""
	if recipient != nil {
		preparedFor = recipient.Company
	}

	if record.ProfileSnapshot != nil {
		return store.ProfileFromSnapshot(*record.ProfileSnapshot), preparedFor, true
	}
	if recipient == nil {
		return pricing.Profile{}, "", false
	}
	return store.ProfileOf(recipient), preparedFor, true
}

func (s *service) viewEvent(doc *models.Document, record *models.SendRecord, visible bool, meta RequestMeta) models.ViewEvent {
	event := models.ViewEvent{
		ID:         uuid.New(),
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		ViewedAt:   s.now().UTC(),
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
		Referer:    optional(meta.Referer),
	}
	if record != nil && visible {
		recordID := record.ID
		recipientID := record.RecipientID
		token := record.Token
		event.SendRecordID = &recordID
		event.RecipientID = &recipientID
		event.Token = &token
	}
	return event
}

func buildLineItems(items []models.LineItem, resolutions []pricing.Resolution) []LineItemView {
	out := make([]LineItemView, 0, len(items))
	for i, item := range items {
		row := LineItemView{
			ID:           item.ID,
			Position:     item.Position,
			Commodity:    item.Commodity,
			Variety:      item.Variety,
			Package:      item.Package,
			Grade:        item.Grade,
			Availability: item.Availability,
		}
		if i < len(resolutions) {
			res := resolutions[i]
			if res.Price != nil {
				display := pricing.DisplayPrice(*res.Price)
				row.Price = &display
			}
			row.Comment = res.Comment
		}
		out = append(out, row)
	}
	return out
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
