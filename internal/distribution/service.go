package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/email"
	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/internal/tokens"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/angelmondragon/pricesheets-backend/pkg/metrics"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Store is the subset of the document store used for sending.
type Store interface {
	GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error)
	AppendSendRecord(ctx context.Context, record *models.SendRecord) error
	MarkDocumentSent(ctx context.Context, documentID uuid.UUID, recipientIDs []uuid.UUID, sentAt time.Time) error
	ListSendRecords(ctx context.Context, params store.ListSendRecordsParams) ([]models.SendRecord, *pagination.Cursor, error)
}

// Service sends documents to recipients.
type Service interface {
	Send(ctx context.Context, input SendInput) (*SendResult, error)
	ListSends(ctx context.Context, params ListSendsParams) (*ListSendsResult, error)
}

// MessageOverride replaces the default subject or body for one recipient.
type MessageOverride struct {
	Subject string
	Body    string
}

// SendInput describes one batch. Per-recipient maps are optional.
type SendInput struct {
	OwnerID          uuid.UUID
	DocumentID       uuid.UUID
	RecipientIDs     []uuid.UUID
	Overrides        map[uuid.UUID]map[string]pricing.Override
	PriceBasis       map[uuid.UUID]enums.PriceBasis
	MessageOverrides map[uuid.UUID]MessageOverride
}

// RecipientOutcome reports what happened for one recipient.
type RecipientOutcome struct {
	RecipientID  uuid.UUID         `json:"recipientId"`
	Outcome      enums.SendOutcome `json:"outcome"`
	SendRecordID *uuid.UUID        `json:"sendRecordId,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// SendResult summarizes a batch. Sent counts every delivered email, including
// unrecorded ones.
type SendResult struct {
	Sent     int                `json:"sent"`
	Failed   int                `json:"failed"`
	Outcomes []RecipientOutcome `json:"outcomes"`
	Notes    []string           `json:"notes,omitempty"`
}

// ServiceParams wires the distribution service.
type ServiceParams struct {
	Store       Store
	Sender      email.Sender
	Codec       *tokens.Codec
	Logger      *logger.Logger
	Metrics     *metrics.SheetMetrics
	BaseURL     string
	Delay       time.Duration
	Concurrency int
	Clock       func() time.Time
}

type service struct {
	store       Store
	sender      email.Sender
	codec       *tokens.Codec
	logg        *logger.Logger
	metrics     *metrics.SheetMetrics
	baseURL     string
	delay       time.Duration
	concurrency int
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Codec == nil {
		return nil, fmt.Errorf("token codec required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.BaseURL == "" {
		return nil, fmt.Errorf("sheet base url required")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		store:       params.Store,
		sender:      params.Sender,
		codec:       params.Codec,
		logg:        params.Logger,
		metrics:     params.Metrics,
		baseURL:     params.BaseURL,
		delay:       params.Delay,
		concurrency: concurrency,
		now:         clock,
	}, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (*SendResult, error) {
	recipients := dedupe(input.RecipientIDs)
	if len(recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}

	doc, err := s.loadOwnedDocument(ctx, input.OwnerID, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(doc, recipients, input); err != nil {
		return nil, err
	}

	ctx = s.logg.WithDocumentID(s.logg.WithOwnerID(ctx, input.OwnerID.String()), doc.ID.String())
	items := store.PricingItems(doc.LineItems)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.delay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}

	outcomes := make([]RecipientOutcome, len(recipients))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, recipientID := range recipients {
		g.Go(func() error {
			outcomes[i] = s.sendOne(ctx, limiter, doc, items, recipientID, input)
			return nil
		})
	}
	_ = g.Wait()

	result := &SendResult{Outcomes: outcomes}
	var delivered []uuid.UUID
	for _, outcome := range outcomes {
		s.metrics.IncSendOutcome(string(outcome.Outcome))
		if !outcome.Outcome.Delivered() {
			result.Failed++
			continue
		}
		result.Sent++
		delivered = append(delivered, outcome.RecipientID)
		if outcome.Outcome == enums.SendOutcomeUnrecorded {
			result.Notes = append(result.Notes, fmt.Sprintf(
				"email to recipient %s was delivered but its send record could not be saved; the link will not unlock pricing",
				outcome.RecipientID))
		}
	}

	if result.Sent > 0 {
		// Emails already went out; a client disconnect must not leave the document in draft.
		if err := s.store.MarkDocumentSent(context.WithoutCancel(ctx), doc.ID, delivered, s.now()); err != nil {
			s.logg.Error(ctx, "mark document sent", err)
			result.Notes = append(result.Notes, "document status could not be updated")
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"sent": result.Sent, "failed": result.Failed}), "document send batch finished")
	return result, nil
}

func (s *service) sendOne(ctx context.Context, limiter *rate.Limiter, doc *models.Document, items []pricing.Item, recipientID uuid.UUID, input SendInput) RecipientOutcome {
	outcome := RecipientOutcome{RecipientID: recipientID, Outcome: enums.SendOutcomeFailed}
	ctx = s.logg.WithField(ctx, "recipient_id", recipientID.String())

	recipient, err := s.store.GetRecipient(ctx, doc.OwnerID, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			outcome.Error = "recipient not found"
		} else {
			outcome.Error = "recipient lookup failed"
		}
		s.logg.Error(ctx, "load recipient for send", err)
		return outcome
	}
	ctx = s.logg.WithField(ctx, "recipient_email", recipient.Email)

	profile := store.ProfileOf(recipient)
	overrides := input.Overrides[recipientID]
	basis := doc.PriceBasis
	if chosen, ok := input.PriceBasis[recipientID]; ok {
		basis = chosen
	}

	nonce := tokens.NewNonce(s.now())
	token := s.codec.Mint(recipientID.String(), doc.ID.String(), nonce)

	msg, err := composeMessage(composeInput{
		Document:    doc,
		Recipient:   recipient,
		Resolutions: pricing.ResolveAll(items, profile, overrides),
		PriceBasis:  basis,
		URL:         SheetURL(s.baseURL, doc.ID.String(), token),
		Override:    input.MessageOverrides[recipientID],
	})
	if err != nil {
		outcome.Error = "message rendering failed"
		s.logg.Error(ctx, "compose send email", err)
		return outcome
	}

	if err := limiter.Wait(ctx); err != nil {
		outcome.Error = "send canceled"
		s.logg.Warn(ctx, "send canceled before delivery")
		return outcome
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		outcome.Error = "email delivery failed"
		s.logg.Error(ctx, "deliver send email", err)
		return outcome
	}

	record := &models.SendRecord{
		ID:              uuid.New(),
		OwnerID:         doc.OwnerID,
		DocumentID:      doc.ID,
		RecipientID:     recipientID,
		Token:           token,
		Nonce:           nonce,
		Overrides:       store.OverrideValues(overrides),
		ProfileSnapshot: store.SnapshotOf(profile),
		Subject:         msg.Subject,
		CreatedAt:       s.now(),
	}
	if chosen, ok := input.PriceBasis[recipientID]; ok {
		record.PriceBasis = &chosen
	}

	// The email is already out; a failed write leaves an unresolvable link.
	if err := s.store.AppendSendRecord(context.WithoutCancel(ctx), record); err != nil {
		outcome.Outcome = enums.SendOutcomeUnrecorded
		outcome.Error = "send record not saved"
		s.logg.Error(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "append send record after delivery", err)
		return outcome
	}

	outcome.Outcome = enums.SendOutcomeSent
	outcome.SendRecordID = &record.ID
	return outcome
}

func (s *service) loadOwnedDocument(ctx context.Context, ownerID, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document")
	}
	if doc.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "document not found")
	}
	return doc, nil
}

func validateInput(doc *models.Document, recipients []uuid.UUID, input SendInput) error {
	inBatch := make(map[uuid.UUID]struct{}, len(recipients))
	for _, id := range recipients {
		inBatch[id] = struct{}{}
	}
	lineItems := make(map[string]struct{}, len(doc.LineItems))
	for _, item := range doc.LineItems {
		lineItems[item.ID.String()] = struct{}{}
	}

	details := map[string]string{}
	for recipientID, overrides := range input.Overrides {
		if _, ok := inBatch[recipientID]; !ok {
			details["overrides."+recipientID.String()] = "recipient is not part of this send"
			continue
		}
		for itemID, override := range overrides {
			if _, ok := lineItems[itemID]; !ok {
				details["overrides."+recipientID.String()+"."+itemID] = "unknown line item"
			} else if override.IsZero() {
				details["overrides."+recipientID.String()+"."+itemID] = "empty override"
			}
		}
	}
	for recipientID, basis := range input.PriceBasis {
		if !basis.IsValid() {
			details["priceBasis."+recipientID.String()] = "must be FOB or DELIVERED"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid send request").WithDetails(details)
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
