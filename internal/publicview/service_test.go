package publicview

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/internal/tokens"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	doc        *models.Document
	records    map[string]*models.SendRecord
	recipients map[uuid.UUID]*models.Recipient
	lookupErr  error
	lookups    int
}

func (f *fakeStore) GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error) {
	if f.doc == nil || f.doc.ID != documentID {
		return nil, store.ErrNotFound
	}
	return f.doc, nil
}

func (f *fakeStore) GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error) {
	rec, ok := f.recipients[recipientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) FindSendRecordByToken(ctx context.Context, documentID uuid.UUID, token string) (*models.SendRecord, error) {
	f.lookups++
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	rec, ok := f.records[token]
	if !ok || rec.DocumentID != documentID {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []models.ViewEvent
}

func (c *captureRecorder) Record(ctx context.Context, event models.ViewEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

type fixture struct {
	codec     *tokens.Codec
	store     *fakeStore
	recorder  *captureRecorder
	svc       Service
	doc       *models.Document
	recipient *models.Recipient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := tokens.NewCodec("secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	ownerID := uuid.New()
	base := decimal.RequireFromString("10.00")
	doc := &models.Document{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Title:      "Week 12",
		PriceBasis: enums.PriceBasisFOB,
		LineItems: []models.LineItem{
			{ID: uuid.New(), Position: 0, Commodity: "tomato", BasePrice: &base},
			{ID: uuid.New(), Position: 1, Commodity: "pepper"},
		},
	}
	recipient := &models.Recipient{ID: uuid.New(), OwnerID: ownerID, Company: "Fresh Mart", GlobalAdjustmentPercent: decimal.NewFromInt(25)}
	fs := &fakeStore{
		doc:        doc,
		records:    map[string]*models.SendRecord{},
		recipients: map[uuid.UUID]*models.Recipient{recipient.ID: recipient},
	}
	rec := &captureRecorder{}
	svc, err := NewService(ServiceParams{Store: fs, Codec: codec, Recorder: rec, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{codec: codec, store: fs, recorder: rec, svc: svc, doc: doc, recipient: recipient}
}

func (f *fixture) addRecord(snapshot *models.ProfileSnapshot, overrides map[string]pricing.Override, basis *enums.PriceBasis) *models.SendRecord {
	nonce := tokens.NewNonce(time.Now())
	token := f.codec.Mint(f.recipient.ID.String(), f.doc.ID.String(), nonce)
	rec := &models.SendRecord{
		ID:              uuid.New(),
		OwnerID:         f.doc.OwnerID,
		DocumentID:      f.doc.ID,
		RecipientID:     f.recipient.ID,
		Token:           token,
		Nonce:           nonce,
		Overrides:       store.OverrideValues(overrides),
		ProfileSnapshot: snapshot,
		PriceBasis:      basis,
	}
	f.store.records[token] = rec
	return rec
}

func assertHidden(t *testing.T, view *View) {
	t.Helper()
	if view.PricingVisible {
		t.Fatal("expected pricing hidden")
	}
	for _, item := range view.LineItems {
		if item.Price != nil || item.Comment != "" {
			t.Fatalf("hidden view leaked pricing: %+v", item)
		}
	}
}

func TestResolveViewUnknownDocument(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(&models.ProfileSnapshot{}, nil, nil)
	for _, token := range []string{"", rec.Token} {
		_, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: uuid.New(), Token: token})
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			t.Fatalf("expected not found for token %q, got %v", token, err)
		}
	}
	if len(f.recorder.events) != 0 {
		t.Fatal("no view should be recorded for an unknown document")
	}
}

func TestResolveViewWithoutTokenHidesPricing(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.ResolveView(context.Background(), ViewRequest{
		DocumentID: f.doc.ID, Meta: RequestMeta{IPAddress: "203.0.113.9", UserAgent: "curl"},
	})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	assertHidden(t, view)
	if view.PriceBasis != enums.PriceBasisFOB {
		t.Fatalf("expected document default basis, got %s", view.PriceBasis)
	}
	if len(f.recorder.events) != 1 || !f.recorder.events[0].Anonymous() {
		t.Fatalf("expected one anonymous view, got %+v", f.recorder.events)
	}
	if ip := f.recorder.events[0].IPAddress; ip == nil || *ip != "203.0.113.9" {
		t.Fatalf("expected request meta on view event, got %v", ip)
	}
}

func TestResolveViewMalformedTokenSkipsLookup(t *testing.T) {
	f := newFixture(t)
	for _, token := range []string{"short", "ZZZZZZZZZZZZZZZZ", "0123456789abcdef0"} {
		view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: token})
		if err != nil {
			t.Fatalf("malformed token must not error, got %v", err)
		}
		assertHidden(t, view)
	}
	if f.store.lookups != 0 {
		t.Fatalf("malformed tokens should not reach the store, got %d lookups", f.store.lookups)
	}
}

func TestResolveViewUnknownOrForgedTokenHidesPricing(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(&models.ProfileSnapshot{}, nil, nil)

	view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: "0123456789abcdef"})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	assertHidden(t, view)

	// A stored record whose nonce no longer recomputes must not unlock pricing.
	rec.Nonce = "tampered"
	view, err = f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	assertHidden(t, view)
}

func TestResolveViewLookupFailureDegradesToHidden(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(&models.ProfileSnapshot{}, nil, nil)
	f.store.lookupErr = errors.New("connection reset")

	view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token})
	if err != nil {
		t.Fatalf("storage failure must not surface, got %v", err)
	}
	assertHidden(t, view)
}

func TestResolveViewValidTokenUsesSnapshotOverridesAndBasis(t *testing.T) {
	f := newFixture(t)
	basis := enums.PriceBasisDelivered
	snapshot := store.SnapshotOf(pricing.Profile{GlobalPercent: decimal.NewFromInt(-10)})
	rec := f.addRecord(snapshot, map[string]pricing.Override{
		f.doc.LineItems[1].ID.String(): pricing.CommentOverride("call for price"),
	}, &basis)

	view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	if !view.PricingVisible {
		t.Fatal("expected pricing visible")
	}
	if view.LineItems[0].Price == nil || *view.LineItems[0].Price != "9.00" {
		t.Fatalf("expected snapshot price 9.00 (not live +25%%), got %v", view.LineItems[0].Price)
	}
	if view.LineItems[1].Price != nil || view.LineItems[1].Comment != "call for price" {
		t.Fatalf("expected comment override on withheld item, got %+v", view.LineItems[1])
	}
	if view.PriceBasis != enums.PriceBasisDelivered {
		t.Fatalf("expected record basis, got %s", view.PriceBasis)
	}
	if view.PreparedFor != "Fresh Mart" {
		t.Fatalf("expected prepared-for company, got %q", view.PreparedFor)
	}

	if len(f.recorder.events) != 1 {
		t.Fatalf("expected one view event, got %d", len(f.recorder.events))
	}
	event := f.recorder.events[0]
	if event.SendRecordID == nil || *event.SendRecordID != rec.ID || event.Token == nil || *event.Token != rec.Token {
		t.Fatalf("view event not attributed to send: %+v", event)
	}
}

func TestResolveViewLegacyRecordUsesLiveProfile(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(nil, nil, nil)

	view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	if view.LineItems[0].Price == nil || *view.LineItems[0].Price != "12.50" {
		t.Fatalf("expected live +25%% price 12.50, got %v", view.LineItems[0].Price)
	}
}

func TestResolveViewPreviewSkipsAnalytics(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(&models.ProfileSnapshot{}, nil, nil)

	view, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token, Preview: true})
	if err != nil {
		t.Fatalf("ResolveView: %v", err)
	}
	if !view.PricingVisible {
		t.Fatal("preview must not change pricing visibility")
	}
	if len(f.recorder.events) != 0 {
		t.Fatal("preview must not record a view")
	}
}

func TestResolveViewOwnerPreviewScopesToOwner(t *testing.T) {
	f := newFixture(t)
	stranger := uuid.New()
	_, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Preview: true, OwnerID: &stranger})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for another owner, got %v", err)
	}

	owner := f.doc.OwnerID
	if _, err := f.svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Preview: true, OwnerID: &owner}); err != nil {
		t.Fatalf("owner preview failed: %v", err)
	}
}
