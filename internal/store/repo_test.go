package store

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/pricing"
	"github.com/angelmondragon/pricesheets-backend/internal/store/storetest"
	"github.com/angelmondragon/pricesheets-backend/pkg/db"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/angelmondragon/pricesheets-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSendRecord(ownerID, documentID, recipientID uuid.UUID, token string, at time.Time) *models.SendRecord {
	return &models.SendRecord{
		OwnerID:     ownerID,
		DocumentID:  documentID,
		RecipientID: recipientID,
		Token:       token,
		Nonce:       "nonce-" + token,
		Subject:     "Prices",
		CreatedAt:   at,
	}
}

func seedSheet(t *testing.T, conn *gorm.DB, ownerID uuid.UUID) *models.Document {
	return storetest.SeedDocument(t, conn, ownerID,
		models.LineItem{Commodity: "tomato", Variety: "roma", BasePrice: storetest.Price(t, "10.00")},
		models.LineItem{Commodity: "pepper", BasePrice: nil},
	)
}

func TestGetDocumentLoadsOrderedLineItems(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	doc := seedSheet(t, conn, uuid.New())

	got, err := repo.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, "tomato", got.LineItems[0].Commodity)
	require.NotNil(t, got.LineItems[0].BasePrice)
	assert.True(t, got.LineItems[0].BasePrice.Equal(decimal.NewFromInt(10)))
	assert.Nil(t, got.LineItems[1].BasePrice)
	assert.Equal(t, enums.PriceBasisFOB, got.PriceBasis)

	_, err = repo.GetDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRecipientIsOwnerScoped(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ownerID := uuid.New()
	recipient := storetest.SeedRecipient(t, conn, ownerID, "buyer@example.com", "-10", map[string]string{"tomato": "5"})

	got, err := repo.GetRecipient(context.Background(), ownerID, recipient.ID)
	require.NoError(t, err)
	assert.True(t, got.GlobalAdjustmentPercent.Equal(decimal.NewFromInt(-10)))
	require.Len(t, got.ProductAdjustments, 1)
	assert.Equal(t, "tomato", got.ProductAdjustments[0].ProductKey)

	_, err = repo.GetRecipient(context.Background(), uuid.New(), recipient.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendRecordRoundTripsOverridesAndSnapshot(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	ownerID := uuid.New()
	doc := seedSheet(t, conn, ownerID)

	basis := enums.PriceBasisDelivered
	record := newSendRecord(ownerID, doc.ID, uuid.New(), "0123456789abcdef", time.Now())
	record.Overrides = OverrideValues(map[string]pricing.Override{
		doc.LineItems[0].ID.String(): pricing.PriceOverride(decimal.RequireFromString("7.5")),
		doc.LineItems[1].ID.String(): pricing.CommentOverride("call"),
	})
	record.ProfileSnapshot = SnapshotOf(pricing.Profile{
		GlobalPercent:   decimal.NewFromInt(-10),
		ProductPercents: map[string]decimal.Decimal{"tomato": decimal.NewFromInt(5)},
	})
	record.PriceBasis = &basis
	require.NoError(t, repo.AppendSendRecord(ctx, record))
	assert.NotEqual(t, uuid.Nil, record.ID)

	got, err := repo.FindSendRecordByToken(ctx, doc.ID, "0123456789abcdef")
	require.NoError(t, err)
	overrides := OverridesOf(got)
	price, ok := overrides[doc.LineItems[0].ID.String()].Price()
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("7.5")))
	comment, ok := overrides[doc.LineItems[1].ID.String()].Comment()
	require.True(t, ok)
	assert.Equal(t, "call", comment)
	require.NotNil(t, got.ProfileSnapshot)
	profile := ProfileFromSnapshot(*got.ProfileSnapshot)
	assert.True(t, profile.GlobalPercent.Equal(decimal.NewFromInt(-10)))
	assert.True(t, profile.ProductPercents["tomato"].Equal(decimal.NewFromInt(5)))
	require.NotNil(t, got.PriceBasis)
	assert.Equal(t, enums.PriceBasisDelivered, *got.PriceBasis)

	_, err = repo.FindSendRecordByToken(ctx, uuid.New(), "0123456789abcdef")
	assert.ErrorIs(t, err, ErrNotFound, "token must be scoped to its document")
}

func TestAppendSendRecordRejectsDuplicateToken(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	ownerID := uuid.New()
	docID := uuid.New()

	require.NoError(t, repo.AppendSendRecord(ctx, newSendRecord(ownerID, docID, uuid.New(), "aaaaaaaaaaaaaaaa", time.Now())))
	err := repo.AppendSendRecord(ctx, newSendRecord(ownerID, docID, uuid.New(), "aaaaaaaaaaaaaaaa", time.Now()))
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestQueryEventsJoinsByTokenWithinRange(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	ownerID := uuid.New()
	docID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inRange := newSendRecord(ownerID, docID, uuid.New(), "1111111111111111", base)
	outOfRange := newSendRecord(ownerID, docID, uuid.New(), "2222222222222222", base.Add(-48*time.Hour))
	foreign := newSendRecord(uuid.New(), docID, uuid.New(), "3333333333333333", base)
	for _, rec := range []*models.SendRecord{inRange, outOfRange, foreign} {
		require.NoError(t, repo.AppendSendRecord(ctx, rec))
	}

	view := func(token string, at time.Time) {
		tok := token
		require.NoError(t, repo.AppendViewEvent(ctx, &models.ViewEvent{
			OwnerID: ownerID, DocumentID: docID, Token: &tok, ViewedAt: at,
		}))
	}
	view("1111111111111111", base.Add(time.Hour))
	view("1111111111111111", base.Add(72*time.Hour))
	view("2222222222222222", base.Add(time.Hour))
	require.NoError(t, repo.AppendViewEvent(ctx, &models.ViewEvent{OwnerID: ownerID, DocumentID: docID, ViewedAt: base.Add(time.Hour)}))

	events, err := repo.QueryEvents(ctx, ownerID, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events.Sends, 1)
	assert.Equal(t, "1111111111111111", events.Sends[0].Token)
	require.Len(t, events.Views, 1)
	assert.Equal(t, "1111111111111111", *events.Views[0].Token)

	empty, err := repo.QueryEvents(ctx, ownerID, base.Add(240*time.Hour), base.Add(480*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, empty.Sends)
	assert.Empty(t, empty.Views)
}

func TestMarkDocumentSentUnionsRecipients(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	doc := seedSheet(t, conn, uuid.New())
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	sentAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.MarkDocumentSent(ctx, doc.ID, []uuid.UUID{a, b}, sentAt))
	require.NoError(t, repo.MarkDocumentSent(ctx, doc.ID, []uuid.UUID{b, c}, sentAt.Add(time.Hour)))

	got, err := repo.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DocumentStatusSent, got.Status)
	assert.Equal(t, []uuid.UUID{a, b, c}, got.RecipientIDs)
	require.NotNil(t, got.LastSentAt)
	assert.True(t, got.LastSentAt.Equal(sentAt.Add(time.Hour)))

	assert.ErrorIs(t, repo.MarkDocumentSent(ctx, uuid.New(), []uuid.UUID{a}, sentAt), ErrNotFound)
}

func TestListSendRecordsPaginates(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	ownerID := uuid.New()
	docID := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tokens := []string{"a000000000000000", "b000000000000000", "c000000000000000"}
	for i, tok := range tokens {
		require.NoError(t, repo.AppendSendRecord(ctx, newSendRecord(ownerID, docID, uuid.New(), tok, base.Add(time.Duration(i)*time.Minute))))
	}

	page, cursor, err := repo.ListSendRecords(ctx, ListSendRecordsParams{OwnerID: ownerID, DocumentID: docID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c000000000000000", page[0].Token)
	assert.Equal(t, "b000000000000000", page[1].Token)
	require.NotNil(t, cursor)

	encoded := pagination.EncodeCursor(*cursor)
	decoded, err := pagination.ParseCursor(encoded)
	require.NoError(t, err)

	rest, next, err := repo.ListSendRecords(ctx, ListSendRecordsParams{OwnerID: ownerID, DocumentID: docID, Limit: 2, Cursor: decoded})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a000000000000000", rest[0].Token)
	assert.Nil(t, next)
}

func TestFindUnviewedSendsBetween(t *testing.T) {
	conn := storetest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	ownerID := uuid.New()
	docID := uuid.New()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	stale := newSendRecord(ownerID, docID, uuid.New(), "a100000000000000", now.Add(-96*time.Hour))
	viewed := newSendRecord(ownerID, docID, uuid.New(), "a200000000000000", now.Add(-96*time.Hour))
	fresh := newSendRecord(ownerID, docID, uuid.New(), "a300000000000000", now.Add(-time.Hour))
	notified := newSendRecord(ownerID, docID, uuid.New(), "a400000000000000", now.Add(-96*time.Hour))
	ancient := newSendRecord(ownerID, docID, uuid.New(), "a500000000000000", now.Add(-60*24*time.Hour))
	for _, rec := range []*models.SendRecord{stale, viewed, fresh, notified, ancient} {
		require.NoError(t, repo.AppendSendRecord(ctx, rec))
	}
	require.NoError(t, repo.AppendViewEvent(ctx, &models.ViewEvent{
		OwnerID: ownerID, DocumentID: docID, SendRecordID: &viewed.ID, ViewedAt: now.Add(-90 * time.Hour),
	}))
	require.NoError(t, conn.Create(&models.Notification{
		ID: uuid.New(), OwnerID: ownerID, Type: enums.NotificationTypeSendFollowUp,
		Title: "t", Message: "m", SendRecordID: &notified.ID, CreatedAt: now,
	}).Error)

	got, err := repo.FindUnviewedSendsBetween(ctx, now.Add(-30*24*time.Hour), now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.ID, got[0].ID)
}

func TestMergeIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b}, mergeIDs([]uuid.UUID{a}, []uuid.UUID{a, b}))
	assert.Empty(t, mergeIDs(nil, nil))
}

func TestProfileOfNormalizesKeys(t *testing.T) {
	recipient := &models.Recipient{
		GlobalAdjustmentPercent: decimal.NewFromInt(-10),
		ProductAdjustments: []models.RecipientProductAdjustment{
			{ProductKey: "Tomato/Roma", AdjustmentPercent: decimal.NewFromInt(20)},
			{ProductKey: " onion ", AdjustmentPercent: decimal.NewFromInt(3)},
		},
	}
	profile := ProfileOf(recipient)
	assert.True(t, profile.GlobalPercent.Equal(decimal.NewFromInt(-10)))
	assert.True(t, profile.ProductPercents["tomato/roma"].Equal(decimal.NewFromInt(20)))
	assert.True(t, profile.ProductPercents["onion"].Equal(decimal.NewFromInt(3)))

	assert.Nil(t, ProfileOf(&models.Recipient{}).ProductPercents)
}
