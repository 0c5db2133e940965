// Package storetest opens throwaway sqlite databases carrying the sheet schema.
package storetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE recipients (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  email TEXT NOT NULL,
  company TEXT NOT NULL,
  contact_name TEXT,
  global_adjustment_percent TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE recipient_product_adjustments (
  id TEXT PRIMARY KEY,
  recipient_id TEXT NOT NULL,
  product_key TEXT NOT NULL,
  adjustment_percent TEXT NOT NULL
);`,
	`CREATE TABLE documents (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  price_basis TEXT NOT NULL DEFAULT 'FOB',
  recipient_ids TEXT NOT NULL DEFAULT '[]',
  last_sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE document_line_items (
  id TEXT PRIMARY KEY,
  document_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  commodity TEXT NOT NULL,
  variety TEXT NOT NULL DEFAULT '',
  package TEXT NOT NULL DEFAULT '',
  grade TEXT NOT NULL DEFAULT '',
  base_price TEXT,
  availability TEXT
);`,
	`CREATE TABLE send_records (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  document_id TEXT NOT NULL,
  recipient_id TEXT NOT NULL,
  token TEXT NOT NULL UNIQUE,
  nonce TEXT NOT NULL,
  overrides TEXT,
  profile_snapshot TEXT,
  price_basis TEXT,
  subject TEXT NOT NULL,
  created_at DATETIME NOT NULL
);`,
	`CREATE TABLE view_events (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  document_id TEXT NOT NULL,
  send_record_id TEXT,
  token TEXT,
  recipient_id TEXT,
  viewed_at DATETIME NOT NULL,
  ip_address TEXT,
  user_agent TEXT,
  referer TEXT
);`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  send_record_id TEXT UNIQUE,
  read_at DATETIME,
  created_at DATETIME NOT NULL
);`,
}

// Open returns an isolated in-memory database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

// Price is a shorthand for a non-null base price.
func Price(t testing.TB, value string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad price %q: %v", value, err)
	}
	return &d
}

// SeedDocument inserts a document and its line items, filling ids and positions.
func SeedDocument(t testing.TB, conn *gorm.DB, ownerID uuid.UUID, items ...models.LineItem) *models.Document {
	t.Helper()
	now := time.Now().UTC()
	doc := &models.Document{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Title:        "Weekly availability",
		Status:       enums.DocumentStatusDraft,
		PriceBasis:   enums.PriceBasisFOB,
		RecipientIDs: []uuid.UUID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := conn.Omit("LineItems").Create(doc).Error; err != nil {
		t.Fatalf("seed document: %v", err)
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].DocumentID = doc.ID
		items[i].Position = i
		if err := conn.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed line item: %v", err)
		}
	}
	doc.LineItems = items
	return doc
}

// SeedRecipient inserts a recipient with a global percentage and optional
// product percentages keyed by product key.
func SeedRecipient(t testing.TB, conn *gorm.DB, ownerID uuid.UUID, email, globalPercent string, productPercents map[string]string) *models.Recipient {
	t.Helper()
	now := time.Now().UTC()
	global, err := decimal.NewFromString(globalPercent)
	if err != nil {
		t.Fatalf("bad percent %q: %v", globalPercent, err)
	}
	recipient := &models.Recipient{
		ID:                      uuid.New(),
		OwnerID:                 ownerID,
		Email:                   email,
		Company:                 email + " produce",
		GlobalAdjustmentPercent: global,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := conn.Omit("ProductAdjustments").Create(recipient).Error; err != nil {
		t.Fatalf("seed recipient: %v", err)
	}
	for key, raw := range productPercents {
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			t.Fatalf("bad percent %q: %v", raw, err)
		}
		adj := models.RecipientProductAdjustment{
			ID:                uuid.New(),
			RecipientID:       recipient.ID,
			ProductKey:        key,
			AdjustmentPercent: pct,
		}
		if err := conn.Create(&adj).Error; err != nil {
			t.Fatalf("seed adjustment: %v", err)
		}
		recipient.ProductAdjustments = append(recipient.ProductAdjustments, adj)
	}
	return recipient
}
