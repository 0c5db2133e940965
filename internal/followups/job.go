// Package followups prompts owners about sends that were never opened.
package followups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/notifications"
	"github.com/angelmondragon/pricesheets-backend/internal/store"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/enums"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	JobName = "send-follow-ups"

	defaultAfter    = 72 * time.Hour
	defaultLookback = 30 * 24 * time.Hour
	defaultBatch    = 100
	maxBatches      = 20
)

// Store reads unviewed sends and their context.
type Store interface {
	FindUnviewedSendsBetween(ctx context.Context, since, before time.Time, limit int) ([]models.SendRecord, error)
	GetDocument(ctx context.Context, documentID uuid.UUID) (*models.Document, error)
	GetRecipient(ctx context.Context, ownerID, recipientID uuid.UUID) (*models.Recipient, error)
}

// Notifier creates owner notifications.
type Notifier interface {
	Create(ctx context.Context, input notifications.CreateInput) (*models.Notification, bool, error)
}

type JobParams struct {
	Store    Store
	Notifier Notifier
	Logger   *logger.Logger
	// After is how long a send may stay unopened before the owner is prompted.
	After time.Duration
	// Lookback stops prompting for sends older than this.
	Lookback  time.Duration
	BatchSize int
	Clock     func() time.Time
}

// Job creates one notification per unopened send in the follow-up window.
type Job struct {
	store    Store
	notifier Notifier
	logg     *logger.Logger
	after    time.Duration
	lookback time.Duration
	batch    int
	now      func() time.Time
}

func NewJob(params JobParams) (*Job, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	job := &Job{
		store:    params.Store,
		notifier: params.Notifier,
		logg:     params.Logger,
		after:    params.After,
		lookback: params.Lookback,
		batch:    params.BatchSize,
		now:      params.Clock,
	}
	if job.after <= 0 {
		job.after = defaultAfter
	}
	if job.lookback <= 0 {
		job.lookback = defaultLookback
	}
	if job.lookback <= job.after {
		job.lookback = job.after + defaultLookback
	}
	if job.batch <= 0 {
		job.batch = defaultBatch
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func (j *Job) Name() string { return JobName }

func (j *Job) Run(ctx context.Context) error {
	now := j.now().UTC()
	since, before := now.Add(-j.lookback), now.Add(-j.after)

	var (
		created int
		errs    error
	)
	for batch := 0; batch < maxBatches; batch++ {
		records, err := j.store.FindUnviewedSendsBetween(ctx, since, before, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("find unviewed sends: %w", err))
		}

		progressed := 0
		for i := range records {
			ok, err := j.notify(ctx, &records[i], now)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			progressed++
			if ok {
				created++
			}
		}
		// Failed records stay eligible; stop instead of refetching them forever.
		if len(records) < j.batch || progressed == 0 {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"created": created,
		"since":   since,
		"before":  before,
	}), "follow-up notifications created")
	return errs
}

func (j *Job) notify(ctx context.Context, record *models.SendRecord, now time.Time) (bool, error) {
	doc, err := j.store.GetDocument(ctx, record.DocumentID)
	if err != nil {
		return false, fmt.Errorf("load document %s: %w", record.DocumentID, err)
	}
	who := "A recipient"
	recipient, err := j.store.GetRecipient(ctx, record.OwnerID, record.RecipientID)
	switch {
	case err == nil:
		who = recipient.Company
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("load recipient %s: %w", record.RecipientID, err)
	}

	days := int(now.Sub(record.CreatedAt).Hours() / 24)
	sendID := record.ID
	_, created, err := j.notifier.Create(ctx, notifications.CreateInput{
		OwnerID:      record.OwnerID,
		Type:         enums.NotificationTypeSendFollowUp,
		Title:        fmt.Sprintf("No views yet: %s", doc.Title),
		Message:      fmt.Sprintf("%s has not opened the price sheet sent %d days ago.", who, days),
		Link:         fmt.Sprintf("/documents/%s/sends", doc.ID),
		SendRecordID: &sendID,
	})
	if err != nil {
		return false, fmt.Errorf("notify send %s: %w", record.ID, err)
	}
	return created, nil
}
