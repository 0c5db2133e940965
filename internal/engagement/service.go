// Package engagement rolls send and view events up into dashboard metrics.
package engagement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/store"
	pkgerrors "github.com/angelmondragon/pricesheets-backend/pkg/errors"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store loads the raw events for a range.
type Store interface {
	QueryEvents(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*store.EventSet, error)
}

// Service summarizes engagement for an owner.
type Service interface {
	Summarize(ctx context.Context, ownerID uuid.UUID, r Range) (*Summary, error)
}

// Range is inclusive on both ends.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if r.End.Before(r.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

type ServiceParams struct {
	Store  Store
	Logger *logger.Logger
}

type service struct {
	store Store
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{store: params.Store, logg: params.Logger}, nil
}

func (s *service) Summarize(ctx context.Context, ownerID uuid.UUID, r Range) (*Summary, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	r = Range{Start: r.Start.UTC(), End: r.End.UTC()}

	events, err := s.store.QueryEvents(ctx, ownerID, r.Start, r.End)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load engagement events")
	}

	summary := aggregate(r, events)
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"owner_id":    ownerID.String(),
		"total_sends": summary.TotalSends,
		"total_views": summary.TotalViews,
	}), "engagement summarized")
	return summary, nil
}

// aggregate joins views to sends by token only. Views without a token, views
// of out-of-range sends and views outside the range are ignored.
func aggregate(r Range, events *store.EventSet) *Summary {
	summary := &Summary{Range: r, Documents: []DocumentSummary{}}
	if events == nil {
		return summary
	}

	byToken := make(map[string]*sendTally, len(events.Sends))
	docs := map[uuid.UUID]*docTally{}
	var order []uuid.UUID

	for _, rec := range events.Sends {
		doc, ok := docs[rec.DocumentID]
		if !ok {
			doc = newDocTally(rec.DocumentID)
			docs[rec.DocumentID] = doc
			order = append(order, rec.DocumentID)
		}
		tally := &sendTally{
			entry: SendEntry{
				SendRecordID: rec.ID,
				RecipientID:  rec.RecipientID,
				SentAt:       rec.CreatedAt.UTC(),
			},
			doc: doc,
		}
		doc.sends = append(doc.sends, tally)
		doc.recipient(rec.RecipientID).Sends++
		if rec.CreatedAt.After(doc.lastSentAt) {
			doc.lastSentAt = rec.CreatedAt
		}
		byToken[rec.Token] = tally
		summary.TotalSends++
	}

	for _, view := range events.Views {
		if view.Token == nil {
			continue
		}
		tally, ok := byToken[*view.Token]
		if !ok {
			continue
		}
		at := view.ViewedAt.UTC()
		if at.Before(r.Start) || at.After(r.End) {
			continue
		}
		tally.entry.Views++
		tally.entry.LastViewedAt = later(tally.entry.LastViewedAt, at)

		doc := tally.doc
		doc.views++
		doc.viewers[tally.entry.RecipientID] = struct{}{}
		doc.first = earlier(doc.first, at)
		doc.last = later(doc.last, at)

		rs := doc.recipient(tally.entry.RecipientID)
		rs.Views++
		rs.FirstViewedAt = earlier(rs.FirstViewedAt, at)
		rs.LastViewedAt = later(rs.LastViewedAt, at)

		summary.TotalViews++
	}

	summary.ViewRatePercent = viewRate(summary.TotalViews, summary.TotalSends)

	sort.SliceStable(order, func(i, j int) bool {
		a, b := docs[order[i]], docs[order[j]]
		if !a.lastSentAt.Equal(b.lastSentAt) {
			return a.lastSentAt.After(b.lastSentAt)
		}
		return a.id.String() < b.id.String()
	})
	for _, id := range order {
		summary.Documents = append(summary.Documents, docs[id].summary())
	}
	return summary
}

// viewRate is views over sends as a whole percent, rounded half up.
func viewRate(views, sends int) int {
	if sends == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(views) * 100).
		Div(decimal.NewFromInt(int64(sends))).
		Round(0).
		IntPart())
}

func avgViews(views, recipients int) string {
	if recipients == 0 {
		return decimal.Zero.StringFixed(1)
	}
	return decimal.NewFromInt(int64(views)).
		Div(decimal.NewFromInt(int64(recipients))).
		StringFixed(1)
}

func earlier(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.Before(*current) {
		return &candidate
	}
	return current
}

func later(current *time.Time, candidate time.Time) *time.Time {
	if current == nil || candidate.After(*current) {
		return &candidate
	}
	return current
}
