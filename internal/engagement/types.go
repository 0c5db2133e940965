package engagement

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Summary is the owner dashboard payload for one range.
type Summary struct {
	Range           Range             `json:"range"`
	TotalSends      int               `json:"totalSends"`
	TotalViews      int               `json:"totalViews"`
	ViewRatePercent int               `json:"viewRatePercent"`
	Documents       []DocumentSummary `json:"documents"`
}

// DocumentSummary rolls up one document's sends in the range.
type DocumentSummary struct {
	DocumentID           uuid.UUID          `json:"documentId"`
	Sends                int                `json:"sends"`
	Views                int                `json:"views"`
	UniqueRecipients     int                `json:"uniqueRecipients"`
	UniqueViewers        int                `json:"uniqueViewers"`
	FirstViewedAt        *time.Time         `json:"firstViewedAt"`
	LastViewedAt         *time.Time         `json:"lastViewedAt"`
	AvgViewsPerRecipient string             `json:"avgViewsPerRecipient"`
	SendEntries          []SendEntry        `json:"sendEntries"`
	Recipients           []RecipientSummary `json:"recipients"`
}

// SendEntry is one send with its own views. LastViewedAt is nil when the
// recipient never opened that send.
type SendEntry struct {
	SendRecordID uuid.UUID  `json:"sendRecordId"`
	RecipientID  uuid.UUID  `json:"recipientId"`
	SentAt       time.Time  `json:"sentAt"`
	Views        int        `json:"views"`
	LastViewedAt *time.Time `json:"lastViewedAt"`
}

// RecipientSummary aggregates every send of a document to one recipient.
type RecipientSummary struct {
	RecipientID   uuid.UUID  `json:"recipientId"`
	Sends         int        `json:"sends"`
	Views         int        `json:"views"`
	FirstViewedAt *time.Time `json:"firstViewedAt"`
	LastViewedAt  *time.Time `json:"lastViewedAt"`
}

type sendTally struct {
	entry SendEntry
	doc   *docTally
}

type docTally struct {
	id         uuid.UUID
	sends      []*sendTally
	views      int
	viewers    map[uuid.UUID]struct{}
	recipients map[uuid.UUID]*RecipientSummary
	first      *time.Time
	last       *time.Time
	lastSentAt time.Time
}

func newDocTally(id uuid.UUID) *docTally {
	return &docTally{
		id:         id,
		viewers:    map[uuid.UUID]struct{}{},
		recipients: map[uuid.UUID]*RecipientSummary{},
	}
}

func (d *docTally) recipient(id uuid.UUID) *RecipientSummary {
	rs, ok := d.recipients[id]
	if !ok {
		rs = &RecipientSummary{RecipientID: id}
		d.recipients[id] = rs
	}
	return rs
}

func (d *docTally) summary() DocumentSummary {
	out := DocumentSummary{
		DocumentID:           d.id,
		Sends:                len(d.sends),
		Views:                d.views,
		UniqueRecipients:     len(d.recipients),
		UniqueViewers:        len(d.viewers),
		FirstViewedAt:        d.first,
		LastViewedAt:         d.last,
		AvgViewsPerRecipient: avgViews(d.views, len(d.recipients)),
		SendEntries:          make([]SendEntry, 0, len(d.sends)),
		Recipients:           make([]RecipientSummary, 0, len(d.recipients)),
	}
	for _, s := range d.sends {
		out.SendEntries = append(out.SendEntries, s.entry)
	}
	for _, rs := range d.recipients {
		out.Recipients = append(out.Recipients, *rs)
	}
	sort.Slice(out.Recipients, func(i, j int) bool {
		a, b := out.Recipients[i], out.Recipients[j]
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		return a.RecipientID.String() < b.RecipientID.String()
	})
	return out
}
