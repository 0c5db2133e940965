// Package views records sheet opens off the request path.
package views

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/angelmondragon/pricesheets-backend/pkg/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// Store is the persistence surface the recorder needs.
type Store interface {
	AppendViewEvent(ctx context.Context, event *models.ViewEvent) error
}

// RecorderParams wires a Recorder.
type RecorderParams struct {
	Store        Store
	Logger       *logger.Logger
	Metrics      *metrics.SheetMetrics
	WriteTimeout time.Duration
}

// Recorder persists view events asynchronously. Failures are logged and never
// reach the viewer.
type Recorder struct {
	store   Store
	logg    *logger.Logger
	metrics *metrics.SheetMetrics
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(params RecorderParams) (*Recorder, error) {
	if params.Store == nil {
		return nil, errors.New("view store required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	timeout := params.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Recorder{
		store:   params.Store,
		logg:    params.Logger,
		metrics: params.Metrics,
		timeout: timeout,
	}, nil
}

// Record hands the event to a background goroutine and returns immediately.
// The write outlives the request context but keeps its logging fields.
func (r *Recorder) Record(ctx context.Context, event models.ViewEvent) {
	detached := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		writeCtx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()

		if err := r.store.AppendViewEvent(writeCtx, &event); err != nil {
			r.metrics.IncViewEvent("failed")
			logCtx := r.logg.WithFields(detached, map[string]any{
				"document_id": event.DocumentID.String(),
				"anonymous":   event.Anonymous(),
			})
			r.logg.Error(logCtx, "record view event", err)
			return
		}
		r.metrics.IncViewEvent("recorded")
	}()
}

// Wait blocks until in-flight writes finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
