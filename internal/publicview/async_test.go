package publicview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/pricesheets-backend/internal/views"
	"github.com/angelmondragon/pricesheets-backend/pkg/db/models"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
)

type blockingViewStore struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	events  []models.ViewEvent
}

func (b *blockingViewStore) AppendViewEvent(ctx context.Context, event *models.ViewEvent) error {
	close(b.started)
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *event)
	return nil
}

func TestResolveViewDoesNotWaitForViewWrite(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(&models.ProfileSnapshot{}, nil, nil)

	viewStore := &blockingViewStore{started: make(chan struct{}), release: make(chan struct{})}
	recorder, err := views.NewRecorder(views.RecorderParams{Store: viewStore, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	svc, err := NewService(ServiceParams{Store: f.store, Codec: f.codec, Recorder: recorder, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	type outcome struct {
		view *View
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		view, err := svc.ResolveView(context.Background(), ViewRequest{DocumentID: f.doc.ID, Token: rec.Token})
		done <- outcome{view: view, err: err}
	}()

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("ResolveView: %v", got.err)
		}
		if !got.view.PricingVisible {
			t.Fatal("expected pricing visible for a valid token")
		}
	case <-time.After(2 * time.Second):
		close(viewStore.release)
		t.Fatal("view was not returned while the event write was blocked")
	}

	select {
	case <-viewStore.started:
	case <-time.After(2 * time.Second):
		t.Fatal("view event write never started")
	}
	viewStore.mu.Lock()
	pending := len(viewStore.events)
	viewStore.mu.Unlock()
	if pending != 0 {
		t.Fatal("event should still be blocked")
	}

	close(viewStore.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := recorder.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(viewStore.events) != 1 || viewStore.events[0].Token == nil || *viewStore.events[0].Token != rec.Token {
		t.Fatalf("expected one attributed view event, got %+v", viewStore.events)
	}
}
