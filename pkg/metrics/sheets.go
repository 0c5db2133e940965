package metrics

import "github.com/prometheus/client_golang/prometheus"

// SheetMetrics counts distribution and public view activity.
type SheetMetrics struct {
	sendOutcomes *prometheus.CounterVec
	viewEvents   *prometheus.CounterVec
}

// NewSheetMetrics registers the sheet counters. A nil registerer yields a no-op value.
func NewSheetMetrics(reg prometheus.Registerer) *SheetMetrics {
	if reg == nil {
		return &SheetMetrics{}
	}
	sendOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesheet_send_outcomes_total",
		Help: "Per-recipient send outcomes.",
	}, []string{"outcome"})
	viewEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricesheet_view_events_total",
		Help: "View events handed to the recorder, by result.",
	}, []string{"result"})
	reg.MustRegister(sendOutcomes, viewEvents)
	return &SheetMetrics{sendOutcomes: sendOutcomes, viewEvents: viewEvents}
}

func (m *SheetMetrics) IncSendOutcome(outcome string) {
	if m == nil || m.sendOutcomes == nil {
		return
	}
	m.sendOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *SheetMetrics) IncViewEvent(result string) {
	if m == nil || m.viewEvents == nil {
		return
	}
	m.viewEvents.WithLabelValues(normalizeLabel(result)).Inc()
}
