package telemetry

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"go.opentelemetry.io/otel/metric"
)

// SessionMetrics records session machine transitions and section loads
type SessionMetrics struct {
	transitions  *Counter
	errors       *Counter
	sectionLoads *Counter
	loadDuration *Histogram
}

// NewSessionMetrics creates the session instruments on meter
func NewSessionMetrics(meter metric.Meter) (*SessionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	transitions, err := NewCounter(meter, "session_transitions_total",
		"Session state machine transitions", "{transition}")
	if err != nil {
		return nil, err
	}
	errs, err := NewCounter(meter, "session_errors_total",
		"Transitions into the error state", "{error}")
	if err != nil {
		return nil, err
	}
	loads, err := NewCounter(meter, "section_loads_total",
		"Section data fetches", "{fetch}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "section_load_duration_seconds",
		"Duration of section data fetches", "s", FetchDurationBuckets...)
	if err != nil {
		return nil, err
	}

	return &SessionMetrics{
		transitions:  transitions,
		errors:       errs,
		sectionLoads: loads,
		loadDuration: duration,
	}, nil
}

// Observe records one machine transition. It matches session.Observer.
func (m *SessionMetrics) Observe(t session.Transition) {
	ctx := context.Background()
	m.transitions.Inc(ctx,
		AttrFromStatus.String(string(t.From.Status())),
		AttrToStatus.String(string(t.To.Status())))
	if failed, ok := t.To.(session.Failed); ok {
		m.errors.Inc(ctx, AttrErrorCode.String(failed.Err.Code))
	}
}

// RecordSectionLoad records the outcome and duration of a section fetch
func (m *SessionMetrics) RecordSectionLoad(ctx context.Context, section string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.sectionLoads.Inc(ctx, AttrSection.String(section), AttrOutcome.String(outcome))
	m.loadDuration.RecordDuration(ctx, d, AttrSection.String(section))
}
