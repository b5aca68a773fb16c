// Package diagnostics renders a read-only view of the session machine for
// development builds. It is only linked into binaries built with the
// devtools tag.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
)

// DefaultHistoryLines is the number of history entries shown by default
const DefaultHistoryLines = 10

// HistoryLine is one rendered history entry
type HistoryLine struct {
	Status session.Status `json:"status"`
	Ago    string         `json:"ago"`
}

// SectionLine is the rendered state of one section
type SectionLine struct {
	Phase section.Phase `json:"phase"`
	Error string        `json:"error,omitempty"`
}

// View is the overlay content
type View struct {
	Status   session.Status                      `json:"status"`
	Payload  map[string]any                      `json:"payload,omitempty"`
	Flags    map[string]bool                     `json:"flags"`
	History  []HistoryLine                       `json:"history"`
	Sections map[session.SectionName]SectionLine `json:"sections,omitempty"`
}

// SnapshotSource is the read side of the session machine
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// SectionSource is the read side of the section loader
type SectionSource interface {
	States() map[session.SectionName]section.State
}

// Overlay builds diagnostics views. It never mutates what it reads.
type Overlay struct {
	machine  SnapshotSource
	sections SectionSource
	lines    int
	now      func() time.Time
}

// OverlayOption is a functional option for configuring the overlay
type OverlayOption func(*Overlay)

// WithSections adds per-section phases to the view
func WithSections(s SectionSource) OverlayOption {
	return func(o *Overlay) {
		o.sections = s
	}
}

// WithHistoryLines sets how many recent history entries are shown
func WithHistoryLines(n int) OverlayOption {
	return func(o *Overlay) {
		if n > 0 {
			o.lines = n
		}
	}
}

// WithClock sets the clock used for relative timestamps
func WithClock(now func() time.Time) OverlayOption {
	return func(o *Overlay) {
		o.now = now
	}
}

// NewOverlay creates a new overlay
func NewOverlay(machine SnapshotSource, opts ...OverlayOption) *Overlay {
	o := &Overlay{
		machine: machine,
		lines:   DefaultHistoryLines,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// View renders the current state, most recent history entries first
func (o *Overlay) View() View {
	snap := o.machine.Snapshot()
	now := o.now()

	v := View{
		Status:  snap.State.Status(),
		Payload: payload(snap.State),
		Flags: map[string]bool{
			"is_loading":       snap.IsLoading,
			"is_error":         snap.IsError,
			"is_ready":         snap.IsReady,
			"is_authenticated": snap.IsAuthenticated,
		},
		History: make([]HistoryLine, 0, o.lines),
	}

	for i := len(snap.History) - 1; i >= 0 && len(v.History) < o.lines; i-- {
		e := snap.History[i]
		v.History = append(v.History, HistoryLine{
			Status: e.Status,
			Ago:    FormatAgo(now.Sub(e.Timestamp)),
		})
	}

	if o.sections != nil {
		states := o.sections.States()
		v.Sections = make(map[session.SectionName]SectionLine, len(states))
		for name, st := range states {
			v.Sections[name] = SectionLine{Phase: st.Phase, Error: st.Error}
		}
	}
	return v
}

// FormatAgo formats an elapsed duration as "x ms ago", "x s ago" or "x m ago"
func FormatAgo(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%d ms ago", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%d s ago", int64(d/time.Second))
	default:
		return fmt.Sprintf("%d m ago", int64(d/time.Minute))
	}
}

func payload(s session.LoadingState) map[string]any {
	switch st := s.(type) {
	case session.Authenticating:
		return map[string]any{"has_cache": st.HasCache}
	case session.LoadingProfile:
		return map[string]any{"user_id": st.UserID}
	case session.LoadingPermissions:
		return map[string]any{"user_id": st.UserID}
	case session.LoadingSection:
		p := map[string]any{"section": st.Section}
		if st.Operation != "" {
			p["operation"] = st.Operation
		}
		return p
	case session.Ready:
		return map[string]any{
			"user_id":  st.User.ID,
			"email":    st.User.Email,
			"role":     st.User.Role,
			"is_admin": st.User.IsAdmin,
		}
	case session.Failed:
		return map[string]any{
			"code":           st.Err.Code,
			"message":        st.Err.Message,
			"can_retry":      st.Err.CanRetry,
			"previous_state": st.PreviousState,
		}
	default:
		return nil
	}
}
