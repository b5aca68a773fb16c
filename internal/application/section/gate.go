package section

import (
	"context"

	"github.com/crm/backend/internal/domain/session"
	"go.uber.org/zap"
)

// AccessPolicy decides whether a viewer gets the loading gate
type AccessPolicy interface {
	Elevated(ctx context.Context, user session.UserInfo) bool
}

// ViewKind is what a gated section renders
type ViewKind string

const (
	ViewContent ViewKind = "content"
	ViewLoading ViewKind = "loading"
	ViewError   ViewKind = "error"
)

// View is the rendered state of a gated section
type View struct {
	Kind    ViewKind            `json:"kind"`
	Section session.SectionName `json:"section"`
	Title   string              `json:"title"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`

	// Retry re-runs the section's loader. Only set on error views.
	Retry func(ctx context.Context) error `json:"-"`
}

// Gate shows a loading or error view for a section until its data is ready.
// Viewers without the elevated capability bypass the gate entirely and get
// content at once; for them the gate never triggers a load.
type Gate struct {
	loader *Loader
	policy AccessPolicy
	logger *zap.Logger
}

// NewGate creates a new gate
func NewGate(loader *Loader, policy AccessPolicy, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		loader: loader,
		policy: policy,
		logger: logger,
	}
}

// Mount starts loading the section for elevated viewers. The returned channel
// is closed when the load has finished, or at once for bypassed viewers.
func (g *Gate) Mount(ctx context.Context, viewer session.UserInfo, name session.SectionName) <-chan struct{} {
	done := make(chan struct{})
	if !g.policy.Elevated(ctx, viewer) {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		if _, err := g.loader.Load(context.WithoutCancel(ctx), name); err != nil {
			g.logger.Debug("Gated section load failed",
				zap.String("section", name.String()),
				zap.Error(err))
		}
	}()
	return done
}

// Render returns the view for the section. Elevated viewers see the loading
// view only while a load is in flight; an idle section renders as content
// without data.
func (g *Gate) Render(ctx context.Context, viewer session.UserInfo, name session.SectionName, title string) View {
	view := View{Kind: ViewContent, Section: name, Title: title}
	if !g.policy.Elevated(ctx, viewer) {
		return view
	}

	st := g.loader.State(name)
	switch st.Phase {
	case PhaseLoading:
		view.Kind = ViewLoading
		view.Message = "Loading " + title + "..."
	case PhaseError:
		view.Kind = ViewError
		view.Message = st.Error
		view.Retry = func(ctx context.Context) error {
			_, err := g.loader.Retry(ctx, name)
			return err
		}
	case PhaseReady:
		view.Data = st.Data
	}
	return view
}

// Retry re-runs the section's loader for elevated viewers. Bypassed viewers
// have nothing to retry.
func (g *Gate) Retry(ctx context.Context, viewer session.UserInfo, name session.SectionName) error {
	if !g.policy.Elevated(ctx, viewer) {
		return nil
	}
	_, err := g.loader.Retry(ctx, name)
	return err
}
