package section

import (
	"context"
	"sync"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader errors
var (
	ErrUnknownSection = shared.NewDomainError("INVALID_SECTION", "Unknown section")
	ErrNoFetcher      = shared.NewDomainError("NO_FETCHER", "No fetcher registered for section")
	ErrBusy           = shared.NewDomainError("SECTION_BUSY", "Section cannot start loading")
)

// FetchFunc fetches the data of one section
type FetchFunc func(ctx context.Context) (any, error)

// Escalator receives section failures that should surface as a global error.
// SessionToken is taken when a fetch starts; Escalate must drop the error when
// that session has since ended or been replaced, or when the session is not
// ready. The session bootstrapper implements it.
type Escalator interface {
	SessionToken() uint64
	Escalate(tok uint64, section session.SectionName, operation string, err session.AppError) bool
}

// LoadRecorder records the outcome of section fetches
type LoadRecorder interface {
	RecordSectionLoad(ctx context.Context, section string, d time.Duration, err error)
}

// State is a snapshot of one section's lifecycle
type State struct {
	Phase     Phase     `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Data      any       `json:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// LoaderOption is a functional option for configuring the loader
type LoaderOption func(*Loader)

// WithCache sets the cache used between loads
func WithCache(cache Cache, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		l.cache = cache
		l.cacheTTL = ttl
	}
}

// WithTimeout bounds each fetch
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithEscalation makes failures of the given sections move the escalator
// through loading-section into error, so a global retry re-runs them.
func WithEscalation(e Escalator, sections ...session.SectionName) LoaderOption {
	return func(l *Loader) {
		l.escalator = e
		for _, s := range sections {
			l.escalate[s] = true
		}
	}
}

// WithRecorder sets the recorder for fetch metrics
func WithRecorder(r LoadRecorder) LoaderOption {
	return func(l *Loader) {
		l.recorder = r
	}
}

// WithLogger sets the logger for the loader
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = log
	}
}

// Loader loads section data with at most one in-flight fetch per section.
// A concurrent second call joins the pending fetch and gets its result.
// Failures stay local to the section unless escalation is configured.
type Loader struct {
	fetchers  map[session.SectionName]FetchFunc
	group     singleflight.Group
	cache     Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	escalator Escalator
	escalate  map[session.SectionName]bool
	recorder  LoadRecorder
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	states map[session.SectionName]*State
	epoch  uint64
}

// NewLoader creates a loader for the given fetchers
func NewLoader(fetchers map[session.SectionName]FetchFunc, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetchers: make(map[session.SectionName]FetchFunc, len(fetchers)),
		cache:    noopCache{},
		escalate: make(map[session.SectionName]bool),
		logger:   zap.NewNop(),
		now:      time.Now,
		states:   make(map[session.SectionName]*State),
	}
	for name, fn := range fetchers {
		l.fetchers[name] = fn
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the section's data, serving it from cache when present.
// If a fetch for the section is already in flight the call joins it.
func (l *Loader) Load(ctx context.Context, name session.SectionName) (any, error) {
	return l.do(ctx, name, false)
}

// Reload discards cached data and fetches again
func (l *Loader) Reload(ctx context.Context, name session.SectionName) (any, error) {
	if err := l.cache.Delete(ctx, name); err != nil {
		l.log(ctx).Warn("Failed to invalidate section cache", zap.String("section", name.String()), zap.Error(err))
	}
	return l.do(ctx, name, true)
}

// Retry re-runs a failed section, bypassing the cache
func (l *Loader) Retry(ctx context.Context, name session.SectionName) (any, error) {
	return l.Reload(ctx, name)
}

func (l *Loader) LoadCustomers(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionCustomers)
}

func (l *Loader) LoadProjects(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionProjects)
}

func (l *Loader) LoadPlanning(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionPlanning)
}

func (l *Loader) LoadTimeRegistration(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionTimeRegistration)
}

func (l *Loader) LoadReceipts(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionReceipts)
}

func (l *Loader) LoadQuotes(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionQuotes)
}

func (l *Loader) LoadPersonnel(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionPersonnel)
}

func (l *Loader) LoadUsers(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionUsers)
}

func (l *Loader) LoadSettings(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionSettings)
}

func (l *Loader) LoadEmail(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionEmail)
}

func (l *Loader) LoadChat(ctx context.Context) (any, error) {
	return l.Load(ctx, session.SectionChat)
}

// Phase returns the section's current phase
func (l *Loader) Phase(name session.SectionName) Phase {
	return l.State(name).Phase
}

// IsLoading reports whether a fetch for the section is in flight
func (l *Loader) IsLoading(name session.SectionName) bool {
	return l.Phase(name) == PhaseLoading
}

// ErrorMessage returns the last error of the section, or "" when it has none
func (l *Loader) ErrorMessage(name session.SectionName) string {
	return l.State(name).Error
}

// Data returns the last successfully loaded data of the section
func (l *Loader) Data(name session.SectionName) (any, bool) {
	st := l.State(name)
	return st.Data, st.Phase == PhaseReady
}

// State returns a snapshot of the section's lifecycle
func (l *Loader) State(name session.SectionName) State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if st, ok := l.states[name]; ok {
		return *st
	}
	return State{Phase: PhaseIdle}
}

// States returns snapshots of every section that has left idle
func (l *Loader) States() map[session.SectionName]State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[session.SectionName]State, len(l.states))
	for name, st := range l.states {
		out[name] = *st
	}
	return out
}

// Reset returns every section to idle and drops cached data. Fetches still
// in flight finish without touching the new state.
func (l *Loader) Reset(ctx context.Context) {
	l.mu.Lock()
	l.epoch++
	l.states = make(map[session.SectionName]*State)
	l.mu.Unlock()

	for name := range l.fetchers {
		l.group.Forget(name.String())
		if err := l.cache.Delete(ctx, name); err != nil {
			l.log(ctx).Warn("Failed to invalidate section cache", zap.String("section", name.String()), zap.Error(err))
		}
	}
	l.log(ctx).Debug("Section loader reset")
}

func (l *Loader) currentEpoch() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

func (l *Loader) do(ctx context.Context, name session.SectionName, fresh bool) (any, error) {
	if !name.Valid() {
		return nil, ErrUnknownSection
	}
	fetch, ok := l.fetchers[name]
	if !ok {
		return nil, ErrNoFetcher
	}

	// The shared fetch must outlive any single caller.
	flightCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(name.String(), func() (any, error) {
		return l.run(flightCtx, name, fetch, fresh)
	})

	select {
	case res := <-ch:
		if res.Shared {
			l.log(ctx).Debug("Joined in-flight section load", zap.String("section", name.String()))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(ctx context.Context, name session.SectionName, fetch FetchFunc, fresh bool) (any, error) {
	epoch := l.currentEpoch()
	if !l.transition(name, epoch, PhaseLoading, nil, nil) {
		return nil, ErrBusy
	}
	var sessionTok uint64
	if l.escalator != nil && l.escalate[name] {
		sessionTok = l.escalator.SessionToken()
	}

	if !fresh {
		data, found, err := l.cache.Get(ctx, name)
		if err != nil {
			l.log(ctx).Warn("Section cache read failed", zap.String("section", name.String()), zap.Error(err))
		}
		if found {
			l.transition(name, epoch, PhaseReady, data, nil)
			l.log(ctx).Debug("Section served from cache", zap.String("section", name.String()))
			return data, nil
		}
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "section", "load",
		telemetry.WithAttribute("section", name.String()),
		telemetry.WithAttribute("fresh", fresh),
	)
	defer span.End()

	fetchCtx, cancel := l.fetchContext(ctx)
	defer cancel()

	start := l.now()
	var (
		data any
		err  error
	)
	telemetry.WithProfilingLabels(fetchCtx, map[string]string{telemetry.ProfilingLabelSection: name.String()}, func(ctx context.Context) {
		data, err = fetch(ctx)
	})
	if l.recorder != nil {
		l.recorder.RecordSectionLoad(ctx, name.String(), l.now().Sub(start), err)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		if l.transition(name, epoch, PhaseError, nil, err) {
			l.log(ctx).Warn("Section load failed", zap.String("section", name.String()), zap.Error(err))
			l.escalateFailure(ctx, name, sessionTok, err)
		}
		return nil, err
	}

	if !l.transition(name, epoch, PhaseReady, data, nil) {
		return data, nil
	}
	if err := l.cache.Set(ctx, name, data, l.cacheTTL); err != nil {
		l.log(ctx).Warn("Section cache write failed", zap.String("section", name.String()), zap.Error(err))
	}
	telemetry.SetOK(span)
	return data, nil
}

func (l *Loader) log(ctx context.Context) *zap.Logger {
	return logger.LOr(ctx, l.logger)
}

func (l *Loader) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// transition moves the section to target. Entering loading clears the
// previous error, entering ready replaces the data. Transitions from a fetch
// started before the last Reset are dropped.
func (l *Loader) transition(name session.SectionName, epoch uint64, target Phase, data any, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if epoch != l.epoch {
		return false
	}

	st, ok := l.states[name]
	if !ok {
		st = &State{Phase: PhaseIdle}
		l.states[name] = st
	}
	if !st.Phase.CanTransitionTo(target) {
		l.logger.Error("Illegal section phase transition",
			zap.String("section", name.String()),
			zap.String("from", st.Phase.String()),
			zap.String("to", target.String()))
		return false
	}

	st.Phase = target
	st.UpdatedAt = l.now()
	switch target {
	case PhaseLoading:
		st.Error = ""
	case PhaseReady:
		st.Data = data
	case PhaseError:
		st.Error = err.Error()
	}
	return true
}

func (l *Loader) escalateFailure(ctx context.Context, name session.SectionName, tok uint64, err error) {
	if l.escalator == nil || !l.escalate[name] {
		return
	}
	appErr := session.NewRetryableError(session.CodeSectionFailed, err.Error())
	if !l.escalator.Escalate(tok, name, "load", appErr) {
		l.log(ctx).Debug("Section failure not escalated", zap.String("section", name.String()))
	}
}
