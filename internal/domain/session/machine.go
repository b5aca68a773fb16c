package session

import (
	"fmt"
	"sync"
	"time"
)

// Transition describes one committed state change
type Transition struct {
	From LoadingState
	To   LoadingState
	At   time.Time
}

// Observer is notified after each committed transition, in commit order.
// Observers must not call transition methods on the same Machine.
type Observer func(Transition)

// Snapshot is a consistent read of the machine at one instant
type Snapshot struct {
	State           LoadingState
	History         []TransitionLogEntry
	IsLoading       bool
	IsError         bool
	IsReady         bool
	IsAuthenticated bool
}

// Machine holds the authoritative LoadingState of one application session.
// State and history are mutated only through the transition methods; each
// transition reads the old state, appends it to the history and adopts the new
// state inside one critical section, so concurrent callers never observe or
// record a stale previous state.
//
// The machine does not reject out-of-order transitions. A late completion from
// a cancelled operation will overwrite the state unless its caller checks for
// staleness first.
type Machine struct {
	mu      sync.RWMutex
	state   LoadingState
	history History
	now     func() time.Time

	notifyMu  sync.Mutex
	observers []Observer
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithClock overrides the time source used for history timestamps
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) {
		m.now = now
	}
}

// WithObserver registers a transition observer
func WithObserver(o Observer) MachineOption {
	return func(m *Machine) {
		m.observers = append(m.observers, o)
	}
}

// NewMachine creates a machine in the initializing state
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		state: Initializing{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartAuthenticating moves to authenticating. Callable from any state.
func (m *Machine) StartAuthenticating(hasCache bool) {
	m.transition(func(LoadingState) LoadingState {
		return Authenticating{HasCache: hasCache}
	})
}

// StartValidatingCache moves to validating-cache
func (m *Machine) StartValidatingCache() {
	m.transition(func(LoadingState) LoadingState {
		return ValidatingCache{}
	})
}

// StartLoadingProfile moves to loading-profile. An empty userID is a caller bug.
func (m *Machine) StartLoadingProfile(userID string) {
	if userID == "" {
		panic("session: StartLoadingProfile called with empty user id")
	}
	m.transition(func(LoadingState) LoadingState {
		return LoadingProfile{UserID: userID}
	})
}

// StartLoadingPermissions moves to loading-permissions
func (m *Machine) StartLoadingPermissions(userID string) {
	if userID == "" {
		panic("session: StartLoadingPermissions called with empty user id")
	}
	m.transition(func(LoadingState) LoadingState {
		return LoadingPermissions{UserID: userID}
	})
}

// StartLoadingSection moves to loading-section. An unknown section is a caller bug.
func (m *Machine) StartLoadingSection(section SectionName, operation string) {
	if !section.Valid() {
		panic(fmt.Sprintf("session: StartLoadingSection called with unknown section %q", section))
	}
	m.transition(func(LoadingState) LoadingState {
		return LoadingSection{Section: section, Operation: operation}
	})
}

// SetReady moves to ready. It is the only terminal-success transition.
func (m *Machine) SetReady(user UserInfo) {
	m.transition(func(LoadingState) LoadingState {
		return Ready{User: user}
	})
}

// SetError moves to error, recording the state active at call time as the
// previous state.
func (m *Machine) SetError(err AppError) {
	if err.Timestamp.IsZero() {
		err.Timestamp = m.now()
	}
	m.transition(func(current LoadingState) LoadingState {
		return Failed{Err: err, PreviousState: current.Status(), Prior: current}
	})
}

// SetUnauthenticated moves to unauthenticated. Callable from any state.
func (m *Machine) SetUnauthenticated() {
	m.transition(func(LoadingState) LoadingState {
		return Unauthenticated{}
	})
}

// Reset returns the machine to initializing and clears the history. It is
// used when the session ends.
func (m *Machine) Reset() {
	m.mu.Lock()
	from := m.state
	m.state = Initializing{}
	m.history.Clear()
	t := Transition{From: from, To: m.state, At: m.now()}
	m.notifyMu.Lock()
	m.mu.Unlock()
	m.notify(t)
}

// State returns the current state
func (m *Machine) State() LoadingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// History returns a copy of the transition log, oldest first
func (m *Machine) History() []TransitionLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.Entries()
}

// Snapshot returns state, history and derived flags read together
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:           m.state,
		History:         m.history.Entries(),
		IsLoading:       IsLoading(m.state),
		IsError:         IsError(m.state),
		IsReady:         IsReady(m.state),
		IsAuthenticated: IsAuthenticated(m.state),
	}
}

// IsLoading reports whether the current state is a loading state
func (m *Machine) IsLoading() bool { return IsLoading(m.State()) }

// IsError reports whether the current state is the error state
func (m *Machine) IsError() bool { return IsError(m.State()) }

// IsReady reports whether the current state is ready
func (m *Machine) IsReady() bool { return IsReady(m.State()) }

// IsAuthenticated reports whether a session is (being) established
func (m *Machine) IsAuthenticated() bool { return IsAuthenticated(m.State()) }

// transition commits next(current) and its history entry atomically. The
// notify lock is taken before the state lock is released so observers see
// transitions in commit order.
func (m *Machine) transition(next func(current LoadingState) LoadingState) {
	m.mu.Lock()
	from := m.state
	at := m.now()
	m.history.Append(TransitionLogEntry{Status: from.Status(), Timestamp: at})
	m.state = next(from)
	t := Transition{From: from, To: m.state, At: at}
	m.notifyMu.Lock()
	m.mu.Unlock()
	m.notify(t)
}

// notify runs observers and releases the notify lock
func (m *Machine) notify(t Transition) {
	defer m.notifyMu.Unlock()
	for _, o := range m.observers {
		o(t)
	}
}
