package session

// Status is the discriminant of a LoadingState
type Status string

const (
	StatusInitializing       Status = "initializing"
	StatusAuthenticating     Status = "authenticating"
	StatusValidatingCache    Status = "validating-cache"
	StatusLoadingProfile     Status = "loading-profile"
	StatusLoadingPermissions Status = "loading-permissions"
	StatusLoadingSection     Status = "loading-section"
	StatusReady              Status = "ready"
	StatusError              Status = "error"
	StatusUnauthenticated    Status = "unauthenticated"
)

// String returns the status tag
func (s Status) String() string {
	return string(s)
}

// IsBootstrap reports whether the status belongs to the bootstrap path
// (initializing through loading-permissions).
func (s Status) IsBootstrap() bool {
	switch s {
	case StatusInitializing, StatusAuthenticating, StatusValidatingCache,
		StatusLoadingProfile, StatusLoadingPermissions:
		return true
	default:
		return false
	}
}

// LoadingState is the sealed set of states the session machine can be in.
// Only the variants declared in this package implement it.
type LoadingState interface {
	Status() Status
	loadingState()
}

// UserInfo is the authenticated user as seen by the UI layers
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// Initializing is the initial state
type Initializing struct{}

// Authenticating means the auth check is in flight
type Authenticating struct {
	HasCache bool
}

// ValidatingCache means a cached session is being revalidated
type ValidatingCache struct{}

// LoadingProfile means the user's profile record is being fetched
type LoadingProfile struct {
	UserID string
}

// LoadingPermissions means role and capability data is being fetched
type LoadingPermissions struct {
	UserID string
}

// LoadingSection means a named section is loading
type LoadingSection struct {
	Section   SectionName
	Operation string
}

// Ready is the steady state
type Ready struct {
	User UserInfo
}

// Failed is the error state. PreviousState is the tag of the state that was
// active when the error was raised; Prior is that state itself, kept so a retry
// can re-run the same step without re-deriving its context.
type Failed struct {
	Err           AppError
	PreviousState Status
	Prior         LoadingState
}

// Unauthenticated means no session exists
type Unauthenticated struct{}

func (Initializing) Status() Status       { return StatusInitializing }
func (Authenticating) Status() Status     { return StatusAuthenticating }
func (ValidatingCache) Status() Status    { return StatusValidatingCache }
func (LoadingProfile) Status() Status     { return StatusLoadingProfile }
func (LoadingPermissions) Status() Status { return StatusLoadingPermissions }
func (LoadingSection) Status() Status     { return StatusLoadingSection }
func (Ready) Status() Status              { return StatusReady }
func (Failed) Status() Status             { return StatusError }
func (Unauthenticated) Status() Status    { return StatusUnauthenticated }

func (Initializing) loadingState()       {}
func (Authenticating) loadingState()     {}
func (ValidatingCache) loadingState()    {}
func (LoadingProfile) loadingState()     {}
func (LoadingPermissions) loadingState() {}
func (LoadingSection) loadingState()     {}
func (Ready) loadingState()              {}
func (Failed) loadingState()             {}
func (Unauthenticated) loadingState()    {}

// IsLoading is true for every state except ready, unauthenticated and error
func IsLoading(s LoadingState) bool {
	switch s.(type) {
	case Ready, Unauthenticated, Failed:
		return false
	default:
		return true
	}
}

// IsError is true only for the error state
func IsError(s LoadingState) bool {
	_, ok := s.(Failed)
	return ok
}

// IsReady is true only for the ready state
func IsReady(s LoadingState) bool {
	_, ok := s.(Ready)
	return ok
}

// IsAuthenticated is false only for unauthenticated and initializing
func IsAuthenticated(s LoadingState) bool {
	switch s.(type) {
	case Unauthenticated, Initializing:
		return false
	default:
		return true
	}
}
