package dto

import "time"

// LoginRequest carries the access token issued by the identity provider
type LoginRequest struct {
	Token string `json:"token" binding:"required,min=20"`
}

// UserResponse is the signed-in user
type UserResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

// FriendlyError is a session error in user-facing form
type FriendlyError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	CanRetry  bool      `json:"can_retry"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStateResponse is the current session state. The state that
// preceded an error is never exposed.
type SessionStateResponse struct {
	Status          string         `json:"status"`
	User            *UserResponse  `json:"user,omitempty"`
	UserID          string         `json:"user_id,omitempty"`
	Section         string         `json:"section,omitempty"`
	Error           *FriendlyError `json:"error,omitempty"`
	IsLoading       bool           `json:"is_loading"`
	IsError         bool           `json:"is_error"`
	IsReady         bool           `json:"is_ready"`
	IsAuthenticated bool           `json:"is_authenticated"`
}

// SectionRequest binds the :section path parameter
type SectionRequest struct {
	Section string `uri:"section" binding:"required,section"`
}

// SectionViewResponse is the rendered state of a gated section
type SectionViewResponse struct {
	Kind     string `json:"kind"`
	Section  string `json:"section"`
	Title    string `json:"title"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
	CanRetry bool   `json:"can_retry"`
}
