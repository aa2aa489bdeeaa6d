package constants

// Context keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyTask    = "task"
	ContextKeyProject = "project"
)

// Authentication
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Dispatch
const (
	// DefaultDispatchWorkers bounds concurrent per-recipient fanout.
	DefaultDispatchWorkers = 8
)

// Channel tokens
const (
	// ChannelTokenTTLSeconds is the lifetime of a websocket auth token.
	// Tokens are minted right before the client connects, so they can be short.
	ChannelTokenTTLSeconds = 60
)
