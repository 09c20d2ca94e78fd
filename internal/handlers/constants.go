package handlers

const (
	RequestIDHeader = "X-Request-Id"

	ErrInvalidJSON         = "Invalid JSON body"
	ErrNoProfile           = "No profile stored on this device"
	ErrChildNotFound       = "Child profile not found"
	ErrDuplicateChild      = "Child profile already exists"
	ErrInvalidToken        = "Invalid session token"
	ErrTokenExpired        = "Session token has expired"
	ErrSessionChanged      = "Session changed while syncing"
	ErrRemoteNotFound      = "No profile found for this session"
	ErrRemoteUnavailable   = "Profile service unavailable"
	ErrTooManyRequests     = "Too many requests, try again later"
	ErrInternalServerError = "Internal server error"
)
