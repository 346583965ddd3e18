package constants

// Error messages used in API responses.
// These are the human-readable messages returned in the "message" field.
const (
	// Common messages
	MsgInvalidRequestBody = "Invalid request body"
	MsgInternalError      = "An internal error occurred"
	MsgUnauthorized       = "Unauthorized"
	MsgRateLimited        = "Too many requests, slow down"

	// Resolution messages
	MsgLinkNotFound     = "Link not found"
	MsgLinkExpired      = "This link has expired"
	MsgPasswordRequired = "Password required"

	// Management messages
	MsgInvalidURL    = "Invalid URL (must be http or https)"
	MsgInvalidSlug   = "Invalid slug (3-64 letters, digits, '-' or '_')"
	MsgSlugTaken     = "Custom slug already exists"
	MsgOwnerRequired = "Missing X-User-Id header"
)
