package constants

// Error codes used in API responses.
// These are the machine-readable codes returned in the "error" field.
const (
	// Common error codes
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeRateLimited    = "RATE_LIMITED"

	// Resolution codes
	CodeLinkNotFound     = "LINK_NOT_FOUND"
	CodeLinkExpired      = "LINK_EXPIRED"
	CodePasswordRequired = "PASSWORD_REQUIRED"

	// Management codes
	CodeInvalidURL    = "INVALID_URL"
	CodeInvalidSlug   = "INVALID_SLUG"
	CodeSlugTaken     = "SLUG_TAKEN"
	CodeOwnerRequired = "OWNER_REQUIRED"

	// Success codes
	CodeLinkCreated    = "LINK_CREATED"
	CodeLinkUpdated    = "LINK_UPDATED"
	CodeLinkDeleted    = "LINK_DELETED"
	CodeLinkFound      = "LINK_FOUND"
	CodeLinksListed    = "LINKS_LISTED"
	CodeStatsFound     = "STATS_FOUND"
	CodeAnalyticsFound = "ANALYTICS_FOUND"
)
