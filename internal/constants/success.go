package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
type APISuccess struct {
	Code   string
	Status int
}

var (
	SuccessLinkCreated = APISuccess{
		Code:   CodeLinkCreated,
		Status: http.StatusCreated,
	}
	SuccessLinkUpdated = APISuccess{
		Code:   CodeLinkUpdated,
		Status: http.StatusOK,
	}
	SuccessLinkDeleted = APISuccess{
		Code:   CodeLinkDeleted,
		Status: http.StatusOK,
	}
	SuccessLinkFound = APISuccess{
		Code:   CodeLinkFound,
		Status: http.StatusOK,
	}
	SuccessLinksListed = APISuccess{
		Code:   CodeLinksListed,
		Status: http.StatusOK,
	}
	SuccessStatsFound = APISuccess{
		Code:   CodeStatsFound,
		Status: http.StatusOK,
	}
	SuccessAnalyticsFound = APISuccess{
		Code:   CodeAnalyticsFound,
		Status: http.StatusOK,
	}
)
