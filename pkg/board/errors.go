package board

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrorUnauthorized    = "unauthorized"
	ErrorNotFound        = "not_found"
	ErrorRateLimited     = "rate_limited"
	ErrorUnavailable     = "unavailable"
	ErrorInvalidResponse = "invalid_response"
	ErrorInvalidRequest  = "invalid_request"
)

// Error represents a stable, categorized task-board failure.
type Error struct {
	Category string
	Detail   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// NewError creates a categorized board error.
func NewError(category string, detail string) error {
	return &Error{Category: category, Detail: detail}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	// Anything uncategorized failed before the API answered.
	return ErrorUnavailable
}

// IsCategory reports whether err carries category.
func IsCategory(err error, category string) bool {
	return err != nil && CategoryFromError(err) == category
}

// errorFromStatus maps an API status code to a categorized error.
func errorFromStatus(status int, body string) error {
	detail := http.StatusText(status)
	if body != "" {
		detail = body
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrorUnauthorized, detail)
	case status == http.StatusNotFound:
		return NewError(ErrorNotFound, detail)
	case status == http.StatusBadRequest && body == "invalid id":
		return NewError(ErrorNotFound, detail)
	case status == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, detail)
	case status >= http.StatusInternalServerError:
		return NewError(ErrorUnavailable, detail)
	default:
		return NewError(ErrorInvalidRequest, detail)
	}
}
