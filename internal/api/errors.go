package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gigpig-app/gigchat/internal/server"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewForbiddenError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusForbidden,
		Message:    lower(http.StatusText(http.StatusForbidden)),
	}
}

// NewRefusalError maps a room-resolution failure onto the status a
// refused connection reports before the upgrade. Malformed parameters
// are the caller's fault, missing referents are not found, anything
// else is a server error.
func NewRefusalError(err error) *ApiError {
	switch {
	case errors.Is(err, server.ErrUnknownKind),
		errors.Is(err, server.ErrMissingCounterpart),
		errors.Is(err, server.ErrMissingGig):
		return NewBadRequestError()
	case errors.Is(err, server.ErrAccountNotFound),
		errors.Is(err, server.ErrGigNotFound),
		errors.Is(err, server.ErrRoomNotFound):
		return NewNotFoundError()
	default:
		return NewInternalServerError(err)
	}
}
