package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// APIError is a non-2xx answer of the controller.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// UserMessage is the text shown to operators. Details stay in the logs.
func (e *APIError) UserMessage() string {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "The controller rejected the request. Check the configuration and try again."
	case http.StatusUnauthorized:
		return "The controller refused access."
	case http.StatusNotFound:
		return "The requested resource does not exist on the controller."
	case http.StatusInternalServerError:
		return "The controller failed to process the request."
	}
	return fmt.Sprintf("Unexpected controller response (status %d).", e.Status)
}

// UserMessage returns the operator facing text for any client error.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.UserMessage()
	case IsUnreachable(err):
		return "The device is unreachable."
	}
	return "Request to the controller failed."
}

// IsUnreachable reports whether err means the controller could not be reached
// at all, as opposed to answering with an error status.
func IsUnreachable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}
