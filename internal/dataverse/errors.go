package dataverse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrNotFound matches every lookup that returned no record.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a lookup with no match. errors.Is(err, ErrNotFound)
// is true for it.
type NotFoundError struct {
	Entity string // "Publisher", "Solution"
	Key    string // "unique name", "id"
	Value  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s '%s' not found", e.Entity, e.Key, e.Value)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	StatusCode int
	Code       string // OData error code, e.g. 0x80040217
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Dataverse API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("Dataverse API error %d: %s", e.StatusCode, e.Message)
}

// TransportError is a request that got no HTTP response at all, such as a
// refused connection or a TLS failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "API request failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// odataError is the error body shape of the Web API.
type odataError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const maxErrorBody = 512

// parseAPIError builds an APIError from a failed response body. Bodies that
// are not OData errors are truncated into the message.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var oe odataError
	if err := json.Unmarshal(body, &oe); err == nil && oe.Error.Message != "" {
		apiErr.Code = oe.Error.Code
		apiErr.Message = oe.Error.Message
		return apiErr
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	apiErr.Message = msg
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
