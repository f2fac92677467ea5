package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrEmptyToken        = errors.New("empty token")
	ErrBookUnavailable   = errors.New("book is not available for borrowing")
	ErrUnknownUser       = errors.New("unknown user")
	ErrDueDateInPast     = errors.New("due date must not be in the past")
	ErrNoSuchItem        = errors.New("no such item in the loaded list")
	ErrUnsupported       = errors.New("operation not supported for this resource")
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindValidation
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network_unreachable"
	default:
		return "unknown"
	}
}

// APIError is the single error type the HTTP adapter returns for a failed call.
type APIError struct {
	Kind    ErrorKind
	Status  int    // 0 when no response arrived
	Message string // server supplied, may be empty
	Method  string
	Path    string
	Err     error // transport cause for KindNetwork
}

func (e *APIError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s %s: network unreachable: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the administrator.
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case KindNotFound:
		return "API endpoint not found. Please check the API URL."
	case KindUnauthorized:
		return "Unauthorized. Please log in again."
	case KindForbidden:
		return "Access forbidden. Please check your permissions."
	case KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return "Validation error. Please check your input."
	case KindNetwork:
		return "No response received from server. Please check your connection."
	default:
		msg := e.Message
		if msg == "" {
			msg = http.StatusText(e.Status)
		}
		return fmt.Sprintf("Error: %d - %s", e.Status, msg)
	}
}

// KindOf returns the classification of err, KindUnknown for anything that is
// not an *APIError.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// UserMessage renders any error for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindUnknown
	}
}

// errorBody covers the envelopes seen from Laravel-style APIs
// ({"message", "errors"}), {"status","error"} envelopes and RFC 7807 problems.
type errorBody struct {
	Message string              `json:"message"`
	Error   json.RawMessage     `json:"error"`
	Errors  map[string][]string `json:"errors"`
	Title   string              `json:"title"`
	Detail  string              `json:"detail"`
}

func serverMessage(body []byte) string {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return strings.TrimSpace(string(body))
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.Detail != "" {
		return eb.Detail
	}
	if len(eb.Error) > 0 {
		var s string
		if json.Unmarshal(eb.Error, &s) == nil && s != "" {
			return s
		}
		var coded struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(eb.Error, &coded) == nil && coded.Message != "" {
			return coded.Message
		}
	}
	if len(eb.Errors) > 0 {
		fields := make([]string, 0, len(eb.Errors))
		for f := range eb.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		var msgs []string
		for _, f := range fields {
			msgs = append(msgs, eb.Errors[f]...)
		}
		return strings.Join(msgs, " ")
	}
	return eb.Title
}
