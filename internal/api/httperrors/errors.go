package httperrors

import (
	"fmt"
	"net/http"
	"strings"
)

// PublicHTTPError is the JSON body of every error response.
type PublicHTTPError struct {
	Code   int    `json:"status"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

type HTTPError struct {
	PublicHTTPError
	Internal error `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		PublicHTTPError: PublicHTTPError{
			Code:  code,
			Type:  errorType,
			Title: title,
		},
	}
}

func NewHTTPErrorWithDetail(code int, errorType string, title string, detail string) *HTTPError {
	e := NewHTTPError(code, errorType, title)
	e.Detail = detail
	return e
}

// Wrap returns a copy of e carrying err as internal cause.
func (e *HTTPError) Wrap(err error) *HTTPError {
	c := *e
	c.Internal = err
	return &c
}

func (e *HTTPError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "HTTPError %d (%s): %s", e.Code, e.Type, e.Title)

	if len(e.Detail) > 0 {
		fmt.Fprintf(&b, " - %s", e.Detail)
	}
	if e.Internal != nil {
		fmt.Fprintf(&b, ", %v", e.Internal)
	}

	return b.String()
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// NewFromEcho converts errors raised by echo itself (404, 405, bind errors).
func NewFromEcho(code int, message interface{}) *HTTPError {
	title := http.StatusText(code)
	if msg, ok := message.(string); ok && msg != "" {
		title = msg
	}

	return NewHTTPError(code, HTTPErrorTypeGeneric, title)
}
