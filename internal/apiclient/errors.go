package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// RequestError is a backend response with status >= 400.
type RequestError struct {
	Message string
	Status  int
}

func (e *RequestError) Error() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a RequestError.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// errorBody is the subset of the backend's problem+json payload we read.
type errorBody struct {
	Message string `json:"message"`
	Title   string `json:"title"`
}

// newRequestError builds the uniform error: body message, else body title, else "API Error: <code>".
// Bodies that are not JSON get the full status line instead.
func newRequestError(resp *http.Response, body []byte) *RequestError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return &RequestError{Message: fmt.Sprintf("API Error: %s", statusLine(resp)), Status: resp.StatusCode}
	}
	switch {
	case eb.Message != "":
		return &RequestError{Message: eb.Message, Status: resp.StatusCode}
	case eb.Title != "":
		return &RequestError{Message: eb.Title, Status: resp.StatusCode}
	default:
		return &RequestError{Message: fmt.Sprintf("API Error: %d", resp.StatusCode), Status: resp.StatusCode}
	}
}

func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return fmt.Sprintf("%d %s", resp.StatusCode, text)
	}
	return fmt.Sprintf("%d", resp.StatusCode)
}
