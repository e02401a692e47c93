package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is a failure reported by the account service.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("account service: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("account service: %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is the service rejecting the caller's
// credentials.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	// Single-object reads of a missing row answer 406 with PGRST116.
	return e.Status == http.StatusNotFound || e.Code == "PGRST116"
}

// errorBody covers the shapes used by the auth and REST endpoints.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(data, &body) != nil {
		return e
	}

	switch code := body.Code.(type) {
	case string:
		e.Code = code
	}
	if body.ErrorCode != "" {
		e.Code = body.ErrorCode
	}
	for _, msg := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
		if msg != "" {
			e.Message = msg
			break
		}
	}
	return e
}
