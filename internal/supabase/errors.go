package supabase

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// ErrSessionMissing is returned by calls that need a stored session.
var ErrSessionMissing = errors.New("auth session missing")

// AuthError is an error reported by the provider. Message is verbatim.
type AuthError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// IsAuthError reports whether err is a provider-reported error.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// errorBody covers both the current and legacy provider error shapes.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeAuthError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	authErr := &AuthError{Status: resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		authErr.Code = firstNonEmpty(body.ErrorCode, body.Error)
		authErr.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error)
	}

	if authErr.Message == "" {
		authErr.Message = strings.TrimSpace(string(raw))
	}
	if authErr.Message == "" {
		authErr.Message = http.StatusText(resp.StatusCode)
	}

	return authErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
