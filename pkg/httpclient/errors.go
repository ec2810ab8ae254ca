package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/zayana/storefront/pkg/errors"
)

// StatusError is a non-2xx reply whose body could not be mapped further.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// upstreamError matches both our own error envelope and the Graph API one,
// whose code is numeric.
type upstreamError struct {
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
	} `json:"error"`
}

// ParseResponseError drains and closes resp and turns it into an error.
// Call it only for non-2xx replies.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		code := strings.Trim(string(parsed.Error.Code), `"`)
		if code == "" {
			code = parsed.Error.Type
		}
		return mapStatus(resp.StatusCode, code, parsed.Error.Message, upstream)
	}
	return mapStatus(resp.StatusCode, "", strings.TrimSpace(string(body)), upstream)
}

func mapStatus(status int, code, message, upstream string) error {
	msg := fmt.Sprintf("%s: %s", upstream, message)
	if code != "" {
		msg = fmt.Sprintf("%s: %s (%s)", upstream, message, code)
	}

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(msg)
	default:
		return &StatusError{Status: status, Body: msg}
	}
}
