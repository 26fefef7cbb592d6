package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

// remoteError covers the two error body shapes we meet: the store's own
// {"error":{"code","message"}} envelope and Discord's {"code":n,"message":"..."}.
type remoteError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (r remoteError) message() string {
	if r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return r.Message
}

// ParseResponseError drains and closes a non-2xx response and maps it to an
// AppError. remote names the upstream in messages.
func ParseResponseError(resp *http.Response, remote string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", remote, resp.StatusCode, err)
	}

	msg := string(body)
	var parsed remoteError
	if json.Unmarshal(body, &parsed) == nil && parsed.message() != "" {
		msg = parsed.message()
	}
	return mapStatus(resp.StatusCode, remote, msg)
}

func mapStatus(status int, remote, message string) error {
	qualified := fmt.Sprintf("%s: %s", remote, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(remote, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusTooManyRequests, status >= 500:
		return apperrors.Unavailable(qualified, fmt.Errorf("status %d", status))
	default:
		return &apperrors.AppError{Code: "UPSTREAM_ERROR", Message: qualified, Status: http.StatusBadGateway}
	}
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
