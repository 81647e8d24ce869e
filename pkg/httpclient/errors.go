package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ResponseError represents a non-2xx response from a downstream service.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("downstream error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("downstream error %d: %s", e.StatusCode, e.Message)
}

// ParseResponseError reads an error payload from a non-2xx response. It
// understands the shared response envelope; bodies that are not JSON are
// returned verbatim as the message.
func ParseResponseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &ResponseError{StatusCode: resp.StatusCode, Message: "unreadable response body"}
	}

	var envelope struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Error != nil {
		return &ResponseError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	return &ResponseError{StatusCode: resp.StatusCode, Message: string(body)}
}
