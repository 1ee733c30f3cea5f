package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned for every 401 and for requests made with an
// expired session.
var ErrUnauthorized = errors.New("drive: unauthorized")

// APIError is a non-2xx, non-401 answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// errorBody covers the shapes the backend and its proxies use for errors.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var body errorBody
	if json.Unmarshal(data, &body) != nil {
		return apiErr
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		apiErr.Message = msg
	} else if msg = strings.TrimSpace(body.Error); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}
