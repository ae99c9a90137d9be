package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxErrorBody caps how much of an error response is kept in APIError.Message.
const maxErrorBody = 512

// GetJSON performs a GET request and decodes a 2xx JSON body into v.
// Non-2xx responses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// responseError builds an APIError from a failed response, using the
// body's "error" or "message" field when present.
func responseError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := resp.Status
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		}
	} else if text := strings.TrimSpace(string(body)); text != "" {
		message = text
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    message,
	}
}
