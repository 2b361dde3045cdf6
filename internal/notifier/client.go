// Package notifier is the scanner-side client of the relay's notify endpoint.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hsqsh/maisHack25/internal/dto"
)

type Client struct {
	baseURL    string
	session    string
	httpClient *http.Client
}

func NewClient(baseURL, session string) *Client {
	return &Client{
		baseURL:    baseURL,
		session:    session,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify tells the relay the target was found so companion devices get
// alerted. Throttled responses are not errors; the relay debounces per
// session on purpose.
func (c *Client) Notify(ctx context.Context, eventType string, payload map[string]interface{}) (*dto.NotifyResponse, error) {
	reqBody := dto.NotifyRequest{
		Session: c.session,
		Type:    eventType,
		Payload: payload,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/notify", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var notifyResp dto.NotifyResponse
	if err := json.Unmarshal(bodyBytes, &notifyResp); err != nil {
		return nil, fmt.Errorf("malformed notify response: %w", err)
	}
	return &notifyResp, nil
}
