// Package detect talks to the external detection collaborator: a service that,
// given an image and a target label, answers whether the target is visible.
package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Detection is a single labeled hit above the confidence threshold.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"conf"`
	Box        [4]float64 `json:"box"`
}

// Result is the outcome of one detection round trip.
type Result struct {
	Found      bool
	Detections []Detection
	Preview    []byte // optional annotated preview image, nil when absent
}

// Detector is the capability the capture loop depends on.
type Detector interface {
	Detect(ctx context.Context, image []byte, target string, threshold float64) (*Result, error)
	Health(ctx context.Context) error
}

// Client is the HTTP implementation of Detector.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a detection client with a bounded request timeout.
// A slow detector must never block the capture loop indefinitely.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type detectRequest struct {
	ImageB64  string  `json:"image_b64"`
	Target    string  `json:"target"`
	Threshold float64 `json:"threshold"`
}

type detectResponse struct {
	Found      bool        `json:"found"`
	Detections []Detection `json:"detections"`
	PreviewB64 string      `json:"preview_b64"`
}

type healthResponse struct {
	OK bool `json:"ok"`
}

// Detect submits one frame and reports whether the target was found.
func (c *Client) Detect(ctx context.Context, image []byte, target string, threshold float64) (*Result, error) {
	reqBody := detectRequest{
		ImageB64:  base64.StdEncoding.EncodeToString(image),
		Target:    target,
		Threshold: threshold,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/detect", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect service error (%d): %s", resp.StatusCode, string(bodyBytes))
	}

	var detectResp detectResponse
	if err := json.Unmarshal(bodyBytes, &detectResp); err != nil {
		return nil, fmt.Errorf("malformed detect response: %w", err)
	}

	result := &Result{
		Found:      detectResp.Found,
		Detections: detectResp.Detections,
	}
	if detectResp.PreviewB64 != "" {
		preview, err := base64.StdEncoding.DecodeString(detectResp.PreviewB64)
		if err != nil {
			return nil, fmt.Errorf("malformed preview image: %w", err)
		}
		result.Preview = preview
	}
	return result, nil
}

// Health probes the detector's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/health", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detect service unhealthy (%d)", resp.StatusCode)
	}

	var health healthResponse
	if err := json.Unmarshal(bodyBytes, &health); err != nil {
		return fmt.Errorf("malformed health response: %w", err)
	}
	if !health.OK {
		return fmt.Errorf("detect service reported not ok")
	}
	return nil
}
