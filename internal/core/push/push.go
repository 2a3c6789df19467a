// Package push is the fire-and-forget notification side-channel. Failures
// are reported to the caller only so they can be logged; nothing on the
// routing path depends on delivery.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service posts Expo-style push messages.
type Service struct {
	apiURL string
	client *http.Client
}

func NewService(apiURL string) *Service {
	return &Service{
		apiURL: apiURL,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type pushRequest struct {
	To    string                 `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Sound string                 `json:"sound"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Send delivers one notification to one device token.
func (s *Service) Send(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	payload := pushRequest{
		To:    token,
		Title: title,
		Body:  body,
		Sound: "default",
		Data:  data,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
