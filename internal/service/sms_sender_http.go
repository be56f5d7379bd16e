package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSMSSender posts codes to an SMS gateway over JSON. The gateway contract
// is a single POST endpoint accepting {to, body} with a bearer token.
type HTTPSMSSender struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Sender     string
}

func NewHTTPSMSSender(endpoint string, apiKey string, sender string) *HTTPSMSSender {
	if strings.TrimSpace(endpoint) == "" {
		return &HTTPSMSSender{}
	}
	return &HTTPSMSSender{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Sender:     sender,
	}
}

func (s *HTTPSMSSender) SendCode(ctx context.Context, phoneNumber string, code string) error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return errors.New("sms sender not configured")
	}
	if s.HTTPClient == nil {
		s.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	payload := map[string]any{
		"to":   phoneNumber,
		"body": fmt.Sprintf("Your verification code is %s", code),
	}
	if s.Sender != "" {
		payload["from"] = s.Sender
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if s.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.HTTPClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return fmt.Errorf("sms gateway responded with status %d", response.StatusCode)
	}
	return nil
}
