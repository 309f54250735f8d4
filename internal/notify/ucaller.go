// Package notify wraps the outbound messaging collaborators: the uCaller
// voice-call API used for phone confirmation codes and the push gateway the
// scheduler dispatches event notifications through.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// UCallerClient delivers confirmation codes by calling the user's phone.
// API reference: https://ucaller.ru/doc
type UCallerClient struct {
	apiKey    string
	serviceID string
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
}

// NewUCallerClient creates a uCaller API client.
func NewUCallerClient(apiKey, serviceID, baseURL string, logger *logrus.Logger) (*UCallerClient, error) {
	if apiKey == "" || serviceID == "" {
		return nil, fmt.Errorf("ucaller credentials are not configured")
	}
	return &UCallerClient{
		apiKey:    apiKey,
		serviceID: serviceID,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}, nil
}

// SendCode initiates a confirmation call carrying the code. The phone must
// already be normalized to 7XXXXXXXXXX; the API wants it as a number.
func (c *UCallerClient) SendCode(ctx context.Context, phone, code string) error {
	phoneNumber, err := strconv.ParseInt(phone, 10, 64)
	if err != nil {
		return fmt.Errorf("phone %q is not numeric: %w", phone, err)
	}

	body, err := json.Marshal(map[string]any{
		"phone": phoneNumber,
		"code":  code,
	})
	if err != nil {
		return fmt.Errorf("failed to encode initCall request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"initCall", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build initCall request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s.%s", c.apiKey, c.serviceID))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("initCall request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("initCall returned status %d: %s", resp.StatusCode, payload)
	}

	c.logger.Infof("Confirmation call initiated for %s", phone)
	return nil
}
