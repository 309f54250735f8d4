package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pawtrack/pawtrack/internal/models"
)

// PushClient delivers event notifications to the mobile push gateway. The
// gateway resolves the user's devices; this client only states which event
// fired and for which date.
type PushClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logrus.Logger
}

// NewPushClient creates a push gateway client.
func NewPushClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *PushClient {
	return &PushClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type pushRequest struct {
	UserID         string `json:"user_id"`
	EventID        string `json:"event_id"`
	PetID          int64  `json:"pet_id"`
	Title          string `json:"title"`
	OccurrenceDate string `json:"occurrence_date"`
}

// Send pushes a notification for the event's occurrence on the given date.
func (c *PushClient) Send(ctx context.Context, event *models.Event, date time.Time) error {
	body, err := json.Marshal(pushRequest{
		UserID:         event.UserID.String(),
		EventID:        event.ID.String(),
		PetID:          event.PetID,
		Title:          event.Title,
		OccurrenceDate: date.Format("2006-01-02"),
	})
	if err != nil {
		return fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, payload)
	}

	return nil
}
