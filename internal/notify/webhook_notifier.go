package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POSTs call events to an external URL (e.g. an SMS gateway
// that texts the patient when their number comes up). Queue-changed churn is
// deliberately not forwarded; the receiver only cares about calls.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{client: client, url: url}
}

func (n *WebhookNotifier) QueueChanged(context.Context, string) error {
	return nil
}

func (n *WebhookNotifier) NewCall(ctx context.Context, roomID string, ticketNumber int, patientName string) error {
	return n.post(ctx, map[string]any{
		"event":         "new_call",
		"room_id":       roomID,
		"ticket_number": ticketNumber,
		"patient_name":  patientName,
		"timestamp":     time.Now().UTC(),
	})
}

func (n *WebhookNotifier) PanelCall(ctx context.Context, roomID string, ticketNumber int) error {
	return n.post(ctx, map[string]any{
		"event":         "panel_call",
		"room_id":       roomID,
		"ticket_number": ticketNumber,
		"timestamp":     time.Now().UTC(),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, body map[string]any) error {
	resp, err := n.client.R().SetContext(ctx).SetBody(body).Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
