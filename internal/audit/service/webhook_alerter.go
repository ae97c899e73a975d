package service

import (
	"context"

	auditDomain "github.com/gateproof/authcore/internal/audit/domain"
	apperrors "github.com/gateproof/authcore/internal/errors"
)

// WebhookClient posts JSON payloads to an external endpoint. Implemented by
// the resilient HTTP client.
type WebhookClient interface {
	PostJSON(ctx context.Context, url string, payload any) error
}

// WebhookAlerter delivers security alerts to a configured webhook URL.
type WebhookAlerter struct {
	client WebhookClient
	url    string
}

// NewWebhookAlerter creates a new WebhookAlerter.
func NewWebhookAlerter(client WebhookClient, url string) *WebhookAlerter {
	return &WebhookAlerter{client: client, url: url}
}

// SendAlert posts the alert payload to the webhook endpoint.
func (w *WebhookAlerter) SendAlert(ctx context.Context, alert auditDomain.Alert) error {
	if err := w.client.PostJSON(ctx, w.url, alert); err != nil {
		return apperrors.Wrap(err, "failed to post security alert")
	}
	return nil
}
