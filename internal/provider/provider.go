package provider

import (
	"context"
	"encoding/json"

	"github.com/notifyhub/request-queue/internal/domain"
)

// SendRequest is the JSON body posted to the remote API.
type SendRequest struct {
	ID      string          `json:"id"`
	Tag     string          `json:"tag"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendResponse maps the remote API's acknowledgement body.
type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Provider abstracts delivery of a queued request to the remote API.
// Mocking this interface in tests gives full control over provider behaviour
// without making real HTTP calls.
//
// Errors wrapping domain.ErrSessionRequired ask the caller to run a
// registration first; errors wrapping domain.ErrPermanent will never succeed
// on retry. Anything else is transient.
type Provider interface {
	Send(ctx context.Context, item domain.Item) (*SendResponse, error)
}
