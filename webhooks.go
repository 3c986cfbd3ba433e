package welcome

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const appTypeSecurity = "app_security"

// WebhookSignatureHeader carries the hex HMAC-SHA256 of a pushed body,
// keyed with the app's client secret.
const WebhookSignatureHeader = "X-Netatmo-Secret"

// AddWebhook asks Netatmo to push the user's security events to callbackURL.
func AddWebhook(ctx context.Context, s *Session, callbackURL string) error {
	if callbackURL == "" {
		return ErrEmptyCallbackURL
	}

	params := url.Values{}
	params.Set("url", callbackURL)
	params.Set("app_type", appTypeSecurity)

	_, err := s.callStatus(ctx, pathAddWebhook, params, "add webhook")
	return err
}

// DropWebhook stops event pushes for the user.
func DropWebhook(ctx context.Context, s *Session) error {
	params := url.Values{}
	params.Set("app_type", appTypeSecurity)

	_, err := s.callStatus(ctx, pathDropWebhook, params, "drop webhook")
	return err
}

// callStatus is call for endpoints that answer {"status":"ok"} with no body.
func (s *Session) callStatus(ctx context.Context, path string, params url.Values, resourceName string) (*envelope, error) {
	params, err := s.authParams(ctx, params)
	if err != nil {
		return nil, err
	}

	data, err := s.post(ctx, path, params)
	if err != nil {
		return nil, err
	}

	env, err := unmarshalResponse[envelope](data, resourceName)
	if err != nil {
		return nil, err
	}
	if env.Status != statusOK {
		return nil, statusError(env.Status, data)
	}
	return env, nil
}

// WebhookEvent is a security event pushed to a registered webhook.
type WebhookEvent struct {
	UserID      string          `json:"user_id"`
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	PushType    string          `json:"push_type"`
	HomeID      string          `json:"home_id"`
	HomeName    string          `json:"home_name"`
	CameraID    string          `json:"camera_id"`
	DeviceID    string          `json:"device_id"`
	Message     string          `json:"message"`
	SnapshotID  string          `json:"snapshot_id"`
	SnapshotKey string          `json:"snapshot_key"`
	Raw         json.RawMessage `json:"-"`
}

// Snapshot returns the picture reference of the event, if it has one.
func (e *WebhookEvent) Snapshot() (*Snapshot, bool) {
	if e.SnapshotID == "" || e.SnapshotKey == "" {
		return nil, false
	}
	return &Snapshot{ID: e.SnapshotID, Key: e.SnapshotKey}, true
}

// ValidateWebhookSignature verifies the HMAC-SHA256 signature of a pushed
// body. Uses constant-time comparison.
func ValidateWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || len(body) == 0 || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhookRequest reads and validates a webhook push. The signature is
// checked against secret, normally the app's client secret; an empty secret
// skips the check. Bodies over DefaultMaxResponseSize are rejected.
func ParseWebhookRequest(r *http.Request, secret string) (*WebhookEvent, error) {
	body, err := readLimited(r.Body, DefaultMaxResponseSize)
	if err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	if secret != "" {
		signature := r.Header.Get(WebhookSignatureHeader)
		if signature == "" {
			return nil, ErrMissingSignature
		}
		if !ValidateWebhookSignature(secret, body, signature) {
			return nil, ErrInvalidSignature
		}
	}

	event, err := unmarshalResponse[WebhookEvent](body, "webhook event")
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	event.Raw = body
	return event, nil
}
