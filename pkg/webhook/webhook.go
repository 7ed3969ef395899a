package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const signatureHeader = "x-keeway-signature"

// Sender delivers webhook notifications to tenant backends. Every payload is
// signed with the app's secret key so receivers can authenticate the origin.
type Sender struct {
	client *resty.Client
}

func NewSender(client *resty.Client) *Sender {
	return &Sender{client: client}
}

// Sign computes the hex HMAC-SHA512 of the payload under the app secret.
func Sign(secretKey string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Notify posts the event to the app's webhook URL. A non-2xx response is an
// error; the caller decides whether delivery failures matter.
func (s *Sender) Notify(ctx context.Context, webhookURL, secretKey string, event interface{}) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "webhook marshal")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(signatureHeader, Sign(secretKey, payload)).
		SetBody(payload).
		Post(webhookURL)
	if err != nil {
		return errors.Wrap(err, "webhook delivery")
	}
	if resp.IsError() {
		return errors.Errorf("webhook delivery: %s responded %s", webhookURL, resp.Status())
	}

	logrus.WithField("url", webhookURL).Debug("webhook delivered")
	return nil
}
