// Package sms provides the outbound SMS capability. The production
// implementation talks to Twilio's REST API; dev environments without
// credentials get a logging no-op sender.
package sms

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/model"
)

// Sender delivers one SMS and returns the provider message ID.
// Failures are retried by the caller, not here.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Twilio sends through the Twilio Messages API.
type Twilio struct {
	client     *resty.Client
	accountSID string
	from       string
}

// NewTwilio builds a Twilio-backed sender. `from` is the provisioned
// E.164 number replies come back to.
func NewTwilio(accountSID, authToken, from string) *Twilio {
	client := resty.New().
		SetBaseURL("https://api.twilio.com/2010-04-01").
		SetBasicAuth(accountSID, authToken)
	return &Twilio{client: client, accountSID: accountSID, from: from}
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"` // error detail on non-2xx
}

func (t *Twilio) Send(ctx context.Context, to, body string) (string, error) {
	var out twilioMessageResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": t.from,
			"Body": body,
		}).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/Accounts/%s/Messages.json", t.accountSID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSendFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: twilio status %d: %s", model.ErrSendFailed, resp.StatusCode(), out.Message)
	}
	return out.SID, nil
}

// LogOnly records what would have been sent. Used when Twilio is not
// configured.
type LogOnly struct {
	Log zerolog.Logger
}

func (l *LogOnly) Send(_ context.Context, to, body string) (string, error) {
	sid := "local-" + uuid.New().String()
	l.Log.Info().Str("to", to).Str("body", body).Str("sid", sid).Msg("sms send skipped (no provider configured)")
	return sid, nil
}
