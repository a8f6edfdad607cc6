package factory

import (
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/sms"
)

// NewSender returns the outbound SMS sender. Without Twilio credentials
// sends are logged instead of delivered, which keeps local development
// off the paid API.
func NewSender(cfg *config.Config, log zerolog.Logger) sms.Sender {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		log.Warn().Msg("twilio not configured; using log-only sender")
		return &sms.LogOnly{Log: log}
	}
	return sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
}
