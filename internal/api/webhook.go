package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/api/respond"
	"github.com/carebridge/carebridge/internal/model"
	"github.com/carebridge/carebridge/internal/reconcile"
)

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// WebhookHandler receives inbound SMS callbacks from Twilio. Delivery is
// at-least-once, so the handler stays idempotent: status codes steer the
// provider's retry behavior, the reconciler suppresses the duplicates
// retries produce.
type WebhookHandler struct {
	rec *reconcile.Reconciler
	log zerolog.Logger
}

func NewWebhookHandler(rec *reconcile.Reconciler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{rec: rec, log: log}
}

// HandleInboundSMS POST /sms-webhook
//
// Twilio posts application/x-www-form-urlencoded with From, Body,
// MessageSid, and MediaUrl0 when a photo is attached.
func (h *WebhookHandler) HandleInboundSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.WriteBadRequest(w, "malformed form payload")
		return
	}

	in := reconcile.Inbound{
		From:        r.PostFormValue("From"),
		Body:        r.PostFormValue("Body"),
		MediaURL:    r.PostFormValue("MediaUrl0"),
		ProviderSID: r.PostFormValue("MessageSid"),
		ReceivedAt:  time.Now().UTC(),
	}

	outcome, err := h.rec.Process(r.Context(), in)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrMalformedInboundEvent):
		// A retry cannot fix a payload with no usable sender.
		respond.WriteBadRequest(w, "missing or invalid sender number")
		return
	default:
		// Store failure: 500 makes the provider redeliver, and the
		// dedup ledger plus the reconciler's write ordering keep the
		// redelivery safe.
		h.log.Error().Stack().Err(err).Str("sid", in.ProviderSID).Msg("inbound sms processing failed")
		respond.WriteInternalError(w, "processing failed")
		return
	}

	// Unknown senders are acknowledged too: redelivery cannot attribute
	// them any better.
	if outcome.UnknownSender {
		h.log.Info().Str("from", in.From).Msg("inbound sms from unknown sender")
	} else {
		h.log.Info().
			Str("transition", string(outcome.Transition)).
			Str("sid", in.ProviderSID).
			Msg("inbound sms reconciled")
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
