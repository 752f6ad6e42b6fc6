package api

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"wa-relay/internal/auth"
	"wa-relay/internal/metrics"
)

// @Summary Verify webhook subscription
// @Tags Webhooks
// @Produce plain
// @Param hub.mode query string true "Must be subscribe"
// @Param hub.challenge query string true "Challenge to echo"
// @Param hub.verify_token query string true "Shared verify token"
// @Success 200 {string} string "the challenge"
// @Failure 403 {object} ErrorResponse
// @Router /webhook [get]
func (a *API) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	want := a.Cfg.WhatsApp.WebhookVerifyToken
	match := want != "" && subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1
	if mode == "subscribe" && match {
		a.Log.Info("webhook verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, challenge)
		return
	}

	a.Log.WithFields(logrus.Fields{"mode": mode, "token_match": match}).Warn("webhook verification failed")
	a.writeError(w, http.StatusForbidden, "forbidden", "webhook verification failed")
}

// @Summary Receive webhook notification
// @Description Always acknowledges with 200 once the body is read, so the provider does not redeliver.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Hub-Signature-256 header string false "HMAC of the body, checked when an app secret is configured"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /webhook [post]
func (a *API) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, auth.MaxWebhookBody))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unreadable").Inc()
		a.writeError(w, http.StatusBadRequest, "bad_request", "could not read body")
		return
	}

	res := a.Inbox.HandleWebhook(body)
	if res.OK() {
		metrics.WebhookEvents.WithLabelValues("message").Inc()
	} else {
		metrics.WebhookEvents.WithLabelValues(string(res.Reason)).Inc()
	}

	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Webhook configuration status
// @Tags Webhooks
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /webhook/status [get]
func (a *API) WebhookStatus(w http.ResponseWriter, r *http.Request) {
	wa := a.Cfg.WhatsApp
	a.writeJSON(w, http.StatusOK, map[string]any{
		"webhook_configured": wa.WebhookVerifyToken != "",
		"phone_number_id":    wa.PhoneNumberID,
		"api_base_url":       wa.APIBaseURL,
		"verify_token_set":   wa.WebhookVerifyToken != "",
		"signature_required": wa.AppSecret != "",
	})
}
