package api

import (
	"net/http"
)

const version = "1.0.0"

// @Summary Service banner
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"message": "WhatsApp relay API",
		"version": version,
		"docs":    "/swagger/index.html",
		"status":  "running",
	})
}

// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"whatsapp_configured": a.Cfg.WhatsAppConfigured(),
	})
}

// @Summary Configuration status without secrets
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config [get]
func (a *API) ConfigStatus(w http.ResponseWriter, r *http.Request) {
	c := a.Cfg
	a.writeJSON(w, http.StatusOK, map[string]any{
		"phone_number_id_set":      c.WhatsApp.PhoneNumberID != "",
		"access_token_set":         c.WhatsApp.AccessToken != "",
		"webhook_verify_token_set": c.WhatsApp.WebhookVerifyToken != "",
		"app_secret_set":           c.WhatsApp.AppSecret != "",
		"api_token_set":            c.API.Token != "",
		"api_base_url":             c.WhatsApp.APIBaseURL,
		"host":                     c.Server.Host,
		"port":                     c.Server.Port,
		"debug":                    c.Server.Debug,
		"media_base_url_set":       c.Media.BaseURL != "",
		"rabbitmq_enabled":         c.RabbitMQ.URL != "",
	})
}
