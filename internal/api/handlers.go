package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wa-relay/internal/model"
	"wa-relay/internal/storage"
)

const defaultPageSize = 50

// SendMessageRequest is the JSON body of POST /api/messages/send.
type SendMessageRequest struct {
	To           string `json:"to"`
	MessageType  string `json:"message_type"`
	Text         string `json:"text,omitempty"`
	MediaURL     string `json:"media_url,omitempty"`
	MediaCaption string `json:"media_caption,omitempty"`
}

// @Summary Send a message
// @Tags Messages
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body SendMessageRequest true "Message to send"
// @Success 200 {object} model.Message
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/messages/send [post]
func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_request", "bad request body")
		return
	}

	t, err := model.ParseMessageType(body.MessageType)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "validation_error", "unsupported message type")
		return
	}

	var msg *model.Message
	if t == model.TypeText {
		msg, err = a.Sender.SendText(r.Context(), body.To, body.Text)
	} else {
		msg, err = a.Sender.SendMedia(r.Context(), body.To, string(t), body.MediaURL, body.MediaCaption)
	}
	if err != nil {
		a.writeSendError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, msg)
}

// @Summary Send a text message (form)
// @Tags Messages
// @Security ApiKeyAuth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param to formData string true "Recipient phone number, country code, no +"
// @Param text formData string true "Message body"
// @Success 200 {object} model.Message
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/messages/send-text [post]
func (a *API) SendText(w http.ResponseWriter, r *http.Request) {
	msg, err := a.Sender.SendText(r.Context(), r.FormValue("to"), r.FormValue("text"))
	if err != nil {
		a.writeSendError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, msg)
}

// @Summary Send a media message (form)
// @Tags Messages
// @Security ApiKeyAuth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param to formData string true "Recipient phone number, country code, no +"
// @Param media_type formData string true "audio, document, image or video"
// @Param media_url formData string true "Public URL of the media"
// @Param caption formData string false "Caption, ignored for audio"
// @Success 200 {object} model.Message
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/messages/send-media [post]
func (a *API) SendMedia(w http.ResponseWriter, r *http.Request) {
	msg, err := a.Sender.SendMedia(r.Context(),
		r.FormValue("to"), r.FormValue("media_type"), r.FormValue("media_url"), r.FormValue("caption"))
	if err != nil {
		a.writeSendError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, msg)
}

// @Summary List received messages
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Messages to skip" default(0)
// @Success 200 {object} model.Page
// @Failure 400 {object} ErrorResponse
// @Router /api/messages [get]
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "validation_error", "limit must be an integer")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "validation_error", "offset must be an integer")
		return
	}

	a.writeJSON(w, http.StatusOK, a.Store.List(limit, offset))
}

// @Summary Get a received message
// @Tags Messages
// @Security ApiKeyAuth
// @Produce json
// @Param id path string true "Provider message id"
// @Success 200 {object} model.Message
// @Failure 404 {object} ErrorResponse
// @Router /api/messages/{id} [get]
func (a *API) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, ok := a.Store.Get(id)
	if !ok {
		a.writeError(w, http.StatusNotFound, "not_found", storage.ErrNotFound.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, m)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
