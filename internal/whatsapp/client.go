package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wa-relay/internal/metrics"
	"wa-relay/internal/model"
)

const (
	DefaultBaseURL         = "https://graph.facebook.com/v18.0"
	DefaultSendTimeout     = 30 * time.Second
	DefaultDownloadTimeout = 60 * time.Second

	maxDownloadBytes = 100 << 20
)

type Options struct {
	BaseURL         string
	PhoneNumberID   string
	AccessToken     string
	SendTimeout     time.Duration
	DownloadTimeout time.Duration
	Logger          logrus.FieldLogger
}

// Client talks to the WhatsApp Cloud API on behalf of one business phone
// number. It is safe for concurrent use.
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string

	sendHTTP     *http.Client
	downloadHTTP *http.Client
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = DefaultDownloadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		phoneNumberID: opts.PhoneNumberID,
		accessToken:   opts.AccessToken,
		sendHTTP:      &http.Client{Timeout: opts.SendTimeout},
		downloadHTTP:  &http.Client{Timeout: opts.DownloadTimeout},
		log:           opts.Logger.WithField("component", "whatsapp"),
		now:           time.Now,
	}
}

// SendText sends a text message to the given phone number.
func (c *Client) SendText(ctx context.Context, to, text string) (*model.Message, error) {
	if strings.TrimSpace(to) == "" {
		return nil, &ValidationError{Field: "to", Reason: "recipient is required"}
	}
	if text == "" {
		return nil, &ValidationError{Field: "text", Reason: "text is required"}
	}

	req := SendMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             string(model.TypeText),
		Text:             &TextBody{Body: text},
	}
	id, err := c.send(ctx, "send_text", req)
	if err != nil {
		return nil, err
	}

	return &model.Message{
		ID:        id,
		To:        to,
		Type:      model.TypeText,
		Text:      text,
		Timestamp: c.now(),
		Status:    model.StatusSent,
	}, nil
}

// SendMedia sends a media message referencing a public URL. The caption is
// dropped for audio.
func (c *Client) SendMedia(ctx context.Context, to, mediaType, mediaURL, caption string) (*model.Message, error) {
	if strings.TrimSpace(to) == "" {
		return nil, &ValidationError{Field: "to", Reason: "recipient is required"}
	}
	t, err := model.ParseMediaType(mediaType)
	if err != nil {
		return nil, &ValidationError{Field: "media_type", Reason: err.Error()}
	}
	if strings.TrimSpace(mediaURL) == "" {
		return nil, &ValidationError{Field: "media_url", Reason: "media URL is required"}
	}
	if !t.AllowsCaption() {
		caption = ""
	}

	obj := &MediaObject{Link: mediaURL, Caption: caption}
	req := SendMessageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             string(t),
	}
	switch t {
	case model.TypeAudio:
		req.Audio = obj
	case model.TypeDocument:
		req.Document = obj
	case model.TypeImage:
		req.Image = obj
	case model.TypeVideo:
		req.Video = obj
	}

	id, err := c.send(ctx, "send_media", req)
	if err != nil {
		return nil, err
	}

	return &model.Message{
		ID:        id,
		To:        to,
		Type:      t,
		Text:      caption,
		Media:     &model.MediaRef{MediaURL: mediaURL},
		Timestamp: c.now(),
		Status:    model.StatusSent,
	}, nil
}

// send posts a message and returns the provider message id.
func (c *Client) send(ctx context.Context, op string, payload SendMessageRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	respBody, status, err := c.do(ctx, c.sendHTTP, op, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		c.record(op, "provider_error")
		return "", &ProviderError{StatusCode: status, Body: string(respBody)}
	}

	var result SendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Messages) == 0 || result.Messages[0].ID == "" {
		c.record(op, "provider_error")
		return "", &ProviderError{StatusCode: status, Body: string(respBody)}
	}

	c.record(op, "ok")
	c.log.WithFields(logrus.Fields{"op": op, "to": payload.To, "id": result.Messages[0].ID}).Info("message sent")
	return result.Messages[0].ID, nil
}

// MediaInfo fetches metadata for a media ID received in a webhook.
func (c *Client) MediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	if strings.TrimSpace(mediaID) == "" {
		return nil, &ValidationError{Field: "media_id", Reason: "media ID is required"}
	}

	const op = "media_info"
	respBody, status, err := c.do(ctx, c.sendHTTP, op, http.MethodGet, c.baseURL+"/"+mediaID, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.record(op, "provider_error")
		return nil, &ProviderError{StatusCode: status, Body: string(respBody)}
	}

	var info MediaInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		c.record(op, "provider_error")
		return nil, &ProviderError{StatusCode: status, Body: string(respBody)}
	}
	c.record(op, "ok")
	return &info, nil
}

// FetchMediaLocation resolves a media ID to its download URL. Failures are
// logged and reported only as ok=false.
func (c *Client) FetchMediaLocation(ctx context.Context, mediaID string) (string, bool) {
	info, err := c.MediaInfo(ctx, mediaID)
	if err != nil {
		c.log.WithError(err).WithField("media_id", mediaID).Warn("fetch media location failed")
		return "", false
	}
	if info.URL == "" {
		c.log.WithField("media_id", mediaID).Warn("media info has no url")
		return "", false
	}
	return info.URL, true
}

// Download fetches media content from a provider download URL. It returns the
// bytes and the response content type.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	const op = "download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &ValidationError{Field: "url", Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.downloadHTTP.Do(req)
	if err != nil {
		c.record(op, "transport_error")
		return nil, "", &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		c.record(op, "transport_error")
		return nil, "", &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(op, "provider_error")
		return nil, "", &ProviderError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if len(data) > maxDownloadBytes {
		c.record(op, "provider_error")
		return nil, "", &ProviderError{StatusCode: resp.StatusCode, Body: "media exceeds download limit"}
	}

	c.record(op, "ok")
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, op, method, url string, body []byte) ([]byte, int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		c.record(op, "transport_error")
		c.log.WithError(err).WithField("op", op).Error("provider request failed")
		return nil, 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(op, "transport_error")
		return nil, 0, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode}).Warn("provider rejected request")
	}
	return respBody, resp.StatusCode, nil
}

func (c *Client) record(op, outcome string) {
	metrics.ProviderRequests.WithLabelValues(op, outcome).Inc()
}
