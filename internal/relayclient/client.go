package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wa-relay/internal/model"
)

// Client calls a running relay over HTTP.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// APIError is a non-2xx relay response.
type APIError struct {
	StatusCode int
	Kind       string `json:"error"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("relay error (status %d): %s: %s", e.StatusCode, e.Kind, e.Detail)
	}
	return fmt.Sprintf("relay error (status %d): %s", e.StatusCode, e.Kind)
}

type UploadResult struct {
	Filename       string `json:"filename"`
	ContentType    string `json:"content_type"`
	StoredFilename string `json:"stored_filename"`
	MediaURL       string `json:"media_url"`
	FileSize       int64  `json:"file_size"`
	TestURL        string `json:"test_url"`
}

func (c *Client) SendText(ctx context.Context, to, text string) (*model.Message, error) {
	form := url.Values{"to": {to}, "text": {text}}
	var m model.Message
	if err := c.postForm(ctx, "/api/messages/send-text", form, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) SendMedia(ctx context.Context, to, mediaType, mediaURL, caption string) (*model.Message, error) {
	form := url.Values{"to": {to}, "media_type": {mediaType}, "media_url": {mediaURL}}
	if caption != "" {
		form.Set("caption", caption)
	}
	var m model.Message
	if err := c.postForm(ctx, "/api/messages/send-media", form, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UploadFile stores a local file on the relay and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var res UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/messages/media/upload", mw.FormDataContentType(), &buf, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UploadAndSend uploads a file and sends it as a media message.
func (c *Client) UploadAndSend(ctx context.Context, to, path, mediaType, caption string) (*model.Message, error) {
	up, err := c.UploadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if up.MediaURL == "" {
		return nil, fmt.Errorf("upload of %s returned no media URL", path)
	}
	return c.SendMedia(ctx, to, mediaType, up.MediaURL, caption)
}

func (c *Client) List(ctx context.Context, limit, offset int) (*model.Page, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
	var p model.Page
	if err := c.do(ctx, http.MethodGet, "/api/messages?"+q.Encode(), "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(id), "", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) TestMedia(ctx context.Context, filename string) (map[string]string, error) {
	out := map[string]string{}
	err := c.do(ctx, http.MethodGet, "/api/messages/media/test/"+url.PathEscape(filename), "", nil, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	err := c.do(ctx, http.MethodGet, "/health", "", nil, &out)
	return out, err
}

func (c *Client) Config(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	err := c.do(ctx, http.MethodGet, "/config", "", nil, &out)
	return out, err
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Kind == "" {
			apiErr.Kind = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
