package relayclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wa-relay/internal/model"
)

func relayStub(t *testing.T) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"unauthorized","detail":"invalid API token"}`)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/messages/send-text", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"id":"wamid.X","to":"`+req.FormValue("to")+`","type":"text","text":"`+req.FormValue("text")+`","status":"sent","timestamp":"2024-01-01T00:00:00Z"}`)
	})
	r.Post("/api/messages/send-media", func(w http.ResponseWriter, req *http.Request) {
		if req.FormValue("media_type") == "gif" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"validation_error","detail":"invalid media_type"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"wamid.M","to":"`+req.FormValue("to")+`","type":"`+req.FormValue("media_type")+`","media":{"media_url":"`+req.FormValue("media_url")+`"},"status":"sent","timestamp":"2024-01-01T00:00:00Z"}`)
	})
	r.Post("/api/messages/media/upload", func(w http.ResponseWriter, req *http.Request) {
		_, header, err := req.FormFile("file")
		require.NoError(t, err)
		_, _ = io.WriteString(w, `{"filename":"`+header.Filename+`","stored_filename":"abc.txt","media_url":"http://relay.test/uploads/abc.txt","file_size":5}`)
	})
	r.Get("/api/messages", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "2", req.URL.Query().Get("limit"))
		assert.Equal(t, "1", req.URL.Query().Get("offset"))
		_, _ = io.WriteString(w, `{"messages":[{"id":"m2","from_number":"1","type":"text","status":"delivered","timestamp":"2024-01-01T00:00:00Z"}],"total":3}`)
	})
	r.Get("/api/messages/{id}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not_found","detail":"message not found"}`)
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy","whatsapp_configured":false}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestSendText(t *testing.T) {
	c := New(relayStub(t).URL, "tok")

	m, err := c.SendText(context.Background(), "15550001", "hi")
	require.NoError(t, err)
	assert.Equal(t, "wamid.X", m.ID)
	assert.Equal(t, model.StatusSent, m.Status)
	assert.Equal(t, "15550001", m.To)
}

func TestUploadAndSend(t *testing.T) {
	c := New(relayStub(t).URL, "tok")
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	m, err := c.UploadAndSend(context.Background(), "15550001", path, "document", "notes")
	require.NoError(t, err)
	assert.Equal(t, model.TypeDocument, m.Type)
	require.NotNil(t, m.Media)
	assert.Equal(t, "http://relay.test/uploads/abc.txt", m.Media.MediaURL)
}

func TestUploadMissingFile(t *testing.T) {
	c := New(relayStub(t).URL, "tok")
	_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListAndGet(t *testing.T) {
	c := New(relayStub(t).URL, "tok")

	p, err := c.List(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	require.Len(t, p.Messages, 1)
	assert.Equal(t, "m2", p.Messages[0].ID)

	_, err = c.Get(context.Background(), "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Kind)
}

func TestErrorsCarryDetail(t *testing.T) {
	srv := relayStub(t)

	_, err := New(srv.URL, "tok").SendMedia(context.Background(), "1", "gif", "http://x", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "validation_error", apiErr.Kind)
	assert.Equal(t, "invalid media_type", apiErr.Detail)

	_, err = New(srv.URL, "wrong").Health(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestHealth(t *testing.T) {
	h, err := New(relayStub(t).URL, "tok").Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h["status"])
}
