package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeHeadersRedactsSecrets(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	r.Header.Set("Authorization", "Bearer abc")
	r.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	r.Header.Set("Content-Type", "application/json")

	h := SafeHeaders(r)
	assert.Equal(t, "<redacted>", h["Authorization"])
	assert.Equal(t, "<redacted>", h["X-Hub-Signature-256"])
	assert.Equal(t, "application/json", h["Content-Type"])
}

func TestMiddlewareLogsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Authorization", "Bearer abc")
	h.ServeHTTP(httptest.NewRecorder(), r)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/health", entry.Data["path"])
	headers, ok := entry.Data["headers"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "<redacted>", headers["Authorization"])
}

func TestInitLevels(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	assert.Equal(t, logrus.WarnLevel, Init("warn", false).GetLevel())
	assert.Equal(t, logrus.InfoLevel, Init("loud", false).GetLevel())
	assert.Equal(t, logrus.DebugLevel, Init("info", true).GetLevel())
}
