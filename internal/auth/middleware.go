package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const SignatureHeader = "X-Hub-Signature-256"

// MaxWebhookBody caps the webhook body read for signature checks.
const MaxWebhookBody = 10 << 20

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "detail": msg})
}

// APITokenMiddleware requires "Authorization: Bearer <token>". An empty token
// disables the check.
func APITokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing or invalid Authorization header")
				return
			}
			got := []byte(strings.TrimPrefix(header, "Bearer "))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				unauthorized(w, "invalid API token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignatureMiddleware verifies the provider's X-Hub-Signature-256 HMAC over
// the raw body and hands the body on unchanged. An empty secret disables the
// check.
func SignatureMiddleware(secret string, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBody))
			if err != nil {
				http.Error(w, "read error", http.StatusBadRequest)
				return
			}
			if !ValidSignature(secret, body, r.Header.Get(SignatureHeader)) {
				log.WithField("path", r.URL.Path).Warn("webhook signature mismatch")
				unauthorized(w, "invalid signature")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// ValidSignature checks a "sha256=<hex>" header against body.
func ValidSignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	sig := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected))
}

// Sign returns the header value the provider would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
