package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wa-relay/internal/model"
)

// SkipReason explains why a webhook produced no message. None of these are
// failures: the webhook is still acknowledged.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipNoMessage       SkipReason = "no_message"
	SkipUnsupportedType SkipReason = "unsupported_type"
	SkipMalformed       SkipReason = "malformed"
)

// Result is the outcome of Normalize: either a Message, or a Reason with an
// optional Detail for logs.
type Result struct {
	Message *model.Message
	Reason  SkipReason
	Detail  string
}

func (r Result) OK() bool { return r.Message != nil }

func skip(reason SkipReason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// inboundHeader holds the fields shared by every inbound message kind.
type inboundHeader struct {
	ID        string       `json:"id"`
	From      string       `json:"from"`
	Timestamp epochSeconds `json:"timestamp"`
	Type      string       `json:"type"`
}

// epochSeconds accepts a JSON string or number and keeps its text. Parsing is
// deferred so that a bad timestamp never fails the whole message.
type epochSeconds string

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = epochSeconds(s)
		return nil
	}
	*e = epochSeconds(bytes.TrimSpace(data))
	return nil
}

// Bounds of years 0000 through 9999, the range time.Time can encode as JSON.
const (
	minEpochSeconds = -62167219200
	maxEpochSeconds = 253402300799
)

func (e epochSeconds) Time(now func() time.Time) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(string(e)), 10, 64)
	if err != nil || n < minEpochSeconds || n > maxEpochSeconds {
		return now()
	}
	return time.Unix(n, 0).UTC()
}

// Normalize extracts the first message of entry[0].changes[0].value.messages
// from a raw webhook payload. Only that path is decoded; other fields of the
// envelope are never inspected. It has no side effects.
func Normalize(payload []byte, now func() time.Time) Result {
	if now == nil {
		now = time.Now
	}

	var env struct {
		Entry []json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return skip(SkipMalformed, "decode envelope: %v", err)
	}
	if len(env.Entry) == 0 {
		return skip(SkipNoMessage, "no entry")
	}

	var entry struct {
		Changes []json.RawMessage `json:"changes"`
	}
	if err := json.Unmarshal(env.Entry[0], &entry); err != nil {
		return skip(SkipMalformed, "decode entry: %v", err)
	}
	if len(entry.Changes) == 0 {
		return skip(SkipNoMessage, "no changes")
	}

	var change struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(entry.Changes[0], &change); err != nil {
		return skip(SkipMalformed, "decode change: %v", err)
	}

	var value struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if len(change.Value) > 0 {
		if err := json.Unmarshal(change.Value, &value); err != nil {
			return skip(SkipMalformed, "decode change value: %v", err)
		}
	}
	if len(value.Messages) == 0 {
		return skip(SkipNoMessage, "no messages")
	}

	return normalizeMessage(value.Messages[0], now)
}

func normalizeMessage(raw json.RawMessage, now func() time.Time) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return skip(SkipMalformed, "decode message: %v", err)
	}

	var hdr inboundHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return skip(SkipMalformed, "decode message header: %v", err)
	}
	if hdr.Type == "" {
		hdr.Type = string(model.TypeText)
	}

	msgType, err := model.ParseMessageType(hdr.Type)
	if err != nil {
		return skip(SkipUnsupportedType, "type %q from %s (id=%s)", hdr.Type, hdr.From, hdr.ID)
	}

	from := digitsOnly(hdr.From)
	if hdr.ID == "" || from == "" {
		return skip(SkipMalformed, "missing id or sender (id=%q from=%q)", hdr.ID, hdr.From)
	}

	text, media, err := decodeContent(msgType, fields[hdr.Type])
	if err != nil {
		return skip(SkipMalformed, "decode %s content of %s: %v", msgType, hdr.ID, err)
	}

	return Result{Message: &model.Message{
		ID:        hdr.ID,
		From:      from,
		Type:      msgType,
		Text:      text,
		Media:     media,
		Timestamp: hdr.Timestamp.Time(now),
		Status:    model.StatusDelivered,
	}}
}

// decodeContent reads the type-named object of a message. An absent object
// yields empty content.
func decodeContent(t model.MessageType, raw json.RawMessage) (string, *model.MediaRef, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil, nil
	}

	if t == model.TypeText {
		var body TextBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return "", nil, err
		}
		return body.Body, nil, nil
	}

	var obj MediaObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", nil, err
	}
	var ref *model.MediaRef
	if obj.ID != "" || obj.Link != "" {
		ref = &model.MediaRef{MediaID: obj.ID, MediaURL: obj.Link}
	}
	return obj.Caption, ref, nil
}

// digitsOnly strips everything but ASCII digits from a phone number.
func digitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
