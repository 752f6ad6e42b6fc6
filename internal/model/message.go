package model

import (
	"errors"
	"fmt"
	"time"
)

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeAudio    MessageType = "audio"
	TypeDocument MessageType = "document"
	TypeImage    MessageType = "image"
	TypeVideo    MessageType = "video"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// ParseMessageType maps a provider type tag onto the closed MessageType set.
// Unknown tags are rejected, never coerced.
func ParseMessageType(s string) (MessageType, error) {
	switch t := MessageType(s); t {
	case TypeText, TypeAudio, TypeDocument, TypeImage, TypeVideo:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, s)
}

// ParseMediaType is ParseMessageType restricted to the media kinds.
func ParseMediaType(s string) (MessageType, error) {
	t, err := ParseMessageType(s)
	if err != nil {
		return "", err
	}
	if !t.IsMedia() {
		return "", fmt.Errorf("%w: %q is not a media type", ErrUnknownMessageType, s)
	}
	return t, nil
}

func (t MessageType) IsMedia() bool {
	switch t {
	case TypeAudio, TypeDocument, TypeImage, TypeVideo:
		return true
	}
	return false
}

// AllowsCaption reports whether the provider accepts a caption for this kind.
// Audio never carries one.
func (t MessageType) AllowsCaption() bool {
	switch t {
	case TypeDocument, TypeImage, TypeVideo:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// MediaRef identifies an attachment. MediaID is the provider handle used to
// fetch content later, MediaURL a publicly reachable link.
type MediaRef struct {
	MediaID  string `json:"media_id,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
}

// Message is used for both directions: received messages carry From,
// sent messages carry To.
type Message struct {
	ID        string        `json:"id"`
	From      string        `json:"from_number,omitempty"`
	To        string        `json:"to,omitempty"`
	Type      MessageType   `json:"type"`
	Text      string        `json:"text,omitempty"`
	Media     *MediaRef     `json:"media,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
}

// Page is one window of the insertion-ordered message sequence. Total counts
// the whole store, not the window.
type Page struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
