package whatsapp

// TextBody holds a text message body.
type TextBody struct {
	Body string `json:"body"`
}

// MediaObject is the type-named object of audio, document, image and video
// messages, in both directions.
type MediaObject struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// SendMessageRequest is the outbound message envelope.
type SendMessageRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextBody    `json:"text,omitempty"`
	Audio            *MediaObject `json:"audio,omitempty"`
	Document         *MediaObject `json:"document,omitempty"`
	Image            *MediaObject `json:"image,omitempty"`
	Video            *MediaObject `json:"video,omitempty"`
}

// SendMessageResponse is the response from the send message API.
type SendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MediaInfo is the media metadata returned for a media ID. URL is a
// short-lived download link.
type MediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
	ID       string `json:"id"`
}
