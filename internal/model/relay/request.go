package relay

// Request is the body accepted by both relay endpoints and forwarded to the
// backend gateway.
type Request struct {
	Question string  `json:"question"`
	Context  *string `json:"context,omitempty"`
}

// Reply is the normalized relay response. A nil Response is omitted on the
// wire, which callers treat as "no response".
type Reply struct {
	Response *string `json:"response,omitempty"`
}

// NewReply wraps text into a Reply.
func NewReply(text string) Reply {
	return Reply{Response: &text}
}
