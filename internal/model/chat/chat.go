package chat

import (
	"fmt"
	"time"
)

// Chat is a named conversation. Messages holds committed turns in
// conversation order.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultTitle returns the auto-generated title for the n-th chat (1-based).
func DefaultTitle(n int) string {
	return fmt.Sprintf("Chat %d", n)
}

// Clone copies the chat including its message slice.
func (c Chat) Clone() Chat {
	c.Messages = append([]Message(nil), c.Messages...)
	return c
}
