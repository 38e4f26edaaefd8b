package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Status tracks the lifecycle of a bot reply. User messages are always resolved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

// Message is a single conversation turn. ID is stable for the lifetime of the
// message and is how a pending placeholder is found again.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserMessage builds a resolved user turn.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Status:    StatusResolved,
		CreatedAt: time.Now().UTC(),
	}
}

// NewPlaceholder builds the "bot is typing" entry.
func NewPlaceholder() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleBot,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Pending reports whether the message still awaits a reply.
func (m Message) Pending() bool {
	return m.Status == StatusPending
}

// Resolve returns a copy settled with the real reply. Settled messages are
// returned unchanged.
func (m Message) Resolve(content string) Message {
	return m.settle(content, StatusResolved)
}

// Fail returns a copy settled with a user-visible fallback.
func (m Message) Fail(content string) Message {
	return m.settle(content, StatusFailed)
}

func (m Message) settle(content string, status Status) Message {
	if !m.Pending() {
		return m
	}
	m.Content = content
	m.Status = status
	return m
}
