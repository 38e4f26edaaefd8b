package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/relaychat/backend/internal/model/chat"
	"github.com/zhouzirui/relaychat/backend/internal/service/relay"
	"github.com/zhouzirui/relaychat/backend/internal/service/session"
	"github.com/zhouzirui/relaychat/backend/pkg/logger"
)

var ErrEmptyInput = errors.New("message input is empty")

// FallbackReply 是请求失败时占位消息的最终内容。
const FallbackReply = "⚠️ Something went wrong. Try again."

// State 描述一次发送的生命周期。
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingReply State = "awaiting_reply"
	StateResolved      State = "resolved"
	StateFailed        State = "failed"
)

// RelayCaller sends the conversation context to the relay.
type RelayCaller interface {
	Call(ctx context.Context, messages []chat.Message) relay.Result
}

// Outcome is the settled result of one Send.
type Outcome struct {
	State   State        `json:"state"`
	ChatID  string       `json:"chatId"`
	User    chat.Message `json:"user"`
	Reply   chat.Message `json:"reply"`
	Failure relay.Kind   `json:"failure,omitempty"`
}

// Orchestrator runs the optimistic send protocol against the session store.
type Orchestrator struct {
	store  *session.Store
	caller RelayCaller
}

// NewOrchestrator wires the store to a relay caller.
func NewOrchestrator(store *session.Store, caller RelayCaller) *Orchestrator {
	return &Orchestrator{store: store, caller: caller}
}

var roleLabel = regexp.MustCompile(`(?i)^\s*assistant\s*`)

// StripRoleLabel removes a leading "assistant" label and surrounding whitespace.
func StripRoleLabel(text string) string {
	return strings.TrimSpace(roleLabel.ReplaceAllString(text, ""))
}

// Send appends input to the active chat with a pending placeholder, asks the
// relay for a reply and settles the placeholder with it. Relay failures settle
// the placeholder with FallbackReply and are reported through Outcome, not the
// error. The relay call is not bound to ctx cancellation.
func (o *Orchestrator) Send(ctx context.Context, input string) (Outcome, error) {
	if strings.TrimSpace(input) == "" {
		return Outcome{State: StateIdle}, ErrEmptyInput
	}

	user := chat.NewUserMessage(input)
	ticket, history, err := o.store.BeginExchange(user)
	if err != nil {
		return Outcome{State: StateIdle}, err
	}

	log := logger.WithFields(logrus.Fields{"chat": ticket.ChatID, "placeholder": ticket.PlaceholderID})
	log.Debugf("send: %s", StateAwaitingReply)

	result := o.caller.Call(context.WithoutCancel(ctx), history)

	out := Outcome{ChatID: ticket.ChatID, User: user}
	content, status := FallbackReply, chat.StatusFailed
	if result.Ok() {
		content, status = StripRoleLabel(result.Text), chat.StatusResolved
		out.State = StateResolved
	} else {
		out.State = StateFailed
		out.Failure = result.Failure
		log.Warnf("relay call failed: %s", result.Failure)
	}

	reply, err := o.store.CompleteExchange(ticket, content, status)
	if err != nil {
		return out, err
	}
	out.Reply = reply
	log.Debugf("send: %s", out.State)
	return out, nil
}
