package session

import "github.com/zhouzirui/relaychat/backend/internal/model/chat"

// EventType names a store mutation.
type EventType string

const (
	EventChatCreated     EventType = "chat.created"
	EventChatSelected    EventType = "chat.selected"
	EventChatDeleted     EventType = "chat.deleted"
	EventChatRenamed     EventType = "chat.renamed"
	EventMessagePending  EventType = "message.pending"
	EventMessageResolved EventType = "message.resolved"
	EventMessageFailed   EventType = "message.failed"
)

// Event describes a mutation after it has been applied. Seq increases by one
// per mutation and listeners see events in Seq order. Index is the chat's
// position at the time of the event; ActiveIndex is nil when no chat is active.
type Event struct {
	Seq         uint64        `json:"seq"`
	Type        EventType     `json:"type"`
	ChatID      string        `json:"chatId"`
	Index       int           `json:"index"`
	ActiveIndex *int          `json:"activeIndex"`
	Title       string        `json:"title,omitempty"`
	Message     *chat.Message `json:"message,omitempty"`
}

// Listener receives store events. Listeners run synchronously on the
// goroutine that performed the mutation and must not call back into the
// store's mutating operations.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.listenersMu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit delivers ev once every earlier event has been delivered, so listeners
// observe mutations in the order they were applied.
func (s *Store) emit(ev Event) {
	s.emitMu.Lock()
	for s.delivered != ev.Seq-1 {
		s.emitTurn.Wait()
	}
	s.emitMu.Unlock()

	defer func() {
		s.emitMu.Lock()
		s.delivered = ev.Seq
		s.emitTurn.Broadcast()
		s.emitMu.Unlock()
	}()

	s.listenersMu.RLock()
	subs := append([]subscription(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}
