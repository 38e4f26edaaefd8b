package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/relaychat/backend/internal/model/chat"
)

var (
	ErrOutOfRange    = errors.New("chat index out of range")
	ErrInvalidTitle  = errors.New("chat title must not be blank")
	ErrNoActiveChat  = errors.New("no active chat")
	ErrChatNotFound  = errors.New("chat not found")
	ErrUnknownTicket = errors.New("no in-flight exchange for ticket")
)

const noActive = -1

// Ticket identifies one in-flight exchange. The placeholder is addressed by
// its ID, never by position.
type Ticket struct {
	ChatID        string
	PlaceholderID string
}

type exchange struct {
	user        chat.Message
	placeholder chat.Message
}

// Store holds every chat of a session, the active chat pointer and the
// in-flight exchanges that make up the live view. It is the only owner of
// chat and message values; callers always receive copies.
type Store struct {
	mu       sync.RWMutex
	chats    []*chat.Chat
	active   int
	inflight map[string][]*exchange

	// seq numbers events under mu; delivered is the last seq handed to
	// listeners and is guarded by emitMu.
	seq       uint64
	emitMu    sync.Mutex
	emitTurn  *sync.Cond
	delivered uint64

	listenersMu  sync.RWMutex
	listeners    []subscription
	nextListener int
}

// NewStore returns an empty store with no active chat.
func NewStore() *Store {
	s := &Store{
		active:   noActive,
		inflight: make(map[string][]*exchange),
	}
	s.emitTurn = sync.NewCond(&s.emitMu)
	return s
}

// CreateChat appends an empty chat titled "Chat N" and makes it active.
func (s *Store) CreateChat() (int, chat.Chat) {
	s.mu.Lock()
	c := &chat.Chat{
		ID:        uuid.NewString(),
		Title:     chat.DefaultTitle(len(s.chats) + 1),
		Messages:  make([]chat.Message, 0, 16),
		CreatedAt: time.Now().UTC(),
	}
	s.chats = append(s.chats, c)
	s.active = len(s.chats) - 1
	index, snapshot, ev := s.active, c.Clone(), s.eventLocked(EventChatCreated, c, s.active)
	s.mu.Unlock()

	s.emit(ev)
	return index, snapshot
}

// SelectChat makes the chat at index active.
func (s *Store) SelectChat(index int) error {
	s.mu.Lock()
	if !s.validLocked(index) {
		s.mu.Unlock()
		return ErrOutOfRange
	}
	s.active = index
	ev := s.eventLocked(EventChatSelected, s.chats[index], index)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// DeleteChat removes the chat at index. A chat before the active one shifts
// the active index down; deleting the active chat clears it. In-flight
// exchanges of the removed chat are dropped.
func (s *Store) DeleteChat(index int) error {
	s.mu.Lock()
	if !s.validLocked(index) {
		s.mu.Unlock()
		return ErrOutOfRange
	}
	removed := s.chats[index]
	s.chats = append(s.chats[:index], s.chats[index+1:]...)
	delete(s.inflight, removed.ID)

	switch {
	case s.active == index:
		s.active = noActive
	case s.active > index:
		s.active--
	}
	ev := s.eventLocked(EventChatDeleted, removed, index)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// RenameChat replaces the title of the chat at index. Blank titles are
// rejected and leave the chat untouched.
func (s *Store) RenameChat(index int, title string) error {
	s.mu.Lock()
	if !s.validLocked(index) {
		s.mu.Unlock()
		return ErrOutOfRange
	}
	if strings.TrimSpace(title) == "" {
		s.mu.Unlock()
		return ErrInvalidTitle
	}
	c := s.chats[index]
	c.Title = title
	ev := s.eventLocked(EventChatRenamed, c, index)
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// AppendExchange commits a user message followed by its bot reply and
// announces the reply like a settled exchange.
func (s *Store) AppendExchange(index int, user, bot chat.Message) error {
	s.mu.Lock()
	if !s.validLocked(index) {
		s.mu.Unlock()
		return ErrOutOfRange
	}
	c := s.chats[index]
	s.appendLocked(c, user, bot)

	evType := EventMessageResolved
	if bot.Status == chat.StatusFailed {
		evType = EventMessageFailed
	}
	ev := s.eventLocked(evType, c, index)
	ev.Message = &bot
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// ExportText renders the committed history as "User: ..." / "AI: ..." lines.
func (s *Store) ExportText(index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.validLocked(index) {
		return "", ErrOutOfRange
	}

	messages := s.chats[index].Messages
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		label := "AI"
		if m.Role == chat.RoleUser {
			label = "User"
		}
		lines = append(lines, label+": "+m.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// Active returns the active index, if any.
func (s *Store) Active() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.active != noActive
}

// Len returns the number of chats.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// Chat returns a copy of the chat at index.
func (s *Store) Chat(index int) (chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.validLocked(index) {
		return chat.Chat{}, ErrOutOfRange
	}
	return s.chats[index].Clone(), nil
}

// Chats returns copies of all chats in creation order.
func (s *Store) Chats() []chat.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

// LiveMessages returns the committed history followed by every in-flight
// user message and its placeholder, in dispatch order.
func (s *Store) LiveMessages(index int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.validLocked(index) {
		return nil, ErrOutOfRange
	}
	c := s.chats[index]
	live := append([]chat.Message(nil), c.Messages...)
	for _, ex := range s.inflight[c.ID] {
		live = append(live, ex.user, ex.placeholder)
	}
	return live, nil
}

// BeginExchange registers user as in flight on the active chat together with
// a pending placeholder. The exchange keeps its place in dispatch order until
// it is committed. It returns the ticket that settles the placeholder later
// and the context to send: every message visible in the chat except pending
// placeholders, followed by user.
func (s *Store) BeginExchange(user chat.Message) (Ticket, []chat.Message, error) {
	s.mu.Lock()
	if s.active == noActive {
		s.mu.Unlock()
		return Ticket{}, nil, ErrNoActiveChat
	}
	c := s.chats[s.active]

	context := make([]chat.Message, 0, len(c.Messages)+1)
	context = append(context, c.Messages...)
	for _, ex := range s.inflight[c.ID] {
		context = append(context, ex.user)
		if !ex.placeholder.Pending() {
			context = append(context, ex.placeholder)
		}
	}
	context = append(context, user)

	ex := &exchange{user: user, placeholder: chat.NewPlaceholder()}
	s.inflight[c.ID] = append(s.inflight[c.ID], ex)

	ticket := Ticket{ChatID: c.ID, PlaceholderID: ex.placeholder.ID}
	ev := s.eventLocked(EventMessagePending, c, s.active)
	placeholder := ex.placeholder
	ev.Message = &placeholder
	s.mu.Unlock()

	s.emit(ev)
	return ticket, context, nil
}

// CompleteExchange settles the placeholder named by t with content. status
// must be StatusResolved or StatusFailed; both outcomes are committed so
// history matches what was shown. Exchanges are committed in dispatch order:
// a settled exchange waits in the live view until every exchange begun
// before it has settled too. If the chat was deleted while the exchange was
// in flight, ErrChatNotFound is returned and nothing is committed.
func (s *Store) CompleteExchange(t Ticket, content string, status chat.Status) (chat.Message, error) {
	s.mu.Lock()
	index := s.indexOfLocked(t.ChatID)
	if index < 0 {
		s.mu.Unlock()
		return chat.Message{}, ErrChatNotFound
	}
	c := s.chats[index]

	var ex *exchange
	for _, candidate := range s.inflight[c.ID] {
		if candidate.placeholder.ID == t.PlaceholderID && candidate.placeholder.Pending() {
			ex = candidate
			break
		}
	}
	if ex == nil {
		s.mu.Unlock()
		return chat.Message{}, ErrUnknownTicket
	}

	evType := EventMessageResolved
	if status == chat.StatusFailed {
		ex.placeholder = ex.placeholder.Fail(content)
		evType = EventMessageFailed
	} else {
		ex.placeholder = ex.placeholder.Resolve(content)
	}
	bot := ex.placeholder
	s.commitSettledLocked(c)

	ev := s.eventLocked(evType, c, index)
	ev.Message = &bot
	s.mu.Unlock()

	s.emit(ev)
	return bot, nil
}

// commitSettledLocked moves the settled prefix of c's in-flight exchanges
// into its history.
func (s *Store) commitSettledLocked(c *chat.Chat) {
	pending := s.inflight[c.ID]
	n := 0
	for n < len(pending) && !pending[n].placeholder.Pending() {
		s.appendLocked(c, pending[n].user, pending[n].placeholder)
		n++
	}
	if n == len(pending) {
		delete(s.inflight, c.ID)
		return
	}
	s.inflight[c.ID] = pending[n:]
}

func (s *Store) appendLocked(c *chat.Chat, user, bot chat.Message) {
	c.Messages = append(c.Messages, user, bot)
}

func (s *Store) validLocked(index int) bool {
	return index >= 0 && index < len(s.chats)
}

func (s *Store) indexOfLocked(chatID string) int {
	for i, c := range s.chats {
		if c.ID == chatID {
			return i
		}
	}
	return -1
}

func (s *Store) eventLocked(t EventType, c *chat.Chat, index int) Event {
	s.seq++
	ev := Event{Seq: s.seq, Type: t, ChatID: c.ID, Index: index, Title: c.Title}
	if s.active != noActive {
		active := s.active
		ev.ActiveIndex = &active
	}
	return ev
}
