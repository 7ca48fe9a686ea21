package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/healthpalm/aisha/backend/internal/infrastructure/logging"
	"github.com/healthpalm/aisha/backend/internal/infrastructure/monitoring"
	"github.com/healthpalm/aisha/backend/internal/shared/types"
)

const (
	// DefaultTitle is the sentinel title assigned to new sessions. A
	// session still carrying it is eligible for the one-time rename on
	// its first user message.
	DefaultTitle = "New Chat"

	// WelcomeText is the assistant greeting seeded into every new
	// session. It is excluded from the history sent to the assistant.
	WelcomeText = "Hello! I am Aisha, your personal AI assistant for insurance queries. How can I help you today?"

	// seedTitle names the session created on a completely fresh store.
	seedTitle = "Chat with Aisha"

	dateLayout = "2006-01-02"
)

// Storage keys for the durable shadow copy. The names predate the
// gateway and must stay stable so existing stores keep loading.
const (
	KeySessions = "chatHistory"
	KeyMessages = "allMessages"
	KeyActiveID = "currentChatId"
)

// Persistence is the write-through adapter the store shadows itself to.
type Persistence interface {
	Load(key string, out interface{}) bool
	Save(key string, value interface{})
}

// Store owns sessions, the active pointer, and the message map.
type Store struct {
	mu       sync.RWMutex
	sessions []types.Session
	messages map[int][]types.Message
	activeID int

	persist Persistence
	logger  *logging.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// NewStore creates a store initialized from the persisted snapshot, or
// from seeded defaults when nothing (or nothing usable) is persisted.
func NewStore(persist Persistence, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Store{
		messages: make(map[int][]types.Message),
		persist:  persist,
		logger:   logger,
		now:      time.Now,
	}
	s.restore()
	return s
}

// WithMetrics adds metrics tracking to the store.
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	if metrics != nil {
		metrics.SetSessionsActive(len(s.sessions))
	}
	return s
}

// restore loads the three keys and repairs any divergence between them
// so the documented invariants hold before the first read.
func (s *Store) restore() {
	s.persist.Load(KeySessions, &s.sessions)
	s.persist.Load(KeyMessages, &s.messages)
	s.persist.Load(KeyActiveID, &s.activeID)
	if s.messages == nil {
		s.messages = make(map[int][]types.Message)
	}

	if len(s.sessions) == 0 {
		s.sessions = []types.Session{{ID: 1, Title: seedTitle, Date: s.today()}}
		s.messages = map[int][]types.Message{
			1: {{Sender: types.SenderAssistant, Text: WelcomeText}},
		}
		s.activeID = 1
		s.persistAll()
		s.logger.Info("seeded fresh conversation store")
		return
	}

	// A session without a message entry gets one, seeded like a new
	// chat; entries without a session are dropped.
	known := make(map[int]bool, len(s.sessions))
	for _, sess := range s.sessions {
		known[sess.ID] = true
		if _, ok := s.messages[sess.ID]; !ok {
			s.messages[sess.ID] = []types.Message{{Sender: types.SenderAssistant, Text: WelcomeText}}
		}
	}
	for id := range s.messages {
		if !known[id] {
			delete(s.messages, id)
		}
	}
	if !known[s.activeID] {
		s.activeID = s.sessions[0].ID
	}
	s.persistAll()

	s.logger.Info("restored conversation store",
		zap.Int("sessions", len(s.sessions)),
		zap.Int("active_id", s.activeID),
	)
}

// Create starts a new chat session: next id, sentinel title, welcome
// message, and makes it active.
func (s *Store) Create() types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked()
}

func (s *Store) createLocked() types.Session {
	id := 1
	for _, sess := range s.sessions {
		if sess.ID >= id {
			id = sess.ID + 1
		}
	}

	sess := types.Session{ID: id, Title: DefaultTitle, Date: s.today()}
	s.sessions = append(s.sessions, sess)
	s.messages[id] = []types.Message{{Sender: types.SenderAssistant, Text: WelcomeText}}
	s.activeID = id
	s.persistAll()

	if s.metrics != nil {
		s.metrics.IncSessionsCreated()
		s.metrics.SetSessionsActive(len(s.sessions))
		s.metrics.RecordMessage(types.SenderAssistant.Role())
	}

	return sess
}

// Select makes id the active session. Unknown ids are a no-op.
func (s *Store) Select(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasLocked(id) {
		return false
	}
	s.activeID = id
	s.persist.Save(KeyActiveID, s.activeID)
	return true
}

// Delete removes a session and its messages as one logical unit. When
// the active session is deleted the pointer moves to the first
// remaining session, or to a brand-new session if none remain. Returns
// the resulting active id.
func (s *Store) Delete(id int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasLocked(id) {
		return s.activeID, false
	}

	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	s.sessions = kept
	delete(s.messages, id)

	switch {
	case id != s.activeID:
		// Pointer untouched.
	case len(s.sessions) > 0:
		s.activeID = s.sessions[0].ID
	default:
		if s.metrics != nil {
			s.metrics.IncSessionsDeleted()
		}
		s.createLocked()
		return s.activeID, true
	}

	s.persistAll()
	if s.metrics != nil {
		s.metrics.IncSessionsDeleted()
		s.metrics.SetSessionsActive(len(s.sessions))
	}
	return s.activeID, true
}

// Append adds a message to a session's list, creating the entry if
// absent.
func (s *Store) Append(id int, msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[id] = append(s.messages[id], msg)
	s.persist.Save(KeyMessages, s.messages)

	if s.metrics != nil {
		s.metrics.RecordMessage(msg.Sender.Role())
	}
}

// RenameIfDefault applies newTitle only when the session still carries
// the sentinel title and its only messages are the welcome greeting
// followed by the user message that triggered the rename. Called after
// the optimistic user append, this fires exactly once per session.
func (s *Store) RenameIfDefault(id int, newTitle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[id]
	if len(msgs) != 2 || msgs[0].Sender != types.SenderAssistant || msgs[1].Sender != types.SenderUser {
		return false
	}

	for i := range s.sessions {
		if s.sessions[i].ID != id || s.sessions[i].Title != DefaultTitle {
			continue
		}
		s.sessions[i].Title = newTitle
		s.persist.Save(KeySessions, s.sessions)
		return true
	}
	return false
}

// Sessions returns a copy of the session list.
func (s *Store) Sessions() []types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Session(nil), s.sessions...)
}

// Get returns a session by id.
func (s *Store) Get(id int) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return types.Session{}, false
}

// Messages returns a copy of a session's message list.
func (s *Store) Messages(id int) ([]types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.messages[id]
	if !ok {
		return nil, false
	}
	return append([]types.Message(nil), msgs...), true
}

// ActiveID returns the current active session id.
func (s *Store) ActiveID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// History builds the conversation history for the assistant API:
// every message in order, minus the welcome greeting.
func (s *Store) History(id int) []types.ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[id]
	history := make([]types.ChatTurn, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Text == WelcomeText {
			continue
		}
		history = append(history, types.ChatTurn{Role: msg.Sender.Role(), Content: msg.Text})
	}
	return history
}

// Snapshot returns a deep copy of the full store state.
func (s *Store) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make(map[int][]types.Message, len(s.messages))
	for id, msgs := range s.messages {
		messages[id] = append([]types.Message(nil), msgs...)
	}
	return types.Snapshot{
		Sessions: append([]types.Session(nil), s.sessions...),
		Messages: messages,
		ActiveID: s.activeID,
	}
}

// Stats returns store statistics.
func (s *Store) Stats() types.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, msgs := range s.messages {
		total += len(msgs)
	}
	stats := types.StoreStats{
		TotalSessions: len(s.sessions),
		TotalMessages: total,
		ActiveID:      s.activeID,
	}
	if saved, ok := s.persist.(interface{ LastSaved() *time.Time }); ok {
		stats.LastPersisted = saved.LastSaved()
	}
	return stats
}

func (s *Store) hasLocked(id int) bool {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) persistAll() {
	s.persist.Save(KeySessions, s.sessions)
	s.persist.Save(KeyMessages, s.messages)
	s.persist.Save(KeyActiveID, s.activeID)
}

func (s *Store) today() string {
	return s.now().Format(dateLayout)
}
