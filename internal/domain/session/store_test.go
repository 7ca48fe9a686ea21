package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpalm/aisha/backend/internal/shared/types"
)

// memPersist is an in-memory Persistence for tests. It round-trips
// values through the same shapes the real adapter serializes.
type memPersist struct {
	sessions []types.Session
	messages map[int][]types.Message
	activeID int
	saves    map[string]int
}

func newMemPersist() *memPersist {
	return &memPersist{saves: make(map[string]int)}
}

func (p *memPersist) Load(key string, out interface{}) bool {
	switch key {
	case KeySessions:
		if p.sessions == nil {
			return false
		}
		*out.(*[]types.Session) = append([]types.Session(nil), p.sessions...)
	case KeyMessages:
		if p.messages == nil {
			return false
		}
		m := make(map[int][]types.Message, len(p.messages))
		for id, msgs := range p.messages {
			m[id] = append([]types.Message(nil), msgs...)
		}
		*out.(*map[int][]types.Message) = m
	case KeyActiveID:
		if p.activeID == 0 {
			return false
		}
		*out.(*int) = p.activeID
	}
	return true
}

func (p *memPersist) Save(key string, value interface{}) {
	p.saves[key]++
	switch key {
	case KeySessions:
		p.sessions = append([]types.Session(nil), value.([]types.Session)...)
	case KeyMessages:
		m := make(map[int][]types.Message)
		for id, msgs := range value.(map[int][]types.Message) {
			m[id] = append([]types.Message(nil), msgs...)
		}
		p.messages = m
	case KeyActiveID:
		p.activeID = value.(int)
	}
}

// checkInvariant asserts the session list and message map correspond.
func checkInvariant(t *testing.T, s *Store) {
	t.Helper()
	snap := s.Snapshot()
	for _, sess := range snap.Sessions {
		_, ok := snap.Messages[sess.ID]
		assert.True(t, ok, "session %d has no message entry", sess.ID)
	}
	for id := range snap.Messages {
		found := false
		for _, sess := range snap.Sessions {
			if sess.ID == id {
				found = true
			}
		}
		assert.True(t, found, "message entry %d has no session", id)
	}
	if len(snap.Sessions) > 0 {
		found := false
		for _, sess := range snap.Sessions {
			if sess.ID == snap.ActiveID {
				found = true
			}
		}
		assert.True(t, found, "active id %d not in session list", snap.ActiveID)
	}
}

func TestNewStoreSeedsDefaults(t *testing.T) {
	s := NewStore(newMemPersist(), nil)

	sessions := s.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].ID)
	assert.Equal(t, "Chat with Aisha", sessions[0].Title)
	assert.Equal(t, 1, s.ActiveID())

	msgs, ok := s.Messages(1)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.SenderAssistant, msgs[0].Sender)
	assert.Equal(t, WelcomeText, msgs[0].Text)
}

func TestNewStoreRestoresPersisted(t *testing.T) {
	p := newMemPersist()
	p.sessions = []types.Session{
		{ID: 1, Title: "Chat with Aisha", Date: "2024-06-01"},
		{ID: 4, Title: "Renewal Inquiry", Date: "2024-05-28"},
	}
	p.messages = map[int][]types.Message{
		1: {{Sender: types.SenderAssistant, Text: WelcomeText}},
		4: {{Sender: types.SenderAssistant, Text: WelcomeText}, {Sender: types.SenderUser, Text: "renew my policy"}},
	}
	p.activeID = 4

	s := NewStore(p, nil)
	assert.Len(t, s.Sessions(), 2)
	assert.Equal(t, 4, s.ActiveID())
	msgs, _ := s.Messages(4)
	assert.Len(t, msgs, 2)
}

func TestNewStoreRepairsDivergence(t *testing.T) {
	p := newMemPersist()
	p.sessions = []types.Session{{ID: 2, Title: "New Chat", Date: "2024-06-01"}}
	p.messages = map[int][]types.Message{
		9: {{Sender: types.SenderUser, Text: "orphaned"}},
	}
	p.activeID = 9 // dangling pointer

	s := NewStore(p, nil)
	checkInvariant(t, s)
	assert.Equal(t, 2, s.ActiveID())
	_, ok := s.Messages(9)
	assert.False(t, ok)
	msgs, ok := s.Messages(2)
	require.True(t, ok)
	assert.Len(t, msgs, 1)
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	s := NewStore(newMemPersist(), nil)

	first := s.Create()
	second := s.Create()
	assert.Equal(t, 2, first.ID)
	assert.Equal(t, 3, second.ID)
	assert.Equal(t, DefaultTitle, second.Title)
	assert.Equal(t, second.ID, s.ActiveID())
	checkInvariant(t, s)

	// Always max(existing)+1 over whatever remains.
	s.Delete(second.ID)
	third := s.Create()
	assert.Equal(t, 3, third.ID)
}

func TestSelect(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create()

	assert.True(t, s.Select(1))
	assert.Equal(t, 1, s.ActiveID())

	// Unknown id is a no-op.
	assert.False(t, s.Select(99))
	assert.Equal(t, 1, s.ActiveID())

	assert.True(t, s.Select(created.ID))
	assert.Equal(t, created.ID, s.ActiveID())
}

func TestDeleteActiveFallsBackToFirst(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create() // active

	active, ok := s.Delete(created.ID)
	require.True(t, ok)
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, s.ActiveID())
	checkInvariant(t, s)
}

func TestDeleteLastCreatesReplacement(t *testing.T) {
	s := NewStore(newMemPersist(), nil)

	active, ok := s.Delete(1)
	require.True(t, ok)
	// With nothing left the replacement starts the numbering over.
	assert.Equal(t, 1, active)

	sessions := s.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, DefaultTitle, sessions[0].Title)
	msgs, _ := s.Messages(1)
	require.Len(t, msgs, 1)
	assert.Equal(t, WelcomeText, msgs[0].Text)
	checkInvariant(t, s)
}

func TestDeleteNonActiveKeepsPointer(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create()

	active, ok := s.Delete(1)
	require.True(t, ok)
	assert.Equal(t, created.ID, active)
	checkInvariant(t, s)
}

func TestDeleteUnknown(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	active, ok := s.Delete(42)
	assert.False(t, ok)
	assert.Equal(t, 1, active)
}

func TestInvariantUnderChurn(t *testing.T) {
	s := NewStore(newMemPersist(), nil)

	var ids []int
	for i := 0; i < 5; i++ {
		ids = append(ids, s.Create().ID)
		checkInvariant(t, s)
	}
	for _, id := range ids {
		s.Delete(id)
		checkInvariant(t, s)
	}
	s.Delete(1)
	checkInvariant(t, s)
}

func TestRenameIfDefault(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create()

	// First user message qualifies.
	s.Append(created.ID, types.Message{Sender: types.SenderUser, Text: "I need renewal help"})
	assert.True(t, s.RenameIfDefault(created.ID, "I need renewal help"))
	sess, _ := s.Get(created.ID)
	assert.Equal(t, "I need renewal help", sess.Title)

	// Second call is a no-op: the sentinel is gone.
	assert.False(t, s.RenameIfDefault(created.ID, "something else"))
	sess, _ = s.Get(created.ID)
	assert.Equal(t, "I need renewal help", sess.Title)
}

func TestRenameIfDefaultRequiresFirstUserMessage(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create()

	// No user message yet.
	assert.False(t, s.RenameIfDefault(created.ID, "too early"))

	s.Append(created.ID, types.Message{Sender: types.SenderUser, Text: "first"})
	s.Append(created.ID, types.Message{Sender: types.SenderAssistant, Text: "reply"})

	// Conversation moved on; too late to rename.
	assert.False(t, s.RenameIfDefault(created.ID, "too late"))
	sess, _ := s.Get(created.ID)
	assert.Equal(t, DefaultTitle, sess.Title)
}

func TestHistoryExcludesWelcome(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	created := s.Create()
	s.Append(created.ID, types.Message{Sender: types.SenderUser, Text: "Hello"})
	s.Append(created.ID, types.Message{Sender: types.SenderAssistant, Text: "Hi there"})

	history := s.History(created.ID)
	require.Len(t, history, 2)
	assert.Equal(t, types.ChatTurn{Role: "user", Content: "Hello"}, history[0])
	assert.Equal(t, types.ChatTurn{Role: "assistant", Content: "Hi there"}, history[1])
}

func TestWriteThroughOnEveryMutation(t *testing.T) {
	p := newMemPersist()
	s := NewStore(p, nil)

	before := p.saves[KeyMessages]
	s.Append(1, types.Message{Sender: types.SenderUser, Text: "hi"})
	assert.Equal(t, before+1, p.saves[KeyMessages])

	before = p.saves[KeyActiveID]
	created := s.Create()
	assert.Greater(t, p.saves[KeyActiveID], before)

	before = p.saves[KeySessions]
	s.Delete(created.ID)
	assert.Greater(t, p.saves[KeySessions], before)
}

func TestPersistedStateSurvivesRestart(t *testing.T) {
	p := newMemPersist()
	s := NewStore(p, nil)
	created := s.Create()
	s.Append(created.ID, types.Message{Sender: types.SenderUser, Text: "claim status?"})
	s.RenameIfDefault(created.ID, "claim status?")

	restarted := NewStore(p, nil)
	assert.Equal(t, s.Snapshot(), restarted.Snapshot())
}

func TestStats(t *testing.T) {
	s := NewStore(newMemPersist(), nil)
	s.Create()

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, s.ActiveID(), stats.ActiveID)
}
