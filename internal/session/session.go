// Package session keeps chat history and long-term coach memories.
//
// The in-memory copy is authoritative; every mutation is mirrored to the
// key-value store through the async write queue. Within one session,
// messages keep submission order.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dailywell-ai/dailywell/internal/store"
)

// Message is one turn in a chat session.
type Message struct {
	ID   string    `json:"id"`
	Role string    `json:"role"` // "user" or "coach"
	Text string    `json:"text"`
	Tier string    `json:"tier,omitempty"` // backend that produced a coach turn
	At   time.Time `json:"at"`
}

// Session is an ordered chat transcript.
type Session struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"type"`
	Messages []Message `json:"messages"`
}

// Persister receives fire-and-forget mirror writes.
type Persister interface {
	Put(key, value string)
}

// Store manages sessions and memories for all users.
type Store struct {
	mu       sync.Mutex
	kv       store.KV
	sink     Persister
	sessions map[string]*Session
	memories map[string][]string
	log      zerolog.Logger
}

// NewStore creates a session store backed by kv for reads and sink for writes.
func NewStore(kv store.KV, sink Persister, log zerolog.Logger) *Store {
	return &Store{
		kv:       kv,
		sink:     sink,
		sessions: make(map[string]*Session),
		memories: make(map[string][]string),
		log:      log.With().Str("component", "session").Logger(),
	}
}

// NewMessage builds a message with a fresh ID.
func NewMessage(role, text, tier string) Message {
	return Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		Tier: tier,
		At:   time.Now(),
	}
}

// Append adds a message to a session, creating the session if needed.
func (s *Store) Append(userID, sessionID, sessionType string, msg Message) {
	s.mu.Lock()
	sess := s.loadLocked(userID, sessionID, sessionType)
	sess.Messages = append(sess.Messages, msg)
	raw, err := json.Marshal(sess)
	s.mu.Unlock()

	if err != nil {
		s.log.Warn().Err(err).Msg("session marshal failed")
		return
	}
	s.sink.Put(sessionKey(userID, sessionID), string(raw))
}

// History returns up to limit most recent messages, oldest first.
func (s *Store) History(userID, sessionID string, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.loadLocked(userID, sessionID, "")
	msgs := sess.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Remember stores a long-term memory fact for the user.
func (s *Store) Remember(userID, fact string) {
	s.mu.Lock()
	facts := append(s.loadMemoriesLocked(userID), fact)
	s.memories[userID] = facts
	raw, err := json.Marshal(facts)
	s.mu.Unlock()

	if err != nil {
		return
	}
	s.sink.Put(memoriesKey(userID), string(raw))
}

// Memories returns the user's long-term facts.
func (s *Store) Memories(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.loadMemoriesLocked(userID)
	out := make([]string, len(facts))
	copy(out, facts)
	return out
}

// loadLocked returns the cached session, restoring from the KV mirror once.
func (s *Store) loadLocked(userID, sessionID, sessionType string) *Session {
	key := sessionKey(userID, sessionID)
	if sess, ok := s.sessions[key]; ok {
		return sess
	}

	sess := &Session{ID: sessionID, UserID: userID, Type: sessionType}
	if raw, err := s.kv.Get(key); err == nil {
		var restored Session
		if json.Unmarshal([]byte(raw), &restored) == nil {
			sess = &restored
		}
	}
	s.sessions[key] = sess
	return sess
}

func (s *Store) loadMemoriesLocked(userID string) []string {
	if facts, ok := s.memories[userID]; ok {
		return facts
	}

	var facts []string
	if raw, err := s.kv.Get(memoriesKey(userID)); err == nil {
		_ = json.Unmarshal([]byte(raw), &facts)
	}
	s.memories[userID] = facts
	return facts
}

func sessionKey(userID, sessionID string) string {
	return "session:" + userID + ":" + sessionID
}

func memoriesKey(userID string) string {
	return "memories:" + userID
}
