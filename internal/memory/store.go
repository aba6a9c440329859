package memory

import "sync"

// Store keeps per-session conversation history in process memory.
// Sessions are independent: turns on different session ids never
// contend on the same lock. Trimming via MaxTurns is the only bound on
// growth; history does not survive the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*transcript
}

type transcript struct {
	mu       sync.Mutex
	messages []Message
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*transcript)}
}

// Append adds one message to the session's transcript, creating the
// session lazily on first use.
func (s *Store) Append(sessionID string, role Role, content string) {
	t := s.transcriptFor(sessionID)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, Message{Role: role, Content: content})
}

// History returns a snapshot copy of the session's transcript in
// insertion order. Unknown sessions read as empty.
func (s *Store) History(sessionID string) []Message {
	s.mu.RLock()
	t, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return nil
	}
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Trim retains at most maxTurns*2 most-recent messages for the session,
// dropping the oldest excess. Called once per completed turn.
func (s *Store) Trim(sessionID string, maxTurns int) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	s.mu.RLock()
	t, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	max := maxTurns * 2
	if len(t.messages) <= max {
		return
	}
	kept := make([]Message, max)
	copy(kept, t.messages[len(t.messages)-max:])
	t.messages = kept
}

func (s *Store) transcriptFor(sessionID string) *transcript {
	s.mu.RLock()
	t, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.sessions[sessionID]; ok {
		return t
	}
	t = &transcript{}
	s.sessions[sessionID] = t
	return t
}
