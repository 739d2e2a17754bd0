package store

import "sort"

// AppendExchange appends a user turn and the assistant turn answering it
// to a session as one atomic pair, creating the session on first use.
// Callers only append after generation succeeded: a failed generation
// must leave the session exactly as it was.
func (s *Store) AppendExchange(sessionID, videoID string, user, assistant Turn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		s.evictSessionsLocked()
		sess = &ChatSession{
			ID:        sessionID,
			VideoID:   videoID,
			CreatedAt: s.clock.Now(),
		}
		s.sessions[sessionID] = sess
	}
	sess.Turns = append(sess.Turns, user, assistant)
}

// GetSession returns a snapshot of a session, or ErrNotFound.
func (s *Store) GetSession(sessionID string) (ChatSession, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ChatSession{}, ErrNotFound
	}
	out := *sess
	out.Turns = append([]Turn(nil), sess.Turns...)
	return out, nil
}

// History returns a copy of a session's turns in insertion order. An
// unknown session yields an empty history, not an error.
func (s *Store) History(sessionID string) []Turn {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return []Turn{}
	}
	return append([]Turn(nil), sess.Turns...)
}

// SessionCount reports the number of active chat sessions.
func (s *Store) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// DeleteSessions removes every session bound to a video and reports how
// many were removed.
func (s *Store) DeleteSessions(videoID string) int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.VideoID == videoID {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// evictSessionsLocked drops the oldest sessions until one slot is free.
func (s *Store) evictSessionsLocked() {
	if len(s.sessions) < s.maxSessions {
		return
	}

	type victim struct {
		id        string
		createdAt int64
	}
	candidates := make([]victim, 0, len(s.sessions))
	for id, sess := range s.sessions {
		candidates = append(candidates, victim{id, sess.CreatedAt.UnixNano()})
	}
	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].createdAt < candidates[k].createdAt
	})

	for _, v := range candidates {
		if len(s.sessions) < s.maxSessions {
			break
		}
		delete(s.sessions, v.id)
	}
}
