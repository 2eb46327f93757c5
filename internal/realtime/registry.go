package realtime

import "sync"

// Registry maps workspace ids to the sessions currently joined to them. It
// is the only shared mutable state of the collaboration core; every method
// is a short critical section with no I/O under the lock.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[*Session]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[*Session]struct{}),
		sessions: make(map[*Session]map[string]struct{}),
	}
}

// Join registers the session in the room. Joining a room twice is a no-op:
// membership sets are exact.
func (r *Registry) Join(roomID string, session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[*Session]struct{})
		r.rooms[roomID] = room
	}
	room[session] = struct{}{}

	joined, ok := r.sessions[session]
	if !ok {
		joined = make(map[string]struct{})
		r.sessions[session] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave removes the session from the room, reclaiming the room entry when
// it empties. Leaving a room the session never joined is a no-op.
func (r *Registry) Leave(roomID string, session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, session)
}

// LeaveAll removes the session from every room it joined. Called on
// disconnect; idempotent.
func (r *Registry) LeaveAll(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.sessions[session] {
		r.leaveLocked(roomID, session)
	}
	delete(r.sessions, session)
}

func (r *Registry) leaveLocked(roomID string, session *Session) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room, session)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}

	if joined, ok := r.sessions[session]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.sessions, session)
		}
	}
}

// MembersOf returns a snapshot of the sessions joined to the room. An
// unknown or empty room yields an empty slice.
func (r *Registry) MembersOf(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	members := make([]*Session, 0, len(room))
	for session := range room {
		members = append(members, session)
	}
	return members
}

// Rooms returns a snapshot of the room ids the session is joined to.
func (r *Registry) Rooms(session *Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.sessions[session]
	roomIDs := make([]string, 0, len(joined))
	for roomID := range joined {
		roomIDs = append(roomIDs, roomID)
	}
	return roomIDs
}
