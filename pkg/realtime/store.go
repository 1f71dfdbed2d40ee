package realtime

import (
	"context"
	"sync"
	"time"
)

// Room holds state and a broadcaster for one room.
type Room[T any] struct {
	ID    string
	State T
	hub   *Broadcaster
}

type loop struct {
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}
}

// RoomStore manages rooms, their broadcasters and at most one timing loop per
// room.
type RoomStore[T any] struct {
	mu    sync.RWMutex
	rooms map[string]*Room[T]
	loops map[string]*loop
}

// NewRoomStore creates an empty room store.
func NewRoomStore[T any]() *RoomStore[T] {
	return &RoomStore[T]{
		rooms: make(map[string]*Room[T]),
		loops: make(map[string]*loop),
	}
}

// Create adds a room with the given id and state, and a new Broadcaster.
func (s *RoomStore[T]) Create(id string, state T) *Room[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Room[T]{ID: id, State: state, hub: NewBroadcaster()}
	s.rooms[id] = r
	return r
}

// Get returns the room by ID if it exists.
func (s *RoomStore[T]) Get(id string) (*Room[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Delete stops the room's loop, closes its subscribers and forgets it.
func (s *RoomStore[T]) Delete(id string) bool {
	s.StopLoop(id)
	s.mu.Lock()
	r, ok := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if ok {
		r.hub.Close()
	}
	return ok
}

// Each calls fn for a snapshot of all rooms.
func (s *RoomStore[T]) Each(fn func(r *Room[T])) {
	s.mu.RLock()
	rooms := make([]*Room[T], 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()
	for _, r := range rooms {
		fn(r)
	}
}

// Len returns the number of rooms.
func (s *RoomStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Publish notifies subscribers of the room. Unknown rooms are ignored.
func (s *RoomStore[T]) Publish(id string, events ...Event) {
	if hub, ok := s.Broadcaster(id); ok {
		hub.Publish(events...)
	}
}

// Broadcaster returns the broadcaster for an existing room.
func (s *RoomStore[T]) Broadcaster(id string) (*Broadcaster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	return r.hub, true
}

// TickFunc is called by RunLoop to determine the next wake time and events to publish.
// stop true means exit the loop.
type TickFunc[T any] func(state T, now time.Time) (next time.Time, events []Event, stop bool)

// RunLoop starts a timing loop for the room and reports whether it did. If a
// loop already exists for id, or the room is unknown, nothing is started.
func (s *RoomStore[T]) RunLoop(id string, tick TickFunc[T]) bool {
	s.mu.Lock()
	if _, ok := s.rooms[id]; !ok {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.loops[id]; ok {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.loops[id] = l
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			if s.loops[id] == l {
				delete(s.loops, id)
			}
			s.mu.Unlock()
			cancel()
			close(l.done)
		}()

		for {
			if ctx.Err() != nil {
				return
			}
			room, ok := s.Get(id)
			if !ok {
				return
			}
			next, events, stop := tick(room.State, time.Now().UTC())
			if len(events) > 0 {
				room.hub.Publish(events...)
			}
			if stop {
				return
			}
			wait := time.Until(next)
			if wait < 0 {
				wait = 0
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			case <-l.wake:
				timer.Stop()
			}
		}
	}()
	return true
}

// StopLoop cancels the room's loop and waits for it to exit, so no tick of
// the old loop can run once it returns. It must not be called from inside a
// TickFunc.
func (s *RoomStore[T]) StopLoop(id string) {
	s.mu.Lock()
	l, ok := s.loops[id]
	delete(s.loops, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	l.cancel()
	<-l.done
}

// Running reports whether a loop is active for id.
func (s *RoomStore[T]) Running(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loops[id]
	return ok
}

// Wake unblocks the room's loop so it recomputes immediately.
func (s *RoomStore[T]) Wake(id string) {
	s.mu.RLock()
	l, ok := s.loops[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
