package hub

import (
	"sync"

	"pairchat/internal/event"
)

// Registry tracks which live sessions are subscribed to which channels. It
// is rebuilt from live connections only and is never a source of truth for
// message state.
type Registry struct {
	mu sync.RWMutex

	// channel key -> session id -> session
	channels map[event.ChannelKey]map[string]*Session
	// session id -> joined keys, for cleanup on disconnect
	memberships map[string]map[event.ChannelKey]struct{}
	// user id -> device id -> session, for single-session-per-device
	devices map[string]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		channels:    make(map[event.ChannelKey]map[string]*Session),
		memberships: make(map[string]map[event.ChannelKey]struct{}),
		devices:     make(map[string]map[string]*Session),
	}
}

// Add registers a session and auto-subscribes it to its personal channel.
// An existing session for the same user/device is closed and replaced.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.devices[s.UserID] == nil {
		r.devices[s.UserID] = make(map[string]*Session)
	}

	if old, ok := r.devices[s.UserID][s.DeviceID]; ok {
		// The old session's deferred Remove is a no-op because the session
		// ids differ; see Remove.
		old.CloseWithReason(4000, "session_replaced")
		r.unsubscribeAllLocked(old)
	}

	r.devices[s.UserID][s.DeviceID] = s
	r.joinLocked(s, event.UserChannel(s.UserID))
}

// Remove drops a session and all its channel memberships. A late Remove from
// a replaced session must not detach its successor.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if devices, ok := r.devices[s.UserID]; ok {
		if current, ok := devices[s.DeviceID]; ok && current.ID == s.ID {
			delete(devices, s.DeviceID)
			if len(devices) == 0 {
				delete(r.devices, s.UserID)
			}
		}
	}
	r.unsubscribeAllLocked(s)
}

func (r *Registry) Join(s *Session, key event.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinLocked(s, key)
}

func (r *Registry) Leave(s *Session, key event.ChannelKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.channels[key]; ok {
		if current, ok := subs[s.ID]; ok && current == s {
			delete(subs, s.ID)
			if len(subs) == 0 {
				delete(r.channels, key)
			}
		}
	}
	if keys, ok := r.memberships[s.ID]; ok {
		delete(keys, key)
	}
}

// Subscribers returns the sessions subscribed to any of the given channels,
// deduplicated by session id, so an event published to both the conversation
// channel and a personal channel reaches each session once.
func (r *Registry) Subscribers(keys ...event.ChannelKey) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []*Session
	for _, key := range keys {
		for id, s := range r.channels[key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, devices := range r.devices {
		for _, s := range devices {
			s.Close()
		}
	}
}

func (r *Registry) joinLocked(s *Session, key event.ChannelKey) {
	if r.channels[key] == nil {
		r.channels[key] = make(map[string]*Session)
	}
	r.channels[key][s.ID] = s

	if r.memberships[s.ID] == nil {
		r.memberships[s.ID] = make(map[event.ChannelKey]struct{})
	}
	r.memberships[s.ID][key] = struct{}{}
}

func (r *Registry) unsubscribeAllLocked(s *Session) {
	for key := range r.memberships[s.ID] {
		if subs, ok := r.channels[key]; ok {
			delete(subs, s.ID)
			if len(subs) == 0 {
				delete(r.channels, key)
			}
		}
	}
	delete(r.memberships, s.ID)
}
