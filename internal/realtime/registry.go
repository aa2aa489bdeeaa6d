package realtime

import "sync"

// Registry maps authenticated identities to their live channels. A user may
// hold several concurrent connections (tabs, devices); a user with none is
// simply absent. It also tracks per-task watch rooms for clients that
// declared interest in one task's live-update stream.
//
// Connect/disconnect churn races against dispatch reads, so lookups return
// copied snapshots: a connection removed before the snapshot was taken is
// never handed out, and one registered mid-dispatch may or may not see that
// particular event.
type Registry struct {
	mu          sync.RWMutex
	conns       map[string]*Connection            // connection id -> connection
	userConns   map[uint64]map[string]*Connection // user id -> connection id -> connection
	watchers    map[uint64]map[string]*Connection // task id -> connection id -> connection
	connWatches map[string]map[uint64]struct{}    // connection id -> watched task ids
}

// NewRegistry constructs an initialized Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:       make(map[string]*Connection),
		userConns:   make(map[uint64]map[string]*Connection),
		watchers:    make(map[uint64]map[string]*Connection),
		connWatches: make(map[string]map[uint64]struct{}),
	}
}

// Register adds a connection to its user's delivery set and starts its write
// loop.
func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	byUser := r.userConns[conn.UserID]
	if byUser == nil {
		byUser = make(map[string]*Connection)
		r.userConns[conn.UserID] = byUser
	}
	byUser[conn.ID] = conn
	r.connWatches[conn.ID] = make(map[uint64]struct{})
	r.mu.Unlock()

	conn.Start()
}

// Unregister removes a connection if it is still tracked. Removal happens
// under the lock before any later ChannelsFor snapshot, so a disconnected
// channel is never pushed to by a dispatch that starts afterwards.
func (r *Registry) Unregister(conn *Connection) {
	r.mu.Lock()
	r.unregisterLocked(conn.ID)
	r.mu.Unlock()
}

// ChannelsFor returns a snapshot of the user's live channels.
func (r *Registry) ChannelsFor(userID uint64) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := r.userConns[userID]
	if len(byUser) == 0 {
		return nil
	}
	snapshot := make([]*Connection, 0, len(byUser))
	for _, conn := range byUser {
		snapshot = append(snapshot, conn)
	}
	return snapshot
}

// Watch subscribes the connection to a task's live-update stream.
func (r *Registry) Watch(taskID uint64, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return
	}

	room := r.watchers[taskID]
	if room == nil {
		room = make(map[string]*Connection)
		r.watchers[taskID] = room
	}
	room[conn.ID] = conn
	r.connWatches[conn.ID][taskID] = struct{}{}
}

// Unwatch removes the connection from a task's live-update stream.
func (r *Registry) Unwatch(taskID uint64, conn *Connection) {
	r.mu.Lock()
	r.unwatchLocked(taskID, conn.ID)
	r.mu.Unlock()
}

// BroadcastTask writes payload to every channel watching the task and
// returns how many sends were accepted. Push failures are not retried.
func (r *Registry) BroadcastTask(taskID uint64, payload []byte) int {
	r.mu.RLock()
	room := r.watchers[taskID]
	snapshot := make([]*Connection, 0, len(room))
	for _, conn := range room {
		snapshot = append(snapshot, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range snapshot {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.userConns = make(map[uint64]map[string]*Connection)
	r.watchers = make(map[uint64]map[string]*Connection)
	r.connWatches = make(map[string]map[uint64]struct{})
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "registry shutdown")
	}
}

func (r *Registry) unregisterLocked(connID string) {
	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	if byUser, ok := r.userConns[conn.UserID]; ok {
		delete(byUser, connID)
		if len(byUser) == 0 {
			delete(r.userConns, conn.UserID)
		}
	}

	for taskID := range r.connWatches[connID] {
		r.unwatchLocked(taskID, connID)
	}
	delete(r.connWatches, connID)
}

func (r *Registry) unwatchLocked(taskID uint64, connID string) {
	room := r.watchers[taskID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.watchers, taskID)
	}
	if watches, ok := r.connWatches[connID]; ok {
		delete(watches, taskID)
	}
}
