package store

import (
	"sort"
	"sync"
)

// Connection status values as reported by status_changed records.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
)

// Server is one IRC connection owned by the account.
type Server struct {
	CID      int    `json:"cid"`
	Hostname string `json:"hostname"`
	Port     int    `json:"port"`
	SSL      bool   `json:"ssl"`
	Name     string `json:"name"`
	Nick     string `json:"nick"`
	Realname string `json:"realname"`
	Status   string `json:"status"`
	Lag      int64  `json:"lag"`
	Order    int    `json:"order"`
	Away     string `json:"away"`
}

// Servers is the connection store, keyed by cid.
type Servers struct {
	mu      sync.RWMutex
	servers map[int]*Server
}

// NewServers creates an empty connection store.
func NewServers() *Servers {
	return &Servers{servers: make(map[int]*Server)}
}

// Put inserts or replaces a server.
func (s *Servers) Put(srv Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := srv
	s.servers[srv.CID] = &cp
}

// Get returns a copy of the server with the given cid.
func (s *Servers) Get(cid int) (Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[cid]
	if !ok {
		return Server{}, false
	}
	return *srv, true
}

// Update applies fn to the server with the given cid, if present.
func (s *Servers) Update(cid int, fn func(*Server)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[cid]
	if !ok {
		return false
	}
	fn(srv)
	return true
}

// Delete removes a server. Cascading deletion of its buffers and users
// is the aggregate's job.
func (s *Servers) Delete(cid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.servers, cid)
}

// All returns copies of every server ordered by rank, then cid.
func (s *Servers) All() []Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Server, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, *srv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CID < out[j].CID
	})
	return out
}

// Reorder assigns ordering ranks by position in cids.
func (s *Servers) Reorder(cids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for rank, cid := range cids {
		if srv, ok := s.servers[cid]; ok {
			srv.Order = rank
		}
	}
}

// Len returns the number of servers.
func (s *Servers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.servers)
}

func (s *Servers) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = make(map[int]*Server)
}

func (s *Servers) snapshot() []Server {
	return s.All()
}

func (s *Servers) restore(servers []Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers = make(map[int]*Server, len(servers))
	for i := range servers {
		cp := servers[i]
		s.servers[cp.CID] = &cp
	}
}
