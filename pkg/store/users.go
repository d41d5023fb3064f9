package store

import (
	"sort"
	"strings"
	"sync"
)

// User is a channel member. Identity is (cid, bid, nick); nicks are
// compared case-insensitively per IRC convention.
type User struct {
	CID      int    `json:"cid"`
	BID      int    `json:"bid"`
	Nick     string `json:"nick"`
	Hostmask string `json:"hostmask"`
	Mode     string `json:"mode"`
	Away     bool   `json:"away"`
	AwayMsg  string `json:"away_msg"`
}

// Users is the channel-member store, keyed by buffer then nick.
type Users struct {
	mu    sync.RWMutex
	users map[int]map[string]*User
}

// NewUsers creates an empty member store.
func NewUsers() *Users {
	return &Users{users: make(map[int]map[string]*User)}
}

func nickKey(nick string) string {
	return strings.ToLower(nick)
}

// Put inserts or replaces a member.
func (u *Users) Put(usr User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	byNick, ok := u.users[usr.BID]
	if !ok {
		byNick = make(map[string]*User)
		u.users[usr.BID] = byNick
	}
	cp := usr
	byNick[nickKey(usr.Nick)] = &cp
}

// Get returns a copy of the member with the given nick in the buffer.
func (u *Users) Get(bid int, nick string) (User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.users[bid][nickKey(nick)]
	if !ok {
		return User{}, false
	}
	return *usr, true
}

// Update applies fn to the member, if present.
func (u *Users) Update(bid int, nick string, fn func(*User)) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr, ok := u.users[bid][nickKey(nick)]
	if !ok {
		return false
	}
	fn(usr)
	return true
}

// Rename moves a member to a new nick, keeping its other attributes.
func (u *Users) Rename(bid int, oldNick, newNick string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	byNick, ok := u.users[bid]
	if !ok {
		return false
	}
	usr, ok := byNick[nickKey(oldNick)]
	if !ok {
		return false
	}
	delete(byNick, nickKey(oldNick))
	usr.Nick = newNick
	byNick[nickKey(newNick)] = usr
	return true
}

// Remove deletes a member from a buffer.
func (u *Users) Remove(bid int, nick string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.users[bid], nickKey(nick))
}

// RemoveBuffer deletes every member of a buffer.
func (u *Users) RemoveBuffer(bid int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.users, bid)
}

// RemoveConnection deletes every member on a connection.
func (u *Users) RemoveConnection(cid int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for bid, byNick := range u.users {
		for key, usr := range byNick {
			if usr.CID == cid {
				delete(byNick, key)
			}
		}
		if len(byNick) == 0 {
			delete(u.users, bid)
		}
	}
}

// ByBuffer returns copies of a buffer's members ordered by nick.
func (u *Users) ByBuffer(bid int) []User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	byNick := u.users[bid]
	out := make([]User, 0, len(byNick))
	for _, usr := range byNick {
		out = append(out, *usr)
	}
	sort.Slice(out, func(i, j int) bool {
		return nickKey(out[i].Nick) < nickKey(out[j].Nick)
	})
	return out
}

// Len returns the total number of members across all buffers.
func (u *Users) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	n := 0
	for _, byNick := range u.users {
		n += len(byNick)
	}
	return n
}

func (u *Users) reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = make(map[int]map[string]*User)
}

func (u *Users) snapshot() []User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []User
	for _, byNick := range u.users {
		for _, usr := range byNick {
			out = append(out, *usr)
		}
	}
	return out
}

func (u *Users) restore(users []User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = make(map[int]map[string]*User)
	for i := range users {
		cp := users[i]
		byNick, ok := u.users[cp.BID]
		if !ok {
			byNick = make(map[string]*User)
			u.users[cp.BID] = byNick
		}
		byNick[nickKey(cp.Nick)] = &cp
	}
}
