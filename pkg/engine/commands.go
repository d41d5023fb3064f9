package engine

import "github.com/lantern-irc/lantern/pkg/protocol"

// submit builds a command, assigns a request id, and routes it onto
// the loop. Commands issued while disconnected queue out-of-band and
// replay on the next connection.
func (e *Engine) submit(method string, args map[string]any) *Request {
	cmd := protocol.NewCommand(method, args)
	cmd.ReqID = e.corr.next()
	req := newRequest(cmd.ReqID)
	if !e.post(func() { e.enqueue(cmd, req) }) {
		req.ch <- Result{ReqID: req.reqID, Err: ErrStopped}
	}
	return req
}

// Say sends a message or /command to a target. An empty target sends
// to the connection's console.
func (e *Engine) Say(cid int, to, msg string) *Request {
	return e.submit(protocol.MethodSay, map[string]any{"cid": cid, "to": to, "msg": msg})
}

// Join joins a channel, with an optional key.
func (e *Engine) Join(cid int, channel, key string) *Request {
	args := map[string]any{"cid": cid, "channel": channel}
	if key != "" {
		args["key"] = key
	}
	return e.submit(protocol.MethodJoin, args)
}

// Part leaves a channel.
func (e *Engine) Part(cid int, channel, msg string) *Request {
	return e.submit(protocol.MethodPart, map[string]any{"cid": cid, "channel": channel, "msg": msg})
}

// Kick removes a member from a channel.
func (e *Engine) Kick(cid int, channel, nick, msg string) *Request {
	return e.submit(protocol.MethodKick, map[string]any{"cid": cid, "chan": channel, "nick": nick, "msg": msg})
}

// Mode applies a mode string to a channel or nick.
func (e *Engine) Mode(cid int, channel, mode string) *Request {
	return e.submit(protocol.MethodMode, map[string]any{"cid": cid, "channel": channel, "mode": mode})
}

// Invite invites a nick to a channel.
func (e *Engine) Invite(cid int, channel, nick string) *Request {
	return e.submit(protocol.MethodInvite, map[string]any{"cid": cid, "channel": channel, "nick": nick})
}

// Topic sets a channel topic.
func (e *Engine) Topic(cid int, channel, topic string) *Request {
	return e.submit(protocol.MethodTopic, map[string]any{"cid": cid, "channel": channel, "topic": topic})
}

// Whois looks up a nick.
func (e *Engine) Whois(cid int, nick string) *Request {
	return e.submit(protocol.MethodWhois, map[string]any{"cid": cid, "nick": nick})
}

// Back clears away status on a connection.
func (e *Engine) Back(cid int) *Request {
	return e.submit(protocol.MethodBack, map[string]any{"cid": cid})
}

// ArchiveBuffer hides a buffer without deleting its history.
func (e *Engine) ArchiveBuffer(cid, bid int) *Request {
	return e.submit(protocol.MethodArchive, map[string]any{"cid": cid, "id": bid})
}

// UnarchiveBuffer restores an archived buffer.
func (e *Engine) UnarchiveBuffer(cid, bid int) *Request {
	return e.submit(protocol.MethodUnarchive, map[string]any{"cid": cid, "id": bid})
}

// DeleteBuffer deletes a buffer and its history server-side.
func (e *Engine) DeleteBuffer(cid, bid int) *Request {
	return e.submit(protocol.MethodDeleteBuf, map[string]any{"cid": cid, "id": bid})
}

// ServerSettings describes an IRC connection for AddServer and
// EditServer.
type ServerSettings struct {
	Hostname     string
	Port         int
	SSL          bool
	Netname      string
	Nick         string
	Realname     string
	ServerPass   string
	NickservPass string
	JoinCommands string
	Channels     string
}

func (s ServerSettings) args() map[string]any {
	ssl := "0"
	if s.SSL {
		ssl = "1"
	}
	return map[string]any{
		"hostname":     s.Hostname,
		"port":         s.Port,
		"ssl":          ssl,
		"netname":      s.Netname,
		"nickname":     s.Nick,
		"realname":     s.Realname,
		"server_pass":  s.ServerPass,
		"nspass":       s.NickservPass,
		"joincommands": s.JoinCommands,
		"channels":     s.Channels,
	}
}

// AddServer creates a new IRC connection on the account.
func (e *Engine) AddServer(s ServerSettings) *Request {
	return e.submit(protocol.MethodAddServer, s.args())
}

// EditServer updates an existing IRC connection.
func (e *Engine) EditServer(cid int, s ServerSettings) *Request {
	args := s.args()
	args["cid"] = cid
	return e.submit(protocol.MethodEditServer, args)
}

// DeleteServer removes an IRC connection and all its buffers.
func (e *Engine) DeleteServer(cid int) *Request {
	return e.submit(protocol.MethodDelServer, map[string]any{"cid": cid})
}

// DisconnectServer closes the upstream IRC connection with a quit
// message. The gateway connection stays up.
func (e *Engine) DisconnectServer(cid int, msg string) *Request {
	return e.submit(protocol.MethodDisconnect, map[string]any{"cid": cid, "msg": msg})
}

// ReconnectServer reconnects a disconnected IRC connection.
func (e *Engine) ReconnectServer(cid int) *Request {
	return e.submit(protocol.MethodReconnect, map[string]any{"cid": cid})
}

// ReorderConnections sets the display order of the account's
// connections.
func (e *Engine) ReorderConnections(cids []int) *Request {
	return e.submit(protocol.MethodReorder, map[string]any{"cids": cids})
}

// Ignore adds a hostmask to a connection's ignore list.
func (e *Engine) Ignore(cid int, mask string) *Request {
	return e.submit(protocol.MethodIgnore, map[string]any{"cid": cid, "mask": mask})
}

// Unignore removes a hostmask from a connection's ignore list.
func (e *Engine) Unignore(cid int, mask string) *Request {
	return e.submit(protocol.MethodUnignore, map[string]any{"cid": cid, "mask": mask})
}

// SetPrefs replaces the account preference blob.
func (e *Engine) SetPrefs(prefs string) *Request {
	return e.submit(protocol.MethodSetPrefs, map[string]any{"prefs": prefs})
}

// SetUserSettings updates account email, realname, highlight words,
// and auto-away.
func (e *Engine) SetUserSettings(email, realname, highlights string, autoaway bool) *Request {
	return e.submit(protocol.MethodUserSettings, map[string]any{
		"email":      email,
		"realname":   realname,
		"hwords":     highlights,
		"autoaway":   autoaway,
	})
}

// NickservHelpRegister asks services to walk through nick
// registration on a connection.
func (e *Engine) NickservHelpRegister(cid int) *Request {
	return e.submit(protocol.MethodNSHelpRegister, map[string]any{"cid": cid})
}

// SetNickservPass stores the services password for a connection.
func (e *Engine) SetNickservPass(cid int, password string) *Request {
	return e.submit(protocol.MethodSetNSPass, map[string]any{"cid": cid, "password": password})
}

// ResendVerifyEmail requests another verification email over the
// stream.
func (e *Engine) ResendVerifyEmail() *Request {
	return e.submit(protocol.MethodResendVerify, map[string]any{})
}
