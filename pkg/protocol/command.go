package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command method names. Every user action sent over the socket uses one
// of these; the REST session calls live outside the stream entirely.
const (
	MethodAuth       = "auth"
	MethodSay        = "say"
	MethodHeartbeat  = "heartbeat"
	MethodJoin       = "join"
	MethodPart       = "part"
	MethodKick       = "kick"
	MethodMode       = "mode"
	MethodInvite     = "invite"
	MethodArchive    = "archive-buffer"
	MethodUnarchive  = "unarchive-buffer"
	MethodDeleteBuf  = "delete-buffer"
	MethodAddServer  = "add-server"
	MethodEditServer = "edit-server"
	MethodDelServer  = "delete-connection"
	MethodIgnore     = "ignore"
	MethodUnignore   = "unignore"
	MethodSetPrefs   = "set-prefs"
	MethodUserSettings = "user-settings"
	MethodNSHelpRegister = "ns-help-register"
	MethodSetNSPass  = "set-nspass"
	MethodWhois      = "whois"
	MethodTopic      = "topic"
	MethodBack       = "back"
	MethodDisconnect = "disconnect"
	MethodReconnect  = "reconnect"
	MethodReorder    = "reorder-connections"
	MethodBacklog    = "backlog"
	MethodResendVerify = "resend-verify-email"
)

// ErrNoMethod is returned when encoding a command without a method.
var ErrNoMethod = errors.New("protocol: command has no method")

// ErrCommandTooLarge is returned when an encoded command exceeds
// MaxCommandSize.
var ErrCommandTooLarge = errors.New("protocol: command exceeds size limit")

// Command is an outgoing request sent on the socket.
//
// Wire form is a flat JSON object: the Args merged with "_method" and
// "_reqid". Args must not use either reserved key.
type Command struct {
	Method string
	ReqID  int64
	Args   map[string]any
}

// NewCommand creates a command with the given method and arguments.
// The request id is assigned by the correlator just before sending.
func NewCommand(method string, args map[string]any) *Command {
	if args == nil {
		args = make(map[string]any)
	}
	return &Command{Method: method, Args: args}
}

// Encode serializes the command to its wire form.
func (c *Command) Encode() ([]byte, error) {
	if c.Method == "" {
		return nil, ErrNoMethod
	}
	obj := make(map[string]any, len(c.Args)+2)
	for k, v := range c.Args {
		obj[k] = v
	}
	obj["_method"] = c.Method
	obj["_reqid"] = c.ReqID
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s command: %w", c.Method, err)
	}
	if len(data) > MaxCommandSize {
		return nil, ErrCommandTooLarge
	}
	return data, nil
}

// DecodeCommand parses a wire-form command. Used by tests and by fakes
// standing in for the gateway.
func DecodeCommand(data []byte) (*Command, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("protocol: decode command: %w", err)
	}
	method, _ := obj["_method"].(string)
	if method == "" {
		return nil, ErrNoMethod
	}
	var reqid int64
	if f, ok := obj["_reqid"].(float64); ok {
		reqid = int64(f)
	}
	delete(obj, "_method")
	delete(obj, "_reqid")
	return &Command{Method: method, ReqID: reqid, Args: obj}, nil
}
