package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Record errors.
var (
	ErrEmptyFrame   = errors.New("protocol: empty frame")
	ErrFrameTooLarge = errors.New("protocol: frame exceeds size limit")
	ErrMissingType  = errors.New("protocol: record has no type field")
)

// Record is a single decoded event from the gateway stream.
//
// The common addressing fields (cid, bid, eid, _reqid) are extracted
// eagerly; everything else stays in Data as raw JSON and is pulled out
// by the typed accessors below. A Record is immutable after decoding.
type Record struct {
	// Type is the taxonomy entry for Tag, or EventUnrecognized.
	Type EventType

	// Tag is the raw wire value of the "type" field.
	Tag string

	// CID is the connection id the record is scoped to, or 0.
	CID int

	// BID is the buffer id the record is scoped to, or 0.
	BID int

	// EID is the timestamp-derived event id, or 0 for non-buffer records.
	EID float64

	// ReqID is the echoed command correlation id, or 0.
	ReqID int64

	// Backlog marks records replayed by a backlog fetch rather than
	// delivered live.
	Backlog bool

	// Data holds every field of the record, keyed by name.
	Data map[string]json.RawMessage

	raw []byte
}

// DecodeRecord decodes one frame into a Record.
// Frames that are not a JSON object fail with an error; frames with an
// unknown type tag succeed with Type == EventUnrecognized.
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(data) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("protocol: decode record: %w", err)
	}

	r := &Record{Data: fields, raw: data}

	rawTag, ok := fields["type"]
	if !ok {
		return nil, ErrMissingType
	}
	if err := json.Unmarshal(rawTag, &r.Tag); err != nil {
		return nil, fmt.Errorf("protocol: decode type tag: %w", err)
	}
	r.Type = TypeForTag(r.Tag)

	r.CID = r.Int("cid")
	r.BID = r.Int("bid")
	r.EID = r.Float("eid")
	r.ReqID = int64(r.Float("_reqid"))
	r.Backlog = r.Bool("backlog")

	return r, nil
}

// Raw returns the original frame bytes.
func (r *Record) Raw() []byte {
	return r.raw
}

// Has reports whether the record carries the named field.
func (r *Record) Has(key string) bool {
	_, ok := r.Data[key]
	return ok
}

// Str returns the named field as a string, or "" if absent or not a
// string.
func (r *Record) Str(key string) string {
	raw, ok := r.Data[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Int returns the named field as an int, or 0.
func (r *Record) Int(key string) int {
	return int(r.Float(key))
}

// Float returns the named field as a float64, or 0.
// Event ids are timestamp-derived floating values, so this is the
// canonical accessor for eids.
func (r *Record) Float(key string) float64 {
	raw, ok := r.Data[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

// Bool returns the named field as a bool, or false.
func (r *Record) Bool(key string) bool {
	raw, ok := r.Data[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

// Unmarshal decodes the named field into v.
func (r *Record) Unmarshal(key string, v any) error {
	raw, ok := r.Data[key]
	if !ok {
		return fmt.Errorf("protocol: field %q not present", key)
	}
	return json.Unmarshal(raw, v)
}

// requiredFields lists the fields a record must carry before the
// dispatcher will apply it. Tags not listed have no hard requirements.
var requiredFields = map[EventType][]string{
	EventHeader:            {"idle_interval"},
	EventMakeServer:        {"cid", "hostname", "port"},
	EventConnectionDeleted: {"cid"},
	EventStatusChanged:     {"cid", "new_status"},
	EventMakeBuffer:        {"cid", "bid", "buffer_type"},
	EventDeleteBuffer:      {"cid", "bid"},
	EventBufferArchived:    {"bid"},
	EventBufferUnarchived:  {"bid"},
	EventRenameConversation: {"bid", "new_name"},
	EventBufferMsg:         {"cid", "bid", "eid"},
	EventHeartbeatEcho:     {"seenEids"},
	EventChannelInit:       {"cid", "bid", "chan"},
	EventChannelTopic:      {"cid", "bid"},
	EventChannelMode:       {"cid", "bid", "newmode"},
	EventJoin:              {"cid", "bid", "nick"},
	EventPart:              {"cid", "bid", "nick"},
	EventQuit:              {"cid", "bid", "nick"},
	EventNickChange:        {"cid", "bid", "newnick", "oldnick"},
	EventKick:              {"cid", "bid", "nick"},
	EventUserChannelMode:   {"cid", "bid", "nick"},
	EventAway:              {"cid", "bid", "nick"},
	EventOOBInclude:        {"buffers"},
	EventBacklogComplete:   {"bid"},
	EventSuccess:           {"_reqid"},
	EventFailure:           {"_reqid"},
}

// Validate checks the record carries every field its tag requires.
func (r *Record) Validate() error {
	for _, key := range requiredFields[r.Type] {
		if !r.Has(key) {
			return fmt.Errorf("protocol: %s record missing field %q", r.Tag, key)
		}
	}
	return nil
}
