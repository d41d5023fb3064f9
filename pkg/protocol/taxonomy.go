package protocol

// EventType identifies the kind of state change a record describes.
// The set is closed: tags the client does not know map to
// EventUnrecognized and are ignored by the dispatcher.
type EventType int

const (
	EventUnrecognized EventType = iota

	// Stream lifecycle
	EventHeader
	EventIdle
	EventOOBInclude
	EventOOBSkipped
	EventBacklogStarts
	EventBacklogComplete

	// Session / account
	EventUserInfo
	EventSelfDetails
	EventSetIgnores
	EventAcceptList
	EventGlobalMsg

	// Connections
	EventMakeServer
	EventConnectionDeleted
	EventStatusChanged
	EventConnectionLag
	EventReorderConnections
	EventServerMap

	// Buffers
	EventMakeBuffer
	EventDeleteBuffer
	EventBufferArchived
	EventBufferUnarchived
	EventRenameConversation
	EventOpenBuffer

	// Messages
	EventBufferMsg
	EventHeartbeatEcho

	// Channels
	EventChannelInit
	EventChannelTopic
	EventChannelMode
	EventChannelTimestamp
	EventBadChannelKey
	EventLinkChannel

	// Members
	EventJoin
	EventPart
	EventQuit
	EventNickChange
	EventKick
	EventMemberUpdates
	EventUserChannelMode
	EventUserMode
	EventAway
	EventSelfBack
	EventInvalidNick

	// Query responses
	EventBanList
	EventWhoList
	EventWhois
	EventNamesList
	EventListResponseFetching
	EventListResponse
	EventListResponseTooManyChannels

	// Command outcomes
	EventSuccess
	EventFailure
	EventAlert
)

// wireTags maps server type tags to event types. Several message-like
// tags collapse onto EventBufferMsg: they differ only in rendering.
var wireTags = map[string]EventType{
	"header":           EventHeader,
	"idle":             EventIdle,
	"oob_include":      EventOOBInclude,
	"oob_skipped":      EventOOBSkipped,
	"backlog_starts":   EventBacklogStarts,
	"backlog_complete": EventBacklogComplete,

	"stat_user":             EventUserInfo,
	"self_details":          EventSelfDetails,
	"set_ignores":           EventSetIgnores,
	"accept_list":           EventAcceptList,
	"global_system_message": EventGlobalMsg,

	"makeserver":          EventMakeServer,
	"connection_deleted":  EventConnectionDeleted,
	"status_changed":      EventStatusChanged,
	"lag":                 EventConnectionLag,
	"reorder_connections": EventReorderConnections,
	"server_map":          EventServerMap,

	"makebuffer":          EventMakeBuffer,
	"delete_buffer":       EventDeleteBuffer,
	"buffer_archived":     EventBufferArchived,
	"buffer_unarchived":   EventBufferUnarchived,
	"rename_conversation": EventRenameConversation,
	"open_buffer":         EventOpenBuffer,

	"buffer_msg":     EventBufferMsg,
	"buffer_me_msg":  EventBufferMsg,
	"notice":         EventBufferMsg,
	"channel_invite": EventBufferMsg,
	"motd_response":  EventBufferMsg,
	"wallops":        EventBufferMsg,

	"heartbeat_echo": EventHeartbeatEcho,

	"channel_init":      EventChannelInit,
	"channel_topic":     EventChannelTopic,
	"channel_mode":      EventChannelMode,
	"channel_mode_is":   EventChannelMode,
	"channel_timestamp": EventChannelTimestamp,
	"bad_channel_key":   EventBadChannelKey,
	"link_channel":      EventLinkChannel,

	"joined_channel":    EventJoin,
	"you_joined_channel": EventJoin,
	"parted_channel":    EventPart,
	"you_parted_channel": EventPart,
	"quit":              EventQuit,
	"nickchange":        EventNickChange,
	"you_nickchange":    EventNickChange,
	"kicked_channel":    EventKick,
	"you_kicked_channel": EventKick,
	"member_updates":    EventMemberUpdates,
	"user_channel_mode": EventUserChannelMode,
	"user_mode":         EventUserMode,
	"away":              EventAway,
	"self_away":         EventAway,
	"self_back":         EventSelfBack,
	"invalid_nick":      EventInvalidNick,

	"ban_list":                    EventBanList,
	"who_response":                EventWhoList,
	"whois_response":              EventWhois,
	"names_reply":                 EventNamesList,
	"list_response_fetching":      EventListResponseFetching,
	"list_response":               EventListResponse,
	"list_response_too_many_channels": EventListResponseTooManyChannels,

	"success": EventSuccess,
	"failure": EventFailure,
	"alert":   EventAlert,
}

// TypeForTag returns the event type for a wire tag.
// Unknown tags return EventUnrecognized.
func TypeForTag(tag string) EventType {
	if et, ok := wireTags[tag]; ok {
		return et
	}
	return EventUnrecognized
}

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventHeader:
		return "Header"
	case EventIdle:
		return "Idle"
	case EventOOBInclude:
		return "OOBInclude"
	case EventOOBSkipped:
		return "OOBSkipped"
	case EventBacklogStarts:
		return "BacklogStarts"
	case EventBacklogComplete:
		return "BacklogComplete"
	case EventUserInfo:
		return "UserInfo"
	case EventSelfDetails:
		return "SelfDetails"
	case EventSetIgnores:
		return "SetIgnores"
	case EventAcceptList:
		return "AcceptList"
	case EventGlobalMsg:
		return "GlobalMsg"
	case EventMakeServer:
		return "MakeServer"
	case EventConnectionDeleted:
		return "ConnectionDeleted"
	case EventStatusChanged:
		return "StatusChanged"
	case EventConnectionLag:
		return "ConnectionLag"
	case EventReorderConnections:
		return "ReorderConnections"
	case EventServerMap:
		return "ServerMap"
	case EventMakeBuffer:
		return "MakeBuffer"
	case EventDeleteBuffer:
		return "DeleteBuffer"
	case EventBufferArchived:
		return "BufferArchived"
	case EventBufferUnarchived:
		return "BufferUnarchived"
	case EventRenameConversation:
		return "RenameConversation"
	case EventOpenBuffer:
		return "OpenBuffer"
	case EventBufferMsg:
		return "BufferMsg"
	case EventHeartbeatEcho:
		return "HeartbeatEcho"
	case EventChannelInit:
		return "ChannelInit"
	case EventChannelTopic:
		return "ChannelTopic"
	case EventChannelMode:
		return "ChannelMode"
	case EventChannelTimestamp:
		return "ChannelTimestamp"
	case EventBadChannelKey:
		return "BadChannelKey"
	case EventLinkChannel:
		return "LinkChannel"
	case EventJoin:
		return "Join"
	case EventPart:
		return "Part"
	case EventQuit:
		return "Quit"
	case EventNickChange:
		return "NickChange"
	case EventKick:
		return "Kick"
	case EventMemberUpdates:
		return "MemberUpdates"
	case EventUserChannelMode:
		return "UserChannelMode"
	case EventUserMode:
		return "UserMode"
	case EventAway:
		return "Away"
	case EventSelfBack:
		return "SelfBack"
	case EventInvalidNick:
		return "InvalidNick"
	case EventBanList:
		return "BanList"
	case EventWhoList:
		return "WhoList"
	case EventWhois:
		return "Whois"
	case EventNamesList:
		return "NamesList"
	case EventListResponseFetching:
		return "ListResponseFetching"
	case EventListResponse:
		return "ListResponse"
	case EventListResponseTooManyChannels:
		return "ListResponseTooManyChannels"
	case EventSuccess:
		return "Success"
	case EventFailure:
		return "Failure"
	case EventAlert:
		return "Alert"
	default:
		return "Unrecognized"
	}
}
