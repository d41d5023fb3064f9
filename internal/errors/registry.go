package errors

// template is a registered error definition.
type template struct {
	Category       Category
	Message        string
	Detail         string
	Classification Classification
}

// Stable error codes. The numbering groups by category: E1xx
// transport, E2xx protocol, E3xx command, E4xx session.
const (
	CodeConnectFailed   = "E101"
	CodeSocketClosed    = "E102"
	CodeConnectionLost  = "E103"
	CodeIdleTimeout     = "E104"
	CodeUnreachable     = "E105"

	CodeMalformedRecord = "E201"
	CodeFrameTooLarge   = "E202"

	CodeBadInput        = "E301"
	CodePermission      = "E302"
	CodeRateLimited     = "E303"
	CodeCommandUnknown  = "E304"

	CodeAuthRequired    = "E401"
	CodeSessionExpired  = "E402"
	CodeLoginFailed     = "E403"
)

var registry = map[string]template{
	CodeConnectFailed: {
		Category: CategoryTransport,
		Message:  "could not connect to the gateway",
		Detail:   "The socket dial failed. The engine retries with exponential backoff.",
	},
	CodeSocketClosed: {
		Category: CategoryTransport,
		Message:  "the gateway closed the socket",
	},
	CodeConnectionLost: {
		Category: CategoryTransport,
		Message:  "connection lost",
		Detail:   "The socket dropped with work outstanding. Pending requests fail with this code; the out-of-band queue is preserved.",
	},
	CodeIdleTimeout: {
		Category: CategoryTransport,
		Message:  "no traffic within the idle window",
		Detail:   "The server stopped sending idle markers. The engine forces a reconnect cycle.",
	},
	CodeUnreachable: {
		Category: CategoryTransport,
		Message:  "network unreachable",
		Detail:   "The reachability monitor reports no route to the gateway; connect attempts are deferred.",
	},

	CodeMalformedRecord: {
		Category: CategoryProtocol,
		Message:  "malformed record dropped",
	},
	CodeFrameTooLarge: {
		Category: CategoryProtocol,
		Message:  "frame exceeds size limit",
	},

	CodeBadInput: {
		Category:       CategoryCommand,
		Message:        "the server rejected the command input",
		Classification: ClassBadInput,
	},
	CodePermission: {
		Category:       CategoryCommand,
		Message:        "permission denied",
		Classification: ClassPermission,
	},
	CodeRateLimited: {
		Category:       CategoryCommand,
		Message:        "rate limited",
		Detail:         "The server is throttling this session. Retry after a pause.",
		Classification: ClassRateLimited,
	},
	CodeCommandUnknown: {
		Category:       CategoryCommand,
		Message:        "command failed",
		Classification: ClassUnknown,
	},

	CodeAuthRequired: {
		Category: CategorySession,
		Message:  "re-authentication required",
		Detail:   "The session token was rejected. Auto-reconnect is suppressed until a fresh login.",
	},
	CodeSessionExpired: {
		Category: CategorySession,
		Message:  "session expired",
	},
	CodeLoginFailed: {
		Category: CategorySession,
		Message:  "login failed",
	},
}
