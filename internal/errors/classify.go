package errors

// Classification refines command failures into the buckets callers
// can act on programmatically.
type Classification int

const (
	ClassNone Classification = iota
	ClassBadInput
	ClassPermission
	ClassRateLimited
	ClassConnectionLost
	ClassUnknown
)

// String returns the string representation of the classification.
func (c Classification) String() string {
	switch c {
	case ClassBadInput:
		return "BadInput"
	case ClassPermission:
		return "Permission"
	case ClassRateLimited:
		return "RateLimited"
	case ClassConnectionLost:
		return "ConnectionLost"
	case ClassUnknown:
		return "Unknown"
	default:
		return "None"
	}
}

// wireFailures maps the server's failure message strings onto
// classifications. Anything unlisted classifies as Unknown.
var wireFailures = map[string]Classification{
	"invalid_nick":        ClassBadInput,
	"invalid_name":        ClassBadInput,
	"bad_channel_key":     ClassBadInput,
	"not_a_channel":       ClassBadInput,
	"empty_message":       ClassBadInput,
	"invalid_email":       ClassBadInput,
	"banned":              ClassPermission,
	"not_registered":      ClassPermission,
	"op_required":         ClassPermission,
	"verify_email":        ClassPermission,
	"too_fast":            ClassRateLimited,
	"rate_limited":        ClassRateLimited,
	"flood":               ClassRateLimited,
	"auth":                ClassPermission,
	"invalid_session":     ClassPermission,
}

// ClassifyWireFailure maps a failure record's message to a
// classification.
func ClassifyWireFailure(message string) Classification {
	if c, ok := wireFailures[message]; ok {
		return c
	}
	return ClassUnknown
}

// CommandFailure builds the coded error for a wire failure message.
func CommandFailure(message string) *Error {
	var code string
	switch ClassifyWireFailure(message) {
	case ClassBadInput:
		code = CodeBadInput
	case ClassPermission:
		code = CodePermission
	case ClassRateLimited:
		code = CodeRateLimited
	default:
		code = CodeCommandUnknown
	}
	err := New(code)
	err.Detail = message
	return err
}

// IsAuthFailure reports whether a wire failure message means the
// session token itself was rejected. These are fatal to the session:
// the engine stops reconnecting and signals for re-authentication.
func IsAuthFailure(message string) bool {
	return message == "auth" || message == "invalid_session"
}
