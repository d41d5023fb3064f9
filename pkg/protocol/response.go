package protocol

// Response is the correlated outcome of a command, extracted from a
// success or failure record.
type Response struct {
	ReqID   int64
	Success bool

	// Message is the server's failure reason ("invalid_nick",
	// "not_registered", "too_fast", ...). Empty on success.
	Message string

	// Record is the full record the response was extracted from, so
	// side-channel data can be merged into the stores.
	Record *Record
}

// ResponseFromRecord extracts a Response when the record is a command
// outcome. Returns false for every other record type.
func ResponseFromRecord(r *Record) (*Response, bool) {
	switch r.Type {
	case EventSuccess:
		return &Response{ReqID: r.ReqID, Success: true, Record: r}, true
	case EventFailure:
		return &Response{
			ReqID:   r.ReqID,
			Success: false,
			Message: r.Str("message"),
			Record:  r,
		}, true
	default:
		return nil, false
	}
}
