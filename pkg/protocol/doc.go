// Package protocol defines the wire format spoken over the gateway
// socket: inbound records tagged with a closed event taxonomy, and
// outbound commands correlated by request id.
//
// Every frame delivered by the transport decodes to exactly one Record.
// A Record carries a type tag (mapped to EventType), the common
// addressing fields (cid, bid, eid) and the remaining payload fields in
// raw form. Records with an unknown tag decode to EventUnrecognized so
// new server-side event types never break the stream; records that are
// not valid JSON fail to decode and are dropped by the caller.
//
// Outbound commands are JSON objects carrying a "_method" name and a
// locally assigned numeric "_reqid". The server answers asynchronously
// with a record whose "_reqid" echoes the command and whose "success"
// field reports the outcome.
package protocol
