// Package store holds the client's mirror of server-authoritative
// entities: connections, buffers, channels, channel members, and the
// event history per buffer.
//
// The stores are mutated only from the engine's serial loop. Readers
// may call the accessor methods from any goroutine; they receive value
// copies and must treat them as potentially stale between
// notifications. No read-modify-write access is exposed.
package store
