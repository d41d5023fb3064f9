// Package upload spools message attachments. Large files do not
// belong on the realtime socket: they would block heartbeats behind a
// slow write. Instead the client POSTs the file to the local upload
// handler, the handler spools it to disk or S3, and the returned
// attachment URL is sent as an ordinary message through the engine.
//
// Spooled attachments are temporary. Claim consumes one; Cleanup
// sweeps whatever was never claimed.
package upload
