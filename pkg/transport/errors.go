package transport

import "errors"

// ErrTransportClosed is returned by Send after the socket has been
// closed or before Connect succeeds.
var ErrTransportClosed = errors.New("transport: closed")
