package protocol

// Size limits. Frames outside these bounds are rejected at the decode
// boundary rather than propagated into the stores.
const (
	// MaxFrameSize is the largest frame the decoder will accept.
	// Backlog chunks are the biggest legitimate frames; 4MB leaves
	// generous headroom over observed production maxima.
	MaxFrameSize = 4 << 20

	// MaxCommandSize is the largest command the client will send.
	MaxCommandSize = 64 << 10
)
