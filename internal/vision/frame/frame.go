// Package frame defines the frame header and payload types shared by the
// admission gate, the bounded queue, and the analysis pipeline.
package frame

// Header carries the timing and geometry metadata for one captured frame.
// Sequence numbers and timestamps are assigned by the capture layer and must
// be monotonic for a frame to be admitted.
type Header struct {
	// Seq is the capture-assigned sequence number. Non-negative.
	Seq int64
	// Timestamp is the capture time in seconds since session start. Non-negative.
	Timestamp float64
	// Width and Height are the frame dimensions in pixels. Both positive.
	Width  int
	Height int
}

// Frame pairs a header with its opaque encoded payload. The payload is held
// by reference only while the frame sits in the queue or is being analyzed;
// it is never copied into retained state and never appears in output.
type Frame struct {
	Header  Header
	Payload []byte
}
