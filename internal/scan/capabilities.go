package scan

import (
	"context"
	"time"
)

// Recognizer captures a spoken (or typed) target phrase. Implementations that
// have no speech capability report Available() == false and the loop refuses
// to start recording.
type Recognizer interface {
	Available() bool

	// Start begins capturing; the transcript callback fires once a phrase is
	// complete. Start must not block on the callback.
	Start(onTranscript func(raw string)) error

	Stop() error
}

// Camera is an acquired frame source. Capture returns one encoded frame
// rendered at the detector's fixed input size, independent of the native
// resolution. Close releases the underlying stream.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// CameraOpener acquires a Camera. Acquisition happens on the transition into
// scanning and can fail (no device, permission denied).
type CameraOpener interface {
	Open(ctx context.Context) (Camera, error)
}

// Feedback receives user-facing signals from the loop.
type Feedback interface {
	Beep()
	Vibrate(pattern []time.Duration)
	Status(text string)
}
