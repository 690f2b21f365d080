package playback

import "context"

// Backend is the media pipeline the engine drives. Implementations wrap an
// actual player (mpv, AVPlayer bridge, a test double). All methods are called
// from the engine's goroutines; implementations must be safe for that.
type Backend interface {
	// Load attaches the URI and blocks until the first frame or manifest is
	// ready, or until it fails. ctx cancellation must abort the attempt.
	Load(ctx context.Context, uri string) error

	// Play starts or resumes rendering.
	Play() error

	// Pause halts rendering without detaching the resource.
	Pause() error

	// Seek jumps to an absolute position in seconds.
	Seek(seconds float64) error

	// Position reports the current position and total duration in seconds.
	// Live streams report duration 0.
	Position() (pos, dur float64)

	// Release detaches the resource and frees the pipeline. Must be
	// idempotent; the engine always releases before creating a successor.
	Release()
}

// Recoverer is implemented by backends that can attempt an internal reset of
// the decode pipeline after a media error, without a full reload.
type Recoverer interface {
	Recover() error
}
