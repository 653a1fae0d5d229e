// Package capture defines the audio capture device facility used by the
// test-mode session controller, and a recorder-command implementation.
//
// The controller owns the only active Handle at any time; implementations
// do not need to guard against concurrent captures.
package capture

import (
	"context"
	"errors"

	"github.com/flashcoach/backend/internal/domain"
)

// Acquisition failures. Both are recoverable: the session stays idle on
// the current card and the user retries by restarting the test.
var (
	ErrPermissionDenied  = errors.New("capture: permission denied")
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
)

// Device acquires capture handles.
type Device interface {
	// Acquire opens the underlying hardware and starts capturing.
	// It may block for an arbitrary time and can fail with
	// ErrPermissionDenied or ErrDeviceUnavailable.
	Acquire(ctx context.Context) (Handle, error)
}

// Handle is one active capture.
type Handle interface {
	// Finalize stops the capture and yields its artifact. It may complete
	// asynchronously relative to the stop request that triggered it.
	Finalize(ctx context.Context) (domain.Artifact, error)

	// Release frees the underlying hardware resource. Idempotent,
	// synchronous best-effort; safe to call after Finalize.
	Release()
}
