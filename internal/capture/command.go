package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flashcoach/backend/internal/domain"
)

// startupGrace is how long Acquire watches the recorder process before
// declaring the device acquired. A recorder that cannot open the device
// exits within this window.
const startupGrace = 100 * time.Millisecond

// CommandDevice records audio by spawning a recorder binary (arecord,
// ffmpeg, sox, ...) that writes to a temp file passed as its final
// argument. Acquire starts the process; Finalize interrupts it and reads
// the file back.
type CommandDevice struct {
	command string // e.g. "arecord -q -f cd"
	dir     string // temp dir for capture files; "" means os.TempDir
	log     *slog.Logger
}

// NewCommandDevice creates a CommandDevice for the given recorder command.
func NewCommandDevice(command string, logger *slog.Logger) *CommandDevice {
	return &CommandDevice{
		command: command,
		log:     logger.With("component", "capture"),
	}
}

// Acquire starts the recorder process. A missing binary maps to
// ErrDeviceUnavailable; an immediate exit (busy device, no access to the
// audio group) maps to ErrPermissionDenied.
func (d *CommandDevice) Acquire(ctx context.Context) (Handle, error) {
	fields := strings.Fields(d.command)
	if len(fields) == 0 {
		return nil, ErrDeviceUnavailable
	}

	if _, err := exec.LookPath(fields[0]); err != nil {
		d.log.WarnContext(ctx, "recorder binary not found", slog.String("command", fields[0]))
		return nil, ErrDeviceUnavailable
	}

	dir := d.dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("capture_%s.wav", uuid.New().String()))

	args := append(fields[1:], path)
	cmd := exec.Command(fields[0], args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	h := &commandHandle{cmd: cmd, wait: waitCh, path: path, log: d.log}

	select {
	case <-waitCh:
		// Recorder died before it could record anything.
		h.exited = true
		h.Release()
		return nil, ErrPermissionDenied
	case <-ctx.Done():
		h.Release()
		return nil, ctx.Err()
	case <-time.After(startupGrace):
	}

	d.log.DebugContext(ctx, "capture started", slog.String("path", path))
	return h, nil
}

type commandHandle struct {
	cmd  *exec.Cmd
	wait chan error
	path string
	log  *slog.Logger

	mu       sync.Mutex
	exited   bool
	released bool
}

// Finalize stops the recorder and reads the captured file.
func (h *commandHandle) Finalize(ctx context.Context) (domain.Artifact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return domain.Artifact{}, errors.New("capture: handle already released")
	}

	h.stopLocked(ctx)

	data, err := os.ReadFile(h.path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("capture: read %s: %w", h.path, err)
	}
	if len(data) == 0 {
		return domain.Artifact{}, errors.New("capture: empty recording")
	}

	return domain.Artifact{Data: data, MIMEType: "audio/wav"}, nil
}

// Release frees the recorder process and removes the temp file. Idempotent.
func (h *commandHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return
	}
	h.released = true

	if !h.exited && h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
		<-h.wait
		h.exited = true
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		h.log.Warn("remove capture file", slog.String("path", h.path), slog.String("error", err.Error()))
	}
}

// stopLocked asks the recorder to exit cleanly so it can flush its file
// header, then waits for it.
func (h *commandHandle) stopLocked(ctx context.Context) {
	if h.exited {
		return
	}
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(os.Interrupt)
	}
	select {
	case <-h.wait:
	case <-ctx.Done():
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
			<-h.wait
		}
	}
	h.exited = true
}
