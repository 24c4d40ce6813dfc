// Package transport provides audio transport implementations.
package transport

import (
	"context"
	"os/exec"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/app/playback"
)

// ExecSettings configures the exec transport.
type ExecSettings struct {
	// Command is the player binary. Args may contain the {target} and
	// {media} placeholders; when no {media} placeholder is present the
	// media reference is appended as the final argument.
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// Exec streams audio by running a player subprocess per item. Pause
// and resume map to SIGSTOP and SIGCONT, so the player keeps its
// position across a pause.
type Exec struct {
	mu sync.Mutex

	settings ExecSettings
	events   chan playback.TransportEvent

	target    string
	connected bool
	cmd       *exec.Cmd
	gen       int // Stream generation, so exits of replaced streams are ignored
}

// NewExec creates an exec transport from raw settings.
func NewExec(raw map[string]any) (*Exec, error) {
	var settings ExecSettings
	if err := mapstructure.Decode(raw, &settings); err != nil {
		return nil, errors.Wrap(err, "failed to decode exec transport settings")
	}
	if settings.Command == "" {
		return nil, errors.New("exec transport requires a command")
	}
	return &Exec{
		settings: settings,
		events:   make(chan playback.TransportEvent, 16),
	}, nil
}

// Connect verifies the player binary is available and binds the target.
func (e *Exec) Connect(_ context.Context, target string) error {
	if _, err := exec.LookPath(e.settings.Command); err != nil {
		return errors.Wrapf(err, "player command %q not found", e.settings.Command)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = target
	e.connected = true
	return nil
}

// Stream launches the player for the referenced media, replacing any
// player already running.
func (e *Exec) Stream(_ context.Context, mediaRef string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.connected {
		return errors.New("exec transport not connected")
	}

	e.killLocked()

	cmd := exec.Command(e.settings.Command, e.buildArgsLocked(mediaRef)...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start player for %s", mediaRef)
	}

	e.cmd = cmd
	e.gen++
	gen := e.gen

	go e.waitForExit(cmd, gen)

	e.sendLocked(playback.TransportEvent{Kind: playback.TransportStreaming})
	zlog.Debug().Msgf("transport: player started: pid=%d media=%s", cmd.Process.Pid, mediaRef)
	return nil
}

// Pause suspends the player process.
func (e *Exec) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.cmd.Process == nil {
		return errors.New("no player running")
	}
	return errors.Wrap(e.cmd.Process.Signal(syscall.SIGSTOP), "failed to suspend player")
}

// Unpause resumes a suspended player process.
func (e *Exec) Unpause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.cmd.Process == nil {
		return errors.New("no player running")
	}
	return errors.Wrap(e.cmd.Process.Signal(syscall.SIGCONT), "failed to resume player")
}

// Teardown kills any running player and detaches from the target.
func (e *Exec) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.killLocked()
	e.connected = false
	e.target = ""
	return nil
}

// Events returns the transport event channel.
func (e *Exec) Events() <-chan playback.TransportEvent {
	return e.events
}

// waitForExit reports how the player ended. A clean exit is the end of
// the stream; a crash counts as a transport loss.
func (e *Exec) waitForExit(cmd *exec.Cmd, gen int) {
	err := cmd.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	// A replaced or torn-down player's exit is not an event.
	if gen != e.gen || !e.connected {
		return
	}
	e.cmd = nil

	if err != nil {
		zlog.Warn().Msgf("transport: player exited abnormally: %v", err)
		e.sendLocked(playback.TransportEvent{Kind: playback.TransportDisconnected, Err: err})
		return
	}
	e.sendLocked(playback.TransportEvent{Kind: playback.TransportStreamEnded})
}

func (e *Exec) buildArgsLocked(mediaRef string) []string {
	args := make([]string, 0, len(e.settings.Args)+1)
	seenMedia := false
	for _, a := range e.settings.Args {
		switch a {
		case "{target}":
			args = append(args, e.target)
		case "{media}":
			args = append(args, mediaRef)
			seenMedia = true
		default:
			args = append(args, a)
		}
	}
	if !seenMedia {
		args = append(args, mediaRef)
	}
	return args
}

// killLocked terminates the running player, bumping the generation so
// its exit is ignored. Must be called with lock held.
func (e *Exec) killLocked() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	e.cmd = nil
	e.gen++
}

// sendLocked sends an event without blocking.
// Must be called with lock held.
func (e *Exec) sendLocked(ev playback.TransportEvent) {
	select {
	case e.events <- ev:
		// Successfully sent
	default:
		// Channel full, drop event
	}
}
