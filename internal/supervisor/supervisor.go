//go:build unix

// Package supervisor drives the pty event loop: it mirrors the child's
// output to the terminal and log sinks, scans it for prompts, injects the
// configured responses, forwards keystrokes and window resizes, and exits
// with the child's status.
//
// The loop is strictly single-threaded. It parks in one select call with a
// bounded timeout; signal delivery is observed through channels the loop
// alone drains, every read is issued only after readiness has been
// reported, and writes are retried until complete.
package supervisor

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/clarkwang/passh/internal/config"
	"github.com/clarkwang/passh/internal/exitcode"
	"github.com/clarkwang/passh/internal/prompt"
	"github.com/clarkwang/passh/internal/ptyspawn"
	"github.com/clarkwang/passh/internal/sink"
	"github.com/clarkwang/passh/internal/termmode"
)

const (
	// selectTimeout bounds each wait so deferred signal flags and the
	// prompt timeout are observed even on a silent pty.
	selectTimeout = 1100 * time.Millisecond

	// startupTimeout is how long to wait for the child to open the pty
	// slave before the first iteration.
	startupTimeout = time.Second

	// dripInterval spaces the post-EOF end-of-file characters. Some line
	// disciplines drop EOF markers delivered back to back, so the drip
	// must never become a tight loop.
	dripInterval = 50 * time.Millisecond
)

// Options configures a run. Matcher and Config are required; writers
// default to the process's own streams.
type Options struct {
	Config  config.Config
	Matcher *prompt.Matcher

	// Stdout receives every byte read from the pty, in arrival order.
	Stdout io.Writer

	// Stdin is the real standard input. Keystrokes are forwarded from it
	// only when InteractiveTTY is set.
	Stdin *os.File

	// InteractiveTTY is true when Stdin is a terminal; it enables
	// keystroke forwarding and window-resize propagation.
	InteractiveTTY bool
}

// Supervisor owns the master pty and the two log sinks for the duration of
// a run.
type Supervisor struct {
	opts   Options
	child  *ptyspawn.Child
	master int

	sigchld  chan os.Signal
	sigwinch chan os.Signal

	win           prompt.Window
	toSink        *sink.Sink
	fromSink      *sink.Sink
	passwordsSeen int
	givenUp       bool
	interactive   bool
	stdinEOF      bool
	lastActivity  time.Time
	lastDrip      time.Time
	exitCode      int
}

// New wraps a started child. The supervisor takes ownership of the master
// descriptor and closes it when Run returns.
func New(child *ptyspawn.Child, opts Options) *Supervisor {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &Supervisor{
		opts:     opts,
		child:    child,
		master:   int(child.Master.Fd()),
		sigchld:  make(chan os.Signal, 1),
		sigwinch: make(chan os.Signal, 1),
		exitCode: -1,
	}
}

// Run drives the loop until the child terminates or a fatal condition
// trips, returning the supervisor's exit code. A non-nil error is always an
// *exitcode.Error.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	defer s.child.Master.Close()

	cfg := &s.opts.Config

	if cfg.LogToPty != "" {
		var err error
		if s.toSink, err = sink.Open(cfg.LogToPty); err != nil {
			return 0, exitcode.Sysf(err, "log file")
		}
	}
	defer s.toSink.Close()
	if cfg.LogFromPty != "" {
		var err error
		if s.fromSink, err = sink.Open(cfg.LogFromPty); err != nil {
			return 0, exitcode.Sysf(err, "log file")
		}
	}
	defer s.fromSink.Close()

	signal.Notify(s.sigchld, syscall.SIGCHLD)
	defer signal.Stop(s.sigchld)
	if s.opts.InteractiveTTY {
		signal.Notify(s.sigwinch, syscall.SIGWINCH)
		defer signal.Stop(s.sigwinch)
	}

	// The slave may not be open yet right after the fork; give the child
	// a moment before treating the pty as usable.
	ok, err := awaitWritable(s.master, startupTimeout)
	if err != nil && err != unix.EINTR {
		return 0, exitcode.Sysf(err, "wait for pty")
	}
	if err != nil || !ok {
		return 0, exitcode.Errorf(exitcode.General, "failed to wait for pty to become writable")
	}

	s.lastActivity = time.Now()
	stdinBuf := make([]byte, prompt.ChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return 0, exitcode.Errorf(exitcode.General, "canceled: %v", err)
		}

		done, err := s.reapChild()
		if err != nil {
			return 0, err
		}
		if done {
			return s.drainAndExit()
		}

		if cfg.Timeout > 0 && cfg.FatalNoPrompt && s.passwordsSeen == 0 &&
			time.Since(s.lastActivity) > cfg.Timeout {
			return 0, exitcode.Errorf(exitcode.Timeout, "timeout waiting for password prompt")
		}

		s.applyPendingResize()

		if s.stdinEOF && !s.dripEOF() {
			return s.drainAndExit()
		}

		stdinFd := -1
		if s.opts.InteractiveTTY && !s.stdinEOF {
			stdinFd = int(s.opts.Stdin.Fd())
		}
		ready, err := awaitReadable([]int{s.master, stdinFd}, selectTimeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, exitcode.Sysf(err, "select")
		}

		if ready[0] {
			if err := s.drainMaster(); err != nil {
				return 0, err
			}
			// Whether the drain ended on empty or on child exit, start
			// the next pass at the child-state check.
			continue
		}

		if ready[1] {
			if err := s.forwardStdin(stdinBuf); err != nil {
				return 0, err
			}
		}
	}
}

// reapChild consumes a pending child-state change, if any. It returns true
// once the child has terminated. Stop and continue events keep the loop
// running.
func (s *Supervisor) reapChild() (bool, error) {
	select {
	case <-s.sigchld:
	default:
		return false, nil
	}

	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(s.child.Pid, &ws,
			unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, exitcode.Sysf(err, "received SIGCHLD but wait failed")
		}
		if wpid == 0 {
			// Spurious wakeup; our child has not changed state.
			return false, nil
		}
		break
	}

	switch {
	case ws.Exited():
		s.exitCode = ws.ExitStatus()
		return true, nil
	case ws.Signaled():
		s.exitCode = 128 + int(ws.Signal())
		return true, nil
	case ws.Stopped(), ws.Continued():
		// Wait for the next state change.
		return false, nil
	default:
		return true, nil
	}
}

// applyPendingResize propagates a window-size change from the real terminal
// to the pty. Failures are ignored; the next SIGWINCH retries.
func (s *Supervisor) applyPendingResize() {
	select {
	case <-s.sigwinch:
		pty.InheritSize(s.opts.Stdin, s.child.Master)
	default:
	}
}

// dripEOF writes one copy of the pty's current end-of-file character toward
// the child, at most once per dripInterval and never on the first pass
// after stdin closed. It returns false when the pty is gone and the loop
// should move to the drain phase.
func (s *Supervisor) dripEOF() bool {
	now := time.Now()
	if s.lastDrip.IsZero() {
		s.lastDrip = now
		return true
	}
	if d := now.Sub(s.lastDrip); d > -dripInterval && d < dripInterval {
		return true
	}
	s.lastDrip = now

	tio, err := termmode.Get(s.master)
	if err != nil {
		return false
	}
	eof := []byte{tio.Cc[unix.VEOF]}
	if err := writeFull(s.master, eof); err != nil {
		return false
	}
	s.toSink.Write(eof)
	return true
}

// drainMaster copies everything currently buffered on the pty to stdout and
// the log sink, feeding the prompt matcher along the way. It returns once a
// read reports nothing left (or the pty failed, which the child-state check
// on the next pass will explain).
func (s *Supervisor) drainMaster() error {
	cfg := &s.opts.Config
	for {
		free := s.win.Free()
		n, err := readIfReady(s.master, free)
		if n <= 0 || err != nil {
			return nil
		}
		chunk := free[:n]

		if _, err := s.opts.Stdout.Write(chunk); err != nil {
			return exitcode.Sysf(err, "write stdout")
		}
		s.fromSink.Write(chunk)

		if !s.givenUp && cfg.Timeout > 0 && time.Since(s.lastActivity) >= cfg.Timeout {
			s.givenUp = true
		}
		if !s.givenUp {
			s.win.ScrubNUL(n)
		}
		s.win.Extend(n)

		if !s.interactive && !s.givenUp {
			if err := s.matchAndInject(); err != nil {
				return err
			}
		} else {
			s.win.Reset()
		}
		s.win.Compact()
	}
}

// matchAndInject applies the match policy to the live window: an auto-yes
// answer before the first password, otherwise the password itself, with the
// try-count policy. At most one match is applied per appended chunk.
func (s *Supervisor) matchAndInject() error {
	cfg := &s.opts.Config
	window := s.win.Bytes()

	if cfg.AutoYesNo && s.passwordsSeen == 0 {
		if end, ok := s.opts.Matcher.YesNo(window); ok {
			yes := []byte("yes\r")
			if err := writeFull(s.master, yes); err != nil {
				return exitcode.Sysf(err, "write pty")
			}
			s.toSink.Write(yes)
			s.win.Advance(end)
			return nil
		}
	}

	end, ok := s.opts.Matcher.Prompt(window)
	if !ok {
		return nil
	}

	s.passwordsSeen++
	s.lastActivity = time.Now()

	if cfg.FatalMoreTries {
		if cfg.MaxTries > 0 && s.passwordsSeen > cfg.MaxTries {
			return exitcode.Errorf(exitcode.MaxTries,
				"still prompted for passwords after %d tries", cfg.MaxTries)
		}
	} else if cfg.MaxTries > 0 && s.passwordsSeen >= cfg.MaxTries {
		s.givenUp = true
	}

	if err := writeFull(s.master, append([]byte(cfg.Password), '\r')); err != nil {
		return exitcode.Sysf(err, "write pty")
	}
	s.toSink.Write([]byte("********\r"))
	s.win.Advance(end)
	return nil
}

// forwardStdin relays one read's worth of keystrokes to the child. The
// first byte makes the session interactive: from then on the matcher never
// injects again.
func (s *Supervisor) forwardStdin(buf []byte) error {
	n, err := readRetry(int(s.opts.Stdin.Fd()), buf)
	if err != nil {
		return exitcode.Sysf(err, "read stdin")
	}
	if n == 0 {
		s.stdinEOF = true
		return nil
	}
	s.interactive = true
	if err := writeFull(s.master, buf[:n]); err != nil {
		return exitcode.Sysf(err, "write pty")
	}
	s.toSink.Write(buf[:n])
	return nil
}

// drainAndExit runs after the child has terminated: whatever is still
// buffered on the pty is forwarded, then the recorded exit status becomes
// the supervisor's own.
func (s *Supervisor) drainAndExit() (int, error) {
	buf := make([]byte, prompt.ChunkSize)
	for {
		n, err := readIfReady(s.master, buf)
		if n <= 0 || err != nil {
			break
		}
		if _, err := s.opts.Stdout.Write(buf[:n]); err != nil {
			return 0, exitcode.Sysf(err, "write stdout")
		}
		s.fromSink.Write(buf[:n])
	}

	if s.exitCode < 0 {
		return 0, exitcode.Errorf(exitcode.General, "child status unknown")
	}
	return s.exitCode, nil
}
