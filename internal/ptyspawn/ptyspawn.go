//go:build unix

// Package ptyspawn starts the supervised command on the slave side of a
// freshly opened pty pair and hands the master back to the caller.
package ptyspawn

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/clarkwang/passh/internal/termmode"
)

// Options controls how the child side of the pty is prepared.
type Options struct {
	// Termios, when non-nil, is applied to the slave before the child
	// starts, so the child sees the invoking terminal's line discipline.
	Termios *unix.Termios

	// Winsize, when non-nil, sizes the slave before the child starts.
	Winsize *pty.Winsize

	// IgnoreHangup starts the child with SIGHUP ignored, so it survives
	// the pty master closing (the `ssh -f` case).
	IgnoreHangup bool
}

// Child is a started command whose stdin, stdout and stderr are the slave
// side of a pty. The master descriptor is exclusively the caller's.
type Child struct {
	Master *os.File
	Cmd    *exec.Cmd
	Pid    int
}

// Start opens a pty pair, configures the slave, and starts command in a new
// session with the slave as its controlling terminal and fds 0, 1, 2.
func Start(command []string, opts Options) (*Child, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}

	// The slave is configured before the child exists, so the child can
	// never observe the default settings.
	slaveFd := int(slave.Fd())
	if opts.Termios != nil {
		if err := termmode.Apply(slaveFd, opts.Termios); err != nil {
			master.Close()
			slave.Close()
			return nil, err
		}
	}
	if opts.Winsize != nil {
		if err := pty.Setsize(slave, opts.Winsize); err != nil {
			master.Close()
			slave.Close()
			return nil, fmt.Errorf("set pty size: %w", err)
		}
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	// Setctty acquires the slave (the child's fd 0) as the controlling
	// terminal of the new session.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	// A SIG_IGN disposition is inherited across fork and preserved by
	// exec. The child's dispositions are snapshotted at fork, inside
	// Start, so resetting afterwards cannot race it.
	if opts.IgnoreHangup {
		signal.Ignore(syscall.SIGHUP)
	}
	err = cmd.Start()
	if opts.IgnoreHangup {
		signal.Reset(syscall.SIGHUP)
	}
	if err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("spawn %s: %w", command[0], err)
	}

	// All done with the slave in the parent.
	slave.Close()

	return &Child{Master: master, Cmd: cmd, Pid: cmd.Process.Pid}, nil
}
