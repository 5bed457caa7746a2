//go:build unix

// Package termmode switches the controlling terminal into raw mode and
// restores it. The raw switch is verified by reading the settings back;
// tcsetattr may succeed after applying only part of the request.
package termmode

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrInvalidTtyState reports that the terminal did not accept every
// requested raw-mode bit. The original settings are restored before this is
// returned.
var ErrInvalidTtyState = errors.New("terminal rejected raw mode settings")

// State remembers a terminal's settings so they can be restored exactly
// once, from any exit path.
type State struct {
	fd       int
	saved    unix.Termios
	restored bool
}

// Get reads the current termios settings of fd.
func Get(fd int) (*unix.Termios, error) {
	tio, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, fmt.Errorf("tcgetattr fd %d: %w", fd, err)
	}
	return tio, nil
}

// Apply installs tio on fd, flushing pending input first.
func Apply(fd int, tio *unix.Termios) error {
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, tio); err != nil {
		return fmt.Errorf("tcsetattr fd %d: %w", fd, err)
	}
	return nil
}

// EnterRaw switches fd into raw mode: echo, canonical input, extended
// processing and signal keys off; BREAK, CR translation, parity checking,
// bit stripping and flow control off; 8-bit characters; output processing
// off; one byte at a time with no read timer.
func EnterRaw(fd int) (*State, error) {
	saved, err := Get(fd)
	if err != nil {
		return nil, err
	}

	raw := *saved
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Oflag &^= unix.OPOST
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := Apply(fd, &raw); err != nil {
		return nil, err
	}

	// tcsetattr can return success after applying only some changes; read
	// the mode back and verify every requested bit before trusting it.
	got, err := Get(fd)
	if err != nil {
		Apply(fd, saved)
		return nil, err
	}
	if !verifyRaw(got) {
		Apply(fd, saved)
		return nil, ErrInvalidTtyState
	}

	return &State{fd: fd, saved: *saved}, nil
}

func verifyRaw(tio *unix.Termios) bool {
	if tio.Lflag&(unix.ECHO|unix.ICANON|unix.IEXTEN|unix.ISIG) != 0 {
		return false
	}
	if tio.Iflag&(unix.BRKINT|unix.ICRNL|unix.INPCK|unix.ISTRIP|unix.IXON) != 0 {
		return false
	}
	if tio.Cflag&(unix.CSIZE|unix.PARENB|unix.CS8) != unix.CS8 {
		return false
	}
	if tio.Oflag&unix.OPOST != 0 {
		return false
	}
	if tio.Cc[unix.VMIN] != 1 || tio.Cc[unix.VTIME] != 0 {
		return false
	}
	return true
}

// Restore puts the terminal back into its saved mode. It is idempotent so
// it can sit both on the normal return path and on fatal-exit paths.
func (s *State) Restore() error {
	if s == nil || s.restored {
		return nil
	}
	s.restored = true
	return Apply(s.fd, &s.saved)
}
