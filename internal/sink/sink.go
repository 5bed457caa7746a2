// Package sink provides the append-only byte sinks that mirror pty traffic
// into log files.
package sink

import (
	"fmt"
	"os"
)

// Sink mirrors one direction of pty traffic. A nil *Sink is valid and
// discards everything, so callers never branch on whether logging is
// enabled.
type Sink struct {
	f *os.File
}

// Open creates the log file, truncating any previous contents. The file is
// private to the user; it will hold whatever the child prints, passwords
// excluded only by the masking the caller applies.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Sink{f: f}, nil
}

// Write appends p. Mirroring is best effort: a failed write drops that
// single write and the stream continues, so a full disk never kills the
// supervised child.
func (s *Sink) Write(p []byte) {
	if s == nil {
		return
	}
	s.f.Write(p)
}

// Close flushes and closes the file.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.f.Close()
}
