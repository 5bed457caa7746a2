//go:build unix

package supervisor

import (
	"time"

	"golang.org/x/sys/unix"
)

// awaitReadable blocks until one of the fds is readable or the timeout
// elapses. fds entries < 0 are skipped. It reports which fds are ready, one
// entry per fds entry; all false means the wait timed out. EINTR is surfaced so the caller
// can re-run its pending-signal checks.
func awaitReadable(fds []int, timeout time.Duration) (ready []bool, err error) {
	var set unix.FdSet
	nfds := 0
	for _, fd := range fds {
		if fd < 0 {
			continue
		}
		set.Set(fd)
		if fd+1 > nfds {
			nfds = fd + 1
		}
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(nfds, &set, nil, nil, &tv)
	if err != nil {
		return nil, err
	}

	ready = make([]bool, len(fds))
	if n == 0 {
		return ready, nil
	}
	for i, fd := range fds {
		ready[i] = fd >= 0 && set.IsSet(fd)
	}
	return ready, nil
}

// awaitWritable blocks until fd is writable or the timeout elapses.
func awaitWritable(fd int, timeout time.Duration) (bool, error) {
	var set unix.FdSet
	set.Set(fd)
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if _, err := unix.Select(fd+1, nil, &set, nil, &tv); err != nil {
		return false, err
	}
	return set.IsSet(fd), nil
}

// readIfReady reads from fd only if a zero-timeout poll reports it
// readable, so a select-confirmed loop can drain without ever blocking.
// It returns 0 when the fd has nothing buffered.
func readIfReady(fd int, p []byte) (int, error) {
	var set unix.FdSet
	set.Set(fd)
	tv := unix.Timeval{}
	if _, err := unix.Select(fd+1, &set, nil, nil, &tv); err != nil {
		return 0, err
	}
	if !set.IsSet(fd) {
		return 0, nil
	}
	return readRetry(fd, p)
}

func readRetry(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// writeFull writes all of p to fd, retrying short writes and EINTR.
func writeFull(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
