package termmode

import "golang.org/x/sys/unix"

// TCSETSF drains output and flushes pending input, matching tcsetattr with
// TCSAFLUSH.
const (
	ioctlReadTermios  = unix.TCGETS
	ioctlWriteTermios = unix.TCSETSF
)
