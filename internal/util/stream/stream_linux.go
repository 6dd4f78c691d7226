package stream

import (
	"os"

	"golang.org/x/sys/unix"
)

// pipes are grown to this size when possible, the kernel default is 64KiB
const pipeSize = 1024 * 1024

var ReadOptimizations = []Optimization{
	{Name: "sequential read-ahead", Action: fadviseSequential},
	{Name: "pipe buffer size", Action: growPipe},
}

var WriteOptimizations = []Optimization{
	{Name: "pipe buffer size", Action: growPipe},
}

func fadviseSequential(f *os.File, s os.FileInfo) error {
	if !s.Mode().IsRegular() {
		return os.ErrInvalid
	}
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

func growPipe(f *os.File, s os.FileInfo) error {
	if s.Mode()&os.ModeNamedPipe == 0 {
		return os.ErrInvalid
	}
	_, err := unix.FcntlInt(f.Fd(), unix.F_SETPIPE_SZ, pipeSize)
	return err
}
