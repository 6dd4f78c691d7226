//go:build !windows

package chunkbuf

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func init() {
	readRusage = getrusage
}

func getrusage() rusageSample {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return rusageSample{}
	}

	// maxrss is in KiB everywhere but darwin
	maxRss := int64(ru.Maxrss)
	if runtime.GOOS != "darwin" {
		maxRss *= 1024
	}

	return rusageSample{
		valid:       true,
		userNsecs:   unix.TimevalToNsec(ru.Utime),
		sysNsecs:    unix.TimevalToNsec(ru.Stime),
		maxRssBytes: maxRss,
		minFlt:      int64(ru.Minflt),
		majFlt:      int64(ru.Majflt),
		bioRead:     int64(ru.Inblock),
		bioWrite:    int64(ru.Oublock),
		sigs:        int64(ru.Nsignals),
		ctxSwYield:  int64(ru.Nvcsw),
		ctxSwForced: int64(ru.Nivcsw),
	}
}
