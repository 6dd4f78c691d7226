package chunkbuf

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/google/uuid"
	"github.com/ipfs/go-qringbuf"
	"github.com/klauspost/cpuid/v2"
)

const (
	modeSegment    = "segment"
	modeReassemble = "reassemble"
)

type statSummary struct {
	Event        string          `json:"event"`
	RunID        string          `json:"run_id"`
	Mode         string          `json:"mode"`
	Streams      int64           `json:"streams"`
	EmptyStreams int64           `json:"empty_streams"`
	Chunks       int64           `json:"chunks"`
	Payload      int64           `json:"payload"`
	ChunkSizes   *chunkSizeStats `json:"chunk_sizes,omitempty"`
	Frames       *frameStats     `json:"frames,omitempty"`
	SysStats     sysStats        `json:"sys"`
}

type frameStats struct {
	Compression string `json:"compression"`
	BodyBytes   int64  `json:"body_bytes"`
}

type chunkSizeStats struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func newChunkSizeStats() *chunkSizeStats {
	return &chunkSizeStats{Min: math.MaxInt}
}

func (s *chunkSizeStats) add(size int) {
	if size < s.Min {
		s.Min = size
	}
	if size > s.Max {
		s.Max = size
	}
}

type sysStats struct {
	RingBuffer qringbuf.Stats `json:"ring_buffer"`

	ElapsedNsecs int64 `json:"elapsed_nsecs"`

	CpuUserNsecs int64 `json:"cpu_user_nsecs"`
	CpuSysNsecs  int64 `json:"cpu_sys_nsecs"`
	MaxRssBytes  int64 `json:"max_rss_bytes"`
	MinFlt       int64 `json:"cache_minflt"`
	MajFlt       int64 `json:"cache_majflt"`
	BioRead      int64 `json:"blkio_read"`
	BioWrite     int64 `json:"blkio_write"`
	Sigs         int64 `json:"signals"`
	CtxSwYield   int64 `json:"ctxsw_yield"`
	CtxSwForced  int64 `json:"ctxsw_forced"`

	PrefixReads int64 `json:"multipart_prefix_reads"`

	CPU struct {
		Brand    string `json:"brand"`
		Physical int    `json:"cores_physical"`
		Logical  int    `json:"cores_logical"`
		SHA      bool   `json:"sha_extensions"`
	} `json:"cpu"`

	GoVersion    string   `json:"go_version"`
	ArgvInitial  []string `json:"argv_initial"`
	ArgvExpanded []string `json:"argv_expanded"`
}

// rusageSample is a reading of the resource usage of the whole process. A run
// reports the difference between the samples taken around it.
type rusageSample struct {
	valid bool

	userNsecs, sysNsecs int64
	maxRssBytes         int64
	minFlt, majFlt      int64
	bioRead, bioWrite   int64
	sigs                int64
	ctxSwYield          int64
	ctxSwForced         int64
}

// readRusage samples getrusage(2) where available, elsewhere it returns an
// invalid sample
var readRusage = func() rusageSample { return rusageSample{} }

func (s *sysStats) addRusage(from, to rusageSample) {
	if !from.valid || !to.valid {
		return
	}
	s.CpuUserNsecs += to.userNsecs - from.userNsecs
	s.CpuSysNsecs += to.sysNsecs - from.sysNsecs
	s.MinFlt += to.minFlt - from.minFlt
	s.MajFlt += to.majFlt - from.majFlt
	s.BioRead += to.bioRead - from.bioRead
	s.BioWrite += to.bioWrite - from.bioWrite
	s.Sigs += to.sigs - from.sigs
	s.CtxSwYield += to.ctxSwYield - from.ctxSwYield
	s.CtxSwForced += to.ctxSwForced - from.ctxSwForced

	// a high-water mark, not a counter
	s.MaxRssBytes = max(s.MaxRssBytes, to.maxRssBytes)
}

func setStatSummary() statSummary {
	ss := statSummary{
		Event: "summary",
		RunID: uuid.NewString(),
		Mode:  modeSegment,
	}
	ss.SysStats.GoVersion = runtime.Version()
	ss.SysStats.CPU.Brand = cpuid.CPU.BrandName
	ss.SysStats.CPU.Physical = cpuid.CPU.PhysicalCores
	ss.SysStats.CPU.Logical = cpuid.CPU.LogicalCores
	ss.SysStats.CPU.SHA = cpuid.CPU.Supports(cpuid.SHA)
	return ss
}

// OutputSummary writes the run summary to the stats emitters, if any are
// active.
func (cb *Chunkbuf) OutputSummary() {

	if out := cb.cfg.emitters[emStatsJsonl]; out != nil {
		if err := cb.writeSummaryJsonl(out); err != nil {
			logging.L().Error().Err(err).Msgf("emitting '%s' failed", emStatsJsonl)
		}
	}

	if out := cb.cfg.emitters[emStatsText]; out != nil {
		if err := cb.writeSummaryText(out); err != nil {
			logging.L().Error().Err(err).Msgf("emitting '%s' failed", emStatsText)
		}
	}
}

func (cb *Chunkbuf) writeSummaryJsonl(out io.Writer) error {
	jsonl, err := json.Marshal(cb.statSummary)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", jsonl)
	return err
}

func (cb *Chunkbuf) writeSummaryText(out io.Writer) error {
	smr := &cb.statSummary

	elapsed := time.Duration(smr.SysStats.ElapsedNsecs)
	var rate string
	if secs := elapsed.Seconds(); secs > 0 {
		rate = fmt.Sprintf(" (%s/s)", text.Bytes(int64(float64(smr.Payload)/secs)))
	}

	var sizes string
	if smr.ChunkSizes != nil && smr.Chunks > 0 {
		sizes = fmt.Sprintf(
			"\n  chunk sizes  : %s min, %s max, %s avg",
			text.Commify(smr.ChunkSizes.Min),
			text.Commify(smr.ChunkSizes.Max),
			text.Commify64(smr.Payload/smr.Chunks),
		)
	}

	var frames string
	if smr.Frames != nil {
		frames = fmt.Sprintf(
			"\n  frames body  : %s bytes, compression '%s'",
			text.Commify64(smr.Frames.BodyBytes),
			smr.Frames.Compression,
		)
	}

	_, err := fmt.Fprintf(out, `
Run %s (%s) processed %s stream(s), %s of them empty
  payload      : %s bytes in %s chunks
  elapsed      : %s%s%s%s
  cpu          : %s user, %s sys, maxrss %s
`,
		smr.RunID,
		smr.Mode,
		text.Commify64(smr.Streams),
		text.Commify64(smr.EmptyStreams),
		text.Commify64(smr.Payload),
		text.Commify64(smr.Chunks),
		elapsed.Round(time.Microsecond),
		rate,
		sizes,
		frames,
		time.Duration(smr.SysStats.CpuUserNsecs).Round(time.Microsecond),
		time.Duration(smr.SysStats.CpuSysNsecs).Round(time.Microsecond),
		text.Bytes(smr.SysStats.MaxRssBytes),
	)
	return err
}
