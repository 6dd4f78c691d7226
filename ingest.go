package chunkbuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/anjor/chunkbuf/internal/constants"
	"github.com/anjor/chunkbuf/internal/framing"
	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/internal/util/text"
	"github.com/anjor/chunkbuf/pkg/segment"
	"github.com/ipfs/go-qringbuf"
	"github.com/rs/zerolog"
)

const (
	frameQueueSize = 2048
)

var errNoChunker = errors.New("no chunker configured, or the instance was destroyed")

const (
	ErrorString = IngestionEventType(iota)
	NewStreamJsonl
)

type IngestionEvent struct {
	_    constants.Incomparabe
	Type IngestionEventType
	Body string
}
type IngestionEventType int

func (cb *Chunkbuf) maybeSendEvent(t IngestionEventType, s string) {
	if cb.externalEventBus != nil {
		cb.externalEventBus <- IngestionEvent{Type: t, Body: s}
	}
}

// a chunk payload, or the completion of a stream when end is set
type frameUnit struct {
	_       constants.Incomparabe
	payload []byte
	end     bool
	total   int64
}

// ProcessReader consumes inputReader until EOF: segmenting it, or with
// --reassemble decoding it as a frames stream. The optional event channel
// receives errors and per-stream summaries, and is closed on return.
func (cb *Chunkbuf) ProcessReader(inputReader io.Reader, optionalEventChan chan<- IngestionEvent) (err error) {

	var t0 time.Time
	var ru0 rusageSample

	defer func() {

		// a little helper to deal with error stack craziness
		deferErrors := make(chan error, 1)

		// if we are already in error - just put it on the channel
		// we already sent the event earlier
		if err != nil {
			deferErrors <- err
		}

		// keep sending out events but keep at most 1 error to return synchronously
		addErr := func(e error) {
			if e != nil {
				cb.maybeSendEvent(ErrorString, e.Error())
				select {
				case deferErrors <- e:
				default:
				}
			}
		}

		// we are writing frames: need to wait/close things
		if cb.frameQueue != nil {
			close(cb.frameQueue)          // signal data-write stop
			addErr(<-cb.frameWriteError) // wait for data-write stop
			cb.frameQueue = nil
			cb.statSummary.Frames.BodyBytes = cb.frameWriter.BodyBytes()
		}

		if err == nil && len(deferErrors) > 0 {
			err = <-deferErrors
		}

		if ru0.valid {
			cb.statSummary.SysStats.addRusage(ru0, readRusage())
		}

		cb.qrb = nil
		if cb.externalEventBus != nil {
			close(cb.externalEventBus)
			cb.externalEventBus = nil
		}

		cb.statSummary.SysStats.ElapsedNsecs = time.Since(t0).Nanoseconds()
	}()

	cb.externalEventBus = optionalEventChan
	defer func() {
		if err != nil {

			var buffered int
			if cb.qrb != nil {
				cb.qrb.Lock()
				buffered = cb.qrb.Buffered()
				cb.qrb.Unlock()
			}

			err = fmt.Errorf(
				"failure at byte offset %s of sub-stream #%d with %s bytes buffered/unprocessed: %w",
				text.Commify64(cb.curStreamOffset),
				cb.statSummary.Streams,
				text.Commify64(cb.curStreamRead-cb.curStreamOffset+int64(buffered)),
				err,
			)

			cb.maybeSendEvent(ErrorString, err.Error())
		}
	}()

	ru0 = readRusage()
	t0 = time.Now()

	if cb.cfg.Reassemble {
		return cb.processFrames(inputReader)
	}

	if cb.chunker.instance == nil {
		return errNoChunker
	}

	cb.qrb, err = qringbuf.NewFromReader(inputReader, qringbuf.Config{
		// chunkers copy out whatever they are handed, a region only needs to
		// cover the largest chunk
		MinRegion:   2 * constants.MaxChunkSize,
		MinRead:     int(cb.cfg.ringBufferMinRead),
		MaxCopy:     2 * constants.MaxChunkSize,
		BufferSize:  int(cb.cfg.ringBufferSize),
		SectorSize:  int(cb.cfg.ringBufferSectSize),
		Stats:       &cb.statSummary.SysStats.RingBuffer,
		TrackTiming: ((cb.cfg.StatsActive & statsRingbuf) == statsRingbuf),
	})
	if err != nil {
		return
	}

	// We got that far - write out the frames header
	if cb.framesOut != nil {
		comp := framing.AvailableCompressions[cb.cfg.compression]
		if cb.frameWriter, err = framing.NewWriter(cb.framesOut, comp); err != nil {
			return
		}

		// start the async writer here, once we know nothing errorred
		cb.frameQueue = make(chan frameUnit, frameQueueSize)
		cb.frameWriteError = make(chan error, 1)
		go cb.backgroundFrameWriter()
	}

	if (cb.cfg.StatsActive & statsChunkSizing) == statsChunkSizing {
		cb.statSummary.ChunkSizes = newChunkSizeStats()
	}

	// use 64bits everywhere
	var substreamSize int64

	// outer stream loop: read() syscalls happen only here and in the qrb.collector()
	for {
		if cb.cfg.MultipartStream {

			err := binary.Read(
				inputReader,
				binary.BigEndian,
				&substreamSize,
			)
			cb.statSummary.SysStats.PrefixReads++

			if err == io.EOF {
				// no new multipart coming - bail
				break
			} else if err != nil {
				return fmt.Errorf(
					"error reading next 8-byte multipart substream size: %w",
					err,
				)
			}

			if substreamSize < 0 {
				return fmt.Errorf("invalid negative multipart substream size %d", substreamSize)
			}

			if substreamSize == 0 && cb.cfg.SkipNulInputs {
				continue
			}
		}

		cb.statSummary.Streams++
		cb.curStreamOffset = 0
		cb.curStreamRead = 0

		sink := &streamSink{
			cb:     cb,
			stream: cb.statSummary.Streams,
			log:    logging.WithStream(cb.statSummary.Streams),
		}
		w, err := cb.chunker.instance.NewWriter(sink)
		if err != nil {
			return err
		}
		if !cb.chunker.constants.Streaming {
			sink.log.Debug().Msg("chunker holds the entire stream before emitting")
		}

		if !(cb.cfg.MultipartStream && substreamSize == 0) {
			if err := cb.processStream(substreamSize, w); err == io.ErrUnexpectedEOF {
				return fmt.Errorf(
					"unexpected end of substream #%s after %s bytes (stream expected to be %s bytes long)",
					text.Commify64(cb.statSummary.Streams),
					text.Commify64(cb.curStreamRead+int64(cb.qrb.Buffered())),
					text.Commify64(substreamSize),
				)
			} else if err != nil && err != io.EOF {
				return err
			}
		}

		// flushes the final chunk and completes the stream
		if err := w.Close(); err != nil {
			return err
		}

		// we are in EOF-state: if we are not expecting multiparts - we are done
		if !cb.cfg.MultipartStream {
			break
		}
	}

	return
}

// processStream feeds ring buffer regions into the chunker writer until
// streamLimit bytes (or everything, when 0) have been consumed.
func (cb *Chunkbuf) processStream(streamLimit int64, w io.Writer) error {

	// begin reading and filling buffer
	if err := cb.qrb.StartFill(streamLimit); err != nil {
		return err
	}

	for {

		// everything from the previous region was copied out by the writer
		workRegion, readErr := cb.qrb.NextRegion(0)

		if workRegion == nil || (readErr != nil && readErr != io.EOF) {
			return readErr
		}

		cb.curStreamRead += int64(workRegion.Size())
		if _, err := w.Write(workRegion.Bytes()); err != nil {
			return err
		}
	}
}

// streamSink receives the chunks of a single stream
type streamSink struct {
	cb      *Chunkbuf
	stream  int64
	chunks  int64
	emitted int64
	log     zerolog.Logger
}

func (s *streamSink) ChunkFound(c segment.Chunk) error {
	cb := s.cb

	// a dead frame writer aborts the stream
	if err := cb.frameErr.Load(); err != nil {
		return err
	}

	size := len(c.Data)
	offset := c.Cumulative - int64(size)
	if constants.PerformSanityChecks && (size == 0 || offset != s.emitted) {
		return fmt.Errorf(
			"chunk #%d of %d bytes at offset %d does not continue the previous chunk ending at %d",
			s.chunks,
			size,
			offset,
			s.emitted,
		)
	}
	s.emitted = c.Cumulative
	cb.curStreamOffset = c.Cumulative
	cb.statSummary.Chunks++
	cb.statSummary.Payload += int64(size)
	if cb.statSummary.ChunkSizes != nil {
		cb.statSummary.ChunkSizes.add(size)
	}

	if out := cb.cfg.emitters[emChunksJsonl]; out != nil {
		var dgst string
		if cb.digester.Active() {
			dgst = fmt.Sprintf(`, "%s":"%s"`, cb.digester.HasherName(), cb.digester.Sum(c.Data))
		}
		if _, err := fmt.Fprintf(out,
			"{\"event\":  \"chunk\", \"stream\":%7d, \"index\":%9d, \"offset\":%12d, \"size\":%8d, \"cumulative\":%12d%s }\n",
			s.stream,
			s.chunks,
			offset,
			size,
			c.Cumulative,
			dgst,
		); err != nil {
			return fmt.Errorf("emitting '%s' failed: %w", emChunksJsonl, err)
		}
	}
	s.chunks++

	if cb.frameQueue != nil {
		cb.frameQueue <- frameUnit{payload: c.Data}
	}

	return nil
}

func (s *streamSink) ChunksExhausted(total int64) error {
	cb := s.cb

	if constants.PerformSanityChecks && total != s.emitted {
		return fmt.Errorf("stream completed with %d bytes after %d were chunked", total, s.emitted)
	}

	if total == 0 {
		cb.statSummary.EmptyStreams++
		if cb.cfg.SkipNulInputs {
			return nil
		}
	}

	if cb.frameQueue != nil {
		cb.frameQueue <- frameUnit{end: true, total: total}
	}

	s.log.Debug().Int64("chunks", s.chunks).Int64("payload", total).Msg("stream segmented")
	return cb.emitStream(s.stream, s.chunks, total)
}

func (cb *Chunkbuf) emitStream(stream, chunks, total int64) error {
	jsonl := fmt.Sprintf(
		"{\"event\": \"stream\", \"stream\":%7d, \"chunks\":%9d, \"payload\":%12d }\n",
		stream,
		chunks,
		total,
	)
	cb.maybeSendEvent(NewStreamJsonl, jsonl)
	if out := cb.cfg.emitters[emStreamsJsonl]; out != nil {
		if _, err := io.WriteString(out, jsonl); err != nil {
			return fmt.Errorf("emitting '%s' failed: %w", emStreamsJsonl, err)
		}
	}
	return nil
}

func (cb *Chunkbuf) backgroundFrameWriter() {
	defer close(cb.frameWriteError)

	var err error
	for fu := range cb.frameQueue {
		// keep draining after a failure, the producer must never block
		if err != nil {
			continue
		}

		if fu.end {
			err = cb.frameWriter.EndStream(fu.total)
		} else {
			err = cb.frameWriter.WriteChunk(fu.payload)
		}

		if err != nil {
			cb.frameErr.Store(err)
		}
	}

	if cerr := cb.frameWriter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cb.frameWriteError <- fmt.Errorf("writing frames stream failed: %w", err)
	}
}
