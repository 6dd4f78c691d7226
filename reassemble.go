package chunkbuf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/anjor/chunkbuf/internal/framing"
	"github.com/anjor/chunkbuf/internal/logging"
	"github.com/anjor/chunkbuf/pkg/deferbuf"
)

// processFrames decodes a frames stream, rebuilding every stream in a
// deferbuf.Buffer and writing it to stdout once its completion total checks
// out. With --multipart every stream is preceded by its SInt64BE size.
func (cb *Chunkbuf) processFrames(inputReader io.Reader) error {

	fr, err := framing.NewReader(inputReader)
	if err != nil {
		return err
	}
	defer fr.Close() //nolint:errcheck

	cb.statSummary.Frames = &frameStats{Compression: fr.Compression().String()}

	buf := deferbuf.New()
	var chunks int64
	cb.curStreamOffset = 0

	for {
		rec, err := fr.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if !rec.End {
			buf.Append(rec.Payload)
			chunks++
			cb.statSummary.Chunks++
			cb.statSummary.Payload += int64(len(rec.Payload))
			cb.curStreamOffset += int64(len(rec.Payload))
			cb.curStreamRead = cb.curStreamOffset
			continue
		}

		cb.statSummary.Streams++
		stream := cb.statSummary.Streams

		buf.Sync()
		if int64(buf.Len()) != rec.Total {
			return fmt.Errorf(
				"reassembled stream #%d holds %d bytes, completion record claims %d",
				stream,
				buf.Len(),
				rec.Total,
			)
		}

		if rec.Total == 0 {
			cb.statSummary.EmptyStreams++
		}

		if rec.Total > 0 || !cb.cfg.SkipNulInputs {
			if err := cb.writeReassembled(buf, rec.Total); err != nil {
				return err
			}
			if err := cb.emitStream(stream, chunks, rec.Total); err != nil {
				return err
			}
		}

		l := logging.WithStream(stream)
		l.Debug().Int64("chunks", chunks).Int64("payload", rec.Total).Msg("stream reassembled")

		buf.Reset()
		chunks = 0
		cb.curStreamOffset = 0
		cb.curStreamRead = 0
	}
}

func (cb *Chunkbuf) writeReassembled(buf *deferbuf.Buffer, total int64) error {
	if cb.cfg.MultipartStream {
		if err := binary.Write(cb.stdout, binary.BigEndian, total); err != nil {
			return fmt.Errorf("writing multipart size prefix failed: %w", err)
		}
	}
	if _, err := buf.WriteTo(cb.stdout); err != nil {
		return fmt.Errorf("writing reassembled stream failed: %w", err)
	}
	return nil
}
