package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/dragonrelay/pkg/log"
	"github.com/tauraamui/dragonrelay/pkg/metrics"
	"github.com/tauraamui/dragonrelay/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const Boundary = "frame"

var ErrViewerGone = xerror.New("viewer has gone away")

// Source yields frames for a single viewer. Next must return io.EOF
// once no more frames will be produced.
type Source interface {
	Next(context.Context) (videoframe.Encoded, error)
	Close()
}

func ContentType(boundary string) string {
	return fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", boundary)
}

// Chunk frames an encoded image as a single multipart part.
func Chunk(boundary string, frame videoframe.Encoded) []byte {
	header := fmt.Sprintf("--%s\r\nContent-Type: %s\r\n\r\n", boundary, frame.MIMEType)
	chunk := make([]byte, 0, len(header)+frame.Len()+2)
	chunk = append(chunk, header...)
	chunk = append(chunk, frame.Data...)
	return append(chunk, '\r', '\n')
}

func WriteChunk(w io.Writer, boundary string, frame videoframe.Encoded) (int, error) {
	return w.Write(Chunk(boundary, frame))
}

type Session struct {
	id        string
	src       Source
	boundary  string
	closeOnce sync.Once
	mu        sync.Mutex
	written   uint64
}

func NewSession(src Source, boundary string) *Session {
	return &Session{
		id:       uuid.NewString(),
		src:      src,
		boundary: boundary,
	}
}

func (s *Session) ID() string { return s.id }

// Next waits for a frame newer than the last one handed out and
// returns it framed as a chunk.
func (s *Session) Next(ctx context.Context) ([]byte, error) {
	frame, err := s.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	return Chunk(s.boundary, frame), nil
}

// Serve writes chunks to w until the source ends, ctx is done or a
// write fails. The source is always closed on return.
func (s *Session) Serve(ctx context.Context, w io.Writer, flush func()) error {
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	defer s.Close()

	log.Debug("Stream session [%s] attached", s.id)
	for {
		chunk, err := s.Next(ctx)
		if err != nil {
			if isEndOfStream(err) {
				log.Debug("Stream session [%s] finished after %d chunks", s.id, s.Written())
				return nil
			}
			return err
		}

		if _, err := w.Write(chunk); err != nil {
			return xerror.Errorf("stream session [%s]: %w: %v", s.id, ErrViewerGone, err)
		}
		if flush != nil {
			flush()
		}

		s.mu.Lock()
		s.written++
		s.mu.Unlock()
		metrics.ChunksWritten.Inc()
	}
}

func (s *Session) Written() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *Session) Close() {
	s.closeOnce.Do(s.src.Close)
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
