package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

const dataPrefix = "data:"

// ParseFrame extracts a status token from a single newline-delimited frame.
// Frames are either "data: <token>" or a bare token. Blank frames and data
// frames with an empty payload yield ok == false.
func ParseFrame(line string) (StatusToken, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", false
	}
	if strings.HasPrefix(trimmed, dataPrefix) {
		payload := strings.TrimSpace(strings.TrimPrefix(trimmed, dataPrefix))
		if payload == "" {
			return "", false
		}
		return StatusToken(payload), true
	}
	return StatusToken(trimmed), true
}

// FrameScanner reads status tokens from a byte stream. Bytes are buffered
// until a newline arrives; a trailing frame without a newline is emitted when
// the stream ends.
type FrameScanner struct {
	r *bufio.Reader
}

func NewFrameScanner(r io.Reader) *FrameScanner {
	return &FrameScanner{r: bufio.NewReader(r)}
}

// Next returns the next non-blank token. It returns io.EOF once the stream
// has ended and every buffered frame has been emitted. Any other read error
// is returned as is; a partial frame preceding such an error is discarded.
func (s *FrameScanner) Next() (StatusToken, error) {
	for {
		line, err := s.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if token, ok := ParseFrame(line); ok {
					return token, nil
				}
				return "", io.EOF
			}
			return "", err
		}
		if token, ok := ParseFrame(line); ok {
			return token, nil
		}
	}
}
