package diag

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

type streamKind int

const (
	kindLog streamKind = iota
	kindError
	kindHeader
)

// Stream is one diagnostic message in progress. It is not safe to keep a
// stream open across cycles; the prefix is computed when each line starts.
type Stream struct {
	sink      *Sink
	kind      streamKind
	lineStart bool
	closed    bool
}

var _ io.WriteCloser = (*Stream)(nil)

// Write prefixes every line start and forwards p to the sink output.
func (st *Stream) Write(p []byte) (int, error) {
	out := st.sink.out
	rest := p
	for len(rest) > 0 {
		if st.lineStart {
			if _, err := io.WriteString(out, st.linePrefix()); err != nil {
				return len(p) - len(rest), err
			}
			st.lineStart = false
		}

		n := bytes.IndexByte(rest, '\n')
		chunk := rest
		if n >= 0 {
			chunk = rest[:n+1]
			st.lineStart = true
		}
		if _, err := out.Write(chunk); err != nil {
			return len(p) - len(rest), err
		}
		rest = rest[len(chunk):]
	}
	return len(p), nil
}

// Printf writes a formatted message.
func (st *Stream) Printf(format string, args ...any) {
	fmt.Fprintf(st, format, args...)
}

// Close terminates the stream. Error streams write their bottom border and
// trigger the abort hook when configured; header streams write their
// bottom border. Closing twice is a no-op.
func (st *Stream) Close() error {
	if st.closed {
		return nil
	}
	st.closed = true

	s := st.sink
	if st.kind != kindLog && !st.lineStart {
		if _, err := io.WriteString(s.out, "\n"); err != nil {
			return err
		}
		st.lineStart = true
	}

	switch st.kind {
	case kindError:
		if _, err := fmt.Fprintln(s.out, strings.Repeat("!", s.width)); err != nil {
			return err
		}
		if s.abortOnError {
			s.abort()
		}
	case kindHeader:
		if _, err := fmt.Fprintln(s.out, strings.Repeat("#", s.width)); err != nil {
			return err
		}
	}
	return nil
}

func (st *Stream) linePrefix() string {
	p := st.sink.prefix()
	if st.kind == kindError {
		p += "*** "
	}
	return p
}
