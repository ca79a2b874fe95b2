// Package streaming provides Server-Sent Events parsing and writing for the
// Progress Bus's real-time event stream (spec.md §6 "Progress stream").
// The source specifies a bidirectional WebSocket; this repo carries the
// event semantics (the closed event-type set, per-conversation ordering)
// over SSE, since the gateway's own streaming package is SSE-based and this
// system has no other bidirectional transport need. Opening the stream for
// a conversation joins it and disconnecting leaves it; there is no separate
// join/leave request and no joined acknowledgement event.
package streaming

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"agentmesh/internal/logger"
)

// Event is a single SSE event.
type Event struct {
	ID    string
	Event string
	Data  string
	Retry int
}

// Parser reads SSE events from an io.Reader.
type Parser struct {
	reader  *bufio.Reader
	event   Event
	scratch bytes.Buffer
	log     *slog.Logger
}

// NewParser wraps r in an SSE Parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r), log: logger.WithComponent("streaming")}
}

// Next reads the next event, returning io.EOF when the stream ends.
func (p *Parser) Next() (Event, error) {
	p.event = Event{}
	p.scratch.Reset()
	var hasFields bool

	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if p.scratch.Len() > 0 || hasFields {
					p.event.Data = p.scratch.String()
					return p.event, nil
				}
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))

		if len(line) == 0 {
			if p.scratch.Len() > 0 || hasFields {
				p.event.Data = p.scratch.String()
				return p.event, nil
			}
			continue
		}
		if line[0] == ':' {
			continue
		}
		p.parseField(line)
		hasFields = true
	}
}

func (p *Parser) parseField(line []byte) {
	colonIdx := bytes.IndexByte(line, ':')
	var field, value []byte
	if colonIdx == -1 {
		field = line
	} else {
		field = line[:colonIdx]
		value = line[colonIdx+1:]
		if len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
	}

	switch string(field) {
	case "id":
		p.event.ID = string(value)
	case "event":
		p.event.Event = string(value)
	case "data":
		if p.scratch.Len() > 0 {
			p.scratch.WriteByte('\n')
		}
		p.scratch.Write(value)
	case "retry":
		if retry, err := strconv.Atoi(string(value)); err == nil {
			p.event.Retry = retry
		}
	}
}

// Writer writes SSE events to an http.ResponseWriter.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	closed  bool
	log     *slog.Logger
}

// NewWriter sets SSE headers on w and returns a Writer. Errors if w does
// not support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported: ResponseWriter does not implement http.Flusher")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher, log: logger.WithComponent("streaming")}, nil
}

// WriteEvent writes one SSE event.
func (w *Writer) WriteEvent(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("stream is closed")
	}

	var buf strings.Builder
	if event.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", event.ID)
	}
	if event.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", event.Event)
	}
	if event.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", event.Retry)
	}
	for _, line := range strings.Split(event.Data, "\n") {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')

	if _, err := w.w.Write([]byte(buf.String())); err != nil {
		return fmt.Errorf("write sse event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// Close marks the writer closed; further WriteEvent calls error.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
