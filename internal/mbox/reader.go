// Package mbox streams messages out of mbox archives without loading them
// into memory, and hosts the generic predicate scanner built on top of it.
package mbox

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// DefaultMaxMessageBytes caps the text kept for one message.
const DefaultMaxMessageBytes = 32 << 20

// Reader yields the messages of one archive in order. It is not safe for
// concurrent use and cannot be rewound.
type Reader struct {
	br       *bufio.Reader
	closer   io.Closer
	maxBytes int

	lineNo int
	offset int64

	pending       string // envelope line of the message being assembled
	pendingOffset int64
	havePending   bool
	eof           bool

	index      int
	truncated  int
	boundaries []*models.ParseBoundaryError
}

// Open opens an mbox file for streaming.
func Open(path string, maxMessageBytes int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	r := NewReader(f, maxMessageBytes)
	r.closer = f
	return r, nil
}

// NewReader wraps an already opened stream.
func NewReader(r io.Reader, maxMessageBytes int) *Reader {
	if maxMessageBytes <= 0 {
		maxMessageBytes = DefaultMaxMessageBytes
	}
	return &Reader{
		br:       bufio.NewReaderSize(r, 64*1024),
		maxBytes: maxMessageBytes,
	}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Count returns how many messages have been returned so far.
func (r *Reader) Count() int { return r.index }

// Truncated returns how many messages exceeded the size cap.
func (r *Reader) Truncated() int { return r.truncated }

// Boundaries returns the ambiguous "From " lines that were kept as body text.
func (r *Reader) Boundaries() []*models.ParseBoundaryError { return r.boundaries }

// Next returns the next message, or io.EOF once the archive is exhausted.
// Any other error is an I/O failure of the underlying stream.
func (r *Reader) Next() (*models.RawMessage, error) {
	if !r.havePending {
		if err := r.seekFirstEnvelope(); err != nil {
			return nil, err
		}
	}

	msg := &models.RawMessage{
		Index:    r.index,
		Envelope: r.pending,
		Offset:   r.pendingOffset,
	}
	r.havePending = false

	var text strings.Builder
	truncated := false
	prevBlank := true
	for {
		line, start, err := r.readLine()
		if err == io.EOF {
			r.eof = true
			break
		}
		if err != nil {
			return nil, err
		}
		if IsEnvelope(line) {
			r.pending, r.pendingOffset, r.havePending = line, start, true
			break
		}
		if prevBlank && strings.HasPrefix(line, "From ") {
			r.noteBoundary(line, "envelope-like line without address")
		}
		prevBlank = line == ""

		line = unescapeFrom(line)
		if truncated {
			continue
		}
		if text.Len()+len(line)+1 > r.maxBytes {
			truncated = true
			r.truncated++
			logging.Log.WithField("message", msg.Index).Warnf("Message exceeds %d bytes, truncating", r.maxBytes)
			continue
		}
		text.WriteString(line)
		text.WriteByte('\n')
	}

	msg.Text = text.String()
	r.index++
	return msg, nil
}

// seekFirstEnvelope skips any preamble before the first envelope line.
func (r *Reader) seekFirstEnvelope() error {
	if r.eof {
		return io.EOF
	}
	for {
		line, start, err := r.readLine()
		if err == io.EOF {
			r.eof = true
			return io.EOF
		}
		if err != nil {
			return err
		}
		if IsEnvelope(line) {
			r.pending, r.pendingOffset, r.havePending = line, start, true
			return nil
		}
		if strings.TrimSpace(line) != "" {
			r.noteBoundary(line, "text before first envelope")
		}
	}
}

// readLine returns one line without its terminator and the offset it began at.
func (r *Reader) readLine() (string, int64, error) {
	if r.eof {
		return "", r.offset, io.EOF
	}
	start := r.offset
	line, err := r.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", start, fmt.Errorf("read line %d: %w", r.lineNo+1, err)
	}
	if line == "" && errors.Is(err, io.EOF) {
		return "", start, io.EOF
	}
	r.offset += int64(len(line))
	r.lineNo++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, start, nil
}

func (r *Reader) noteBoundary(line, reason string) {
	be := &models.ParseBoundaryError{Line: r.lineNo, Text: line, Reason: reason}
	r.boundaries = append(r.boundaries, be)
	logging.Log.Debug(be.Error())
}

// IsEnvelope reports whether line starts a new message: "From " at the start
// of the line followed by a token containing '@'. A quoted envelope line in a
// body that also carries an address will split the message; that is a known
// limitation of the format.
func IsEnvelope(line string) bool {
	if !strings.HasPrefix(line, "From ") {
		return false
	}
	fields := strings.Fields(line[len("From "):])
	if len(fields) == 0 {
		return false
	}
	return strings.Contains(fields[0], "@")
}

// EnvelopeSender returns the address token of an envelope line.
func EnvelopeSender(envelope string) string {
	fields := strings.Fields(strings.TrimPrefix(envelope, "From "))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// unescapeFrom removes one level of ">From " quoting.
func unescapeFrom(line string) string {
	trimmed := strings.TrimLeft(line, ">")
	if len(trimmed) < len(line) && strings.HasPrefix(trimmed, "From ") {
		return line[1:]
	}
	return line
}
