package models

import "time"

// RawMessage is one undecoded message cut from an mbox archive.
type RawMessage struct {
	Index    int    // zero-based position in the archive
	Envelope string // the "From sender date" line, without the newline
	Text     string // RFC 2822 header block and body
	Offset   int64  // byte offset of the envelope line
}

// Email represents a normalized decoded message
type Email struct {
	From         string
	FromName     string
	To           []string
	Cc           []string
	Subject      string
	Date         time.Time
	BodyText     string
	BodyLines    []string
	Parts        []PartInfo
	DecodeErrors []error
	TraceID      string
}

// PartInfo describes one leaf MIME part seen while decoding.
type PartInfo struct {
	ContentType string
	Encoding    string
	Charset     string
	Size        int
}

// Recipients returns To followed by Cc.
func (e *Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc))
	out = append(out, e.To...)
	return append(out, e.Cc...)
}
