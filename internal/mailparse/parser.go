package mailparse

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"mbox-addressbook/internal/models"

	"github.com/emersion/go-message"
	"github.com/google/uuid"
)

// Parse decodes one raw archive message into a normalized Email. A message is
// never dropped: header or body sections that fail to decode are kept as raw
// text and reported through Email.DecodeErrors. The returned error joins those
// decode errors and is informational only.
func Parse(raw *models.RawMessage) (*models.Email, error) {
	email := &models.Email{TraceID: uuid.New().String()}

	headerBlock, body := splitHeaderBody(raw.Text)
	header, err := parseHeaderBlock(headerBlock)
	if err != nil {
		email.DecodeErrors = append(email.DecodeErrors, &models.DecodeError{Encoding: "header", Part: "message", Err: err})
	}
	fillEnvelope(header, email)

	d := newBodyDecoder(header.Header)
	if body != "" {
		for _, line := range strings.Split(strings.TrimSuffix(body, "\n"), "\n") {
			d.feed(line)
		}
	}
	d.finish()

	email.Parts = d.parts
	email.DecodeErrors = append(email.DecodeErrors, d.errs...)

	switch {
	case d.plain != "":
		email.BodyText = d.plain
	case d.html != "":
		email.BodyText = HTMLToText(d.html)
	case len(d.parts) == 0:
		email.BodyText = body
	}
	email.BodyLines = splitLines(email.BodyText)

	return email, errors.Join(email.DecodeErrors...)
}

type decoderState int

const (
	stateSkip    decoderState = iota // preamble or epilogue of a multipart
	stateHeaders                     // reading the header block of a part
	stateLeaf                        // reading the body of a non-multipart part
)

// partHeader is what the decoder needs to know about the current part.
type partHeader struct {
	contentType string
	charset     string
	encoding    string
	boundary    string
	attachment  bool
}

// bodyDecoder is a line-oriented MIME body decoder. It tracks the boundary
// stack and the current part's content type and transfer encoding, decodes
// quoted-printable line by line, and buffers base64 until the next boundary
// (of any nesting level) or the end of the message.
type bodyDecoder struct {
	boundaries []string
	state      decoderState
	cur        partHeader

	headerLines []string
	decoded     bytes.Buffer
	b64         strings.Builder
	raw         strings.Builder
	qpBad       int

	plain string
	html  string
	parts []models.PartInfo
	errs  []error
}

func newBodyDecoder(h message.Header) *bodyDecoder {
	d := &bodyDecoder{}
	d.enter(describePart(h))
	return d
}

// enter starts a part described by ph.
func (d *bodyDecoder) enter(ph partHeader) {
	d.cur = ph
	d.decoded.Reset()
	d.b64.Reset()
	d.raw.Reset()
	d.qpBad = 0
	if strings.HasPrefix(ph.contentType, "multipart/") && ph.boundary != "" {
		d.boundaries = append(d.boundaries, ph.boundary)
		d.state = stateSkip
		return
	}
	d.state = stateLeaf
}

func (d *bodyDecoder) feed(line string) {
	if d.boundary(line) {
		return
	}

	switch d.state {
	case stateSkip:
	case stateHeaders:
		if strings.TrimSpace(line) == "" {
			h, _ := parseHeaderBlock(strings.Join(d.headerLines, "\n"))
			d.headerLines = nil
			d.enter(describePart(h.Header))
			return
		}
		d.headerLines = append(d.headerLines, line)
	case stateLeaf:
		d.raw.WriteString(line)
		d.raw.WriteByte('\n')
		switch d.cur.encoding {
		case "base64":
			d.b64.WriteString(strings.TrimSpace(line))
		case "quoted-printable":
			decoded, soft, bad := decodeQPLine(line)
			d.decoded.Write(decoded)
			if !soft {
				d.decoded.WriteByte('\n')
			}
			d.qpBad += bad
		default:
			d.decoded.WriteString(line)
			d.decoded.WriteByte('\n')
		}
	}
}

// boundary handles a delimiter line of any active multipart. Returns false
// when line is not a delimiter.
func (d *bodyDecoder) boundary(line string) bool {
	if len(d.boundaries) == 0 || !strings.HasPrefix(line, "--") {
		return false
	}
	line = strings.TrimRight(line, " \t")
	for i := len(d.boundaries) - 1; i >= 0; i-- {
		b := "--" + d.boundaries[i]
		switch line {
		case b:
			d.flush()
			d.boundaries = d.boundaries[:i+1]
			d.state = stateHeaders
			d.headerLines = nil
			return true
		case b + "--":
			d.flush()
			d.boundaries = d.boundaries[:i]
			d.state = stateSkip
			return true
		}
	}
	return false
}

func (d *bodyDecoder) finish() {
	d.flush()
}

// flush decodes the buffered leaf part and records it.
func (d *bodyDecoder) flush() {
	if d.state != stateLeaf {
		return
	}
	d.state = stateSkip

	body := d.decoded.Bytes()
	switch d.cur.encoding {
	case "base64":
		data, err := decodeBase64(d.b64.String())
		if err != nil {
			d.errs = append(d.errs, &models.DecodeError{Encoding: "base64", Part: d.cur.contentType, Err: err})
			body = []byte(d.raw.String())
		} else {
			body = data
		}
	case "quoted-printable":
		if d.qpBad > 0 {
			d.errs = append(d.errs, &models.DecodeError{Encoding: "quoted-printable", Part: d.cur.contentType, Err: errMalformedEscape})
		}
	}

	text := toUTF8(body, d.cur.charset)
	d.parts = append(d.parts, models.PartInfo{
		ContentType: d.cur.contentType,
		Encoding:    d.cur.encoding,
		Charset:     d.cur.charset,
		Size:        len(text),
	})
	if d.cur.attachment {
		return
	}
	switch d.cur.contentType {
	case "text/plain":
		if d.plain == "" {
			d.plain = text
		}
	case "text/html":
		if d.html == "" {
			d.html = text
		}
	}
}

func describePart(h message.Header) partHeader {
	ph := partHeader{contentType: "text/plain"}
	if t, params, err := h.ContentType(); err == nil && t != "" {
		ph.contentType = strings.ToLower(t)
		ph.charset = params["charset"]
		ph.boundary = params["boundary"]
	}
	ph.encoding = strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding")))
	if disp, _, err := h.ContentDisposition(); err == nil && disp == "attachment" {
		ph.attachment = true
	}
	return ph
}

// decodeBase64 accepts padded and unpadded input with embedded whitespace.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return lines
}
