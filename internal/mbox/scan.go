package mbox

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gombox "github.com/emersion/go-mbox"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/mailparse"
	"mbox-addressbook/internal/models"
)

// Predicate selects messages during a scan. Both the raw and the decoded form
// are available so header checks can run against the original text.
type Predicate func(raw *models.RawMessage, email *models.Email) bool

// HeaderContains matches when the named header of the decoded message
// contains substr, case-insensitively. Supported names are From, To, Cc and
// Subject; anything else is searched in the raw header block.
func HeaderContains(name, substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(raw *models.RawMessage, email *models.Email) bool {
		var values []string
		switch strings.ToLower(name) {
		case "from":
			values = []string{email.From, email.FromName}
		case "to":
			values = email.To
		case "cc":
			values = email.Cc
		case "subject":
			values = []string{email.Subject}
		default:
			values = rawHeaderValues(raw.Text, name)
		}
		for _, v := range values {
			if strings.Contains(strings.ToLower(v), substr) {
				return true
			}
		}
		return false
	}
}

// SubjectContains is HeaderContains("Subject", substr).
func SubjectContains(substr string) Predicate {
	return HeaderContains("Subject", substr)
}

// BodyContains matches decoded body text case-insensitively.
func BodyContains(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(_ *models.RawMessage, email *models.Email) bool {
		return strings.Contains(strings.ToLower(email.BodyText), substr)
	}
}

// FromDomain matches senders at domain or any of its subdomains.
func FromDomain(domain string) Predicate {
	domain = strings.ToLower(strings.TrimPrefix(domain, "@"))
	return func(_ *models.RawMessage, email *models.Email) bool {
		_, d := models.SplitAddress(email.From)
		return d == domain || strings.HasSuffix(d, "."+domain)
	}
}

// And matches when every predicate matches. And() matches everything.
func And(preds ...Predicate) Predicate {
	return func(raw *models.RawMessage, email *models.Email) bool {
		for _, p := range preds {
			if !p(raw, email) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(raw *models.RawMessage, email *models.Email) bool {
		for _, p := range preds {
			if p(raw, email) {
				return true
			}
		}
		return false
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(raw *models.RawMessage, email *models.Email) bool {
		return !p(raw, email)
	}
}

// ScanStats summarizes one scan.
type ScanStats struct {
	Messages     int
	Matches      int
	DecodeErrors int
}

// Scan reads every message from r and calls fn for those matching pred. A
// non-nil error from fn stops the scan and is returned. Decode failures are
// counted but never stop the scan.
func Scan(r *Reader, pred Predicate, fn func(raw *models.RawMessage, email *models.Email) error) (ScanStats, error) {
	var stats ScanStats
	for {
		raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.Messages++

		email, decodeErr := mailparse.Parse(raw)
		if decodeErr != nil {
			stats.DecodeErrors++
			logging.Log.WithField("trace_id", email.TraceID).Debugf("Message %d decoded with errors: %v", raw.Index, decodeErr)
		}
		if !pred(raw, email) {
			continue
		}
		stats.Matches++
		if err := fn(raw, email); err != nil {
			return stats, err
		}
	}
}

// MatchWriter copies matched messages into a new mbox stream.
type MatchWriter struct {
	mw *gombox.Writer
}

// NewMatchWriter writes an mbox to w. Close must be called to finish it.
func NewMatchWriter(w io.Writer) *MatchWriter {
	return &MatchWriter{mw: gombox.NewWriter(w)}
}

// Write appends one message, preserving its envelope sender.
func (m *MatchWriter) Write(raw *models.RawMessage, email *models.Email) error {
	from := EnvelopeSender(raw.Envelope)
	if from == "" {
		from = email.From
	}
	date := email.Date
	if date.IsZero() {
		date = time.Unix(0, 0).UTC()
	}

	w, err := m.mw.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("create message %d: %w", raw.Index, err)
	}
	if _, err := io.WriteString(w, raw.Text); err != nil {
		return fmt.Errorf("write message %d: %w", raw.Index, err)
	}
	return nil
}

// Close flushes the final message.
func (m *MatchWriter) Close() error {
	return m.mw.Close()
}

// rawHeaderValues returns the unfolded values of header name in text.
func rawHeaderValues(text, name string) []string {
	var out []string
	prefix := strings.ToLower(name) + ":"
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			break
		}
		if !strings.HasPrefix(strings.ToLower(line), prefix) {
			continue
		}
		value := strings.TrimSpace(line[len(prefix):])
		for i+1 < len(lines) && lines[i+1] != "" && (lines[i+1][0] == ' ' || lines[i+1][0] == '\t') {
			i++
			value += " " + strings.TrimSpace(lines[i])
		}
		out = append(out, value)
	}
	return out
}
