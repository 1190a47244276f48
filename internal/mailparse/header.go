package mailparse

import (
	"bufio"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"

	"mbox-addressbook/internal/models"
)

var emailAddressRegex = regexp.MustCompile(`[a-zA-Z0-9._%+'-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Simple regex to extract email address from "From" header, which may contain name and email
func extractEmailAddress(fromHeader string) string {
	return emailAddressRegex.FindString(fromHeader)
}

// DecodeHeader decodes MIME-encoded headers (e.g., "=?UTF-8?B?...?=") to plain text
func DecodeHeader(encoded string) (string, error) {
	decoder := new(mime.WordDecoder)
	decoder.CharsetReader = charsetReader
	decoded, err := decoder.DecodeHeader(encoded)
	if err != nil {
		return "", err
	}
	return decoded, nil
}

// splitHeaderBody splits raw message text at the first empty line.
func splitHeaderBody(text string) (string, string) {
	if strings.HasPrefix(text, "\n") {
		return "", text[1:]
	}
	if i := strings.Index(text, "\n\n"); i != -1 {
		return text[:i+1], text[i+2:]
	}
	return text, ""
}

// parseHeaderBlock parses an RFC 5322 header block. It tries the strict
// textproto reader first and falls back to a lenient line parser that keeps
// every "Name: value" line it can find.
func parseHeaderBlock(block string) (mail.Header, error) {
	block = strings.TrimRight(block, "\n") + "\n\n"
	th, err := textproto.ReadHeader(bufio.NewReader(strings.NewReader(block)))
	if err == nil {
		return mail.Header{Header: message.Header{Header: th}}, nil
	}
	return mail.Header{Header: message.Header{Header: lenientHeader(block)}}, err
}

// lenientHeader unfolds continuation lines and ignores lines without a colon.
func lenientHeader(block string) textproto.Header {
	type field struct{ key, value string }
	var fields []field
	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(fields) > 0 {
				fields[len(fields)-1].value += " " + strings.TrimSpace(line)
			}
			continue
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		fields = append(fields, field{strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])})
	}

	var th textproto.Header
	// Add prepends, so walk backwards to keep the original order.
	for i := len(fields) - 1; i >= 0; i-- {
		th.Add(fields[i].key, fields[i].value)
	}
	return th
}

// fillEnvelope copies the addressing headers into email.
func fillEnvelope(h mail.Header, email *models.Email) {
	if list, err := h.AddressList("From"); err == nil && len(list) > 0 {
		email.From = models.NormalizeEmail(list[0].Address)
		email.FromName = strings.TrimSpace(list[0].Name)
	} else {
		raw := h.Get("From")
		email.From = models.NormalizeEmail(extractEmailAddress(raw))
		email.FromName = displayNameFallback(raw)
	}

	email.To = addressList(h, "To")
	email.Cc = addressList(h, "Cc")

	if subject, err := h.Subject(); err == nil {
		email.Subject = subject
	} else if decoded, err := DecodeHeader(h.Get("Subject")); err == nil {
		email.Subject = decoded
	} else {
		email.Subject = h.Get("Subject")
	}

	if date, err := h.Date(); err == nil {
		email.Date = date
	} else {
		email.Date = parseDate(h.Get("Date"))
	}
}

func addressList(h mail.Header, key string) []string {
	var out []string
	if list, err := h.AddressList(key); err == nil {
		for _, a := range list {
			if addr := models.NormalizeEmail(a.Address); addr != "" {
				out = append(out, addr)
			}
		}
		return out
	}
	for _, addr := range emailAddressRegex.FindAllString(h.Get(key), -1) {
		out = append(out, models.NormalizeEmail(addr))
	}
	return out
}

// displayNameFallback returns the text before "<" in a From value that
// net/mail could not parse.
func displayNameFallback(raw string) string {
	i := strings.IndexByte(raw, '<')
	if i <= 0 {
		return ""
	}
	name := strings.Trim(strings.TrimSpace(raw[:i]), `"'`)
	if decoded, err := DecodeHeader(name); err == nil {
		name = decoded
	}
	return strings.TrimSpace(name)
}

// parseDate tries common email Date header formats and returns zero time on failure.
func parseDate(dateStr string) time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC822Z,
		time.RFC822,
		time.RFC850,
		time.RFC3339,
		"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
		"2 Jan 2006 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, dateStr); err == nil {
			return t
		}
	}
	return time.Time{}
}
