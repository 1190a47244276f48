package mbox

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArchive = "stray preamble\n" +
	"From jane@rate.com Mon Jan  1 00:00:00 2024\n" +
	"From: Jane Doe <jane@rate.com>\n" +
	"Subject: one\n" +
	"\n" +
	"hello\n" +
	"\n" +
	"From here on we talk rates\n" +
	">From the desk of Jane\n" +
	"\n" +
	"From bob@example.com Tue Jan  2 00:00:00 2024\n" +
	"From: bob@example.com\n" +
	"Subject: two\n" +
	"\n" +
	"second\n"

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var texts []string
	for {
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			return texts
		}
		require.NoError(t, err)
		texts = append(texts, msg.Text)
	}
}

func TestReader_SplitsOnEnvelopeWithAddress(t *testing.T) {
	r := NewReader(strings.NewReader(sampleArchive), 0)
	texts := readAll(t, r)

	require.Len(t, texts, 2)
	assert.Equal(t, 2, r.Count())
	assert.Contains(t, texts[0], "From here on we talk rates\n")
	assert.Contains(t, texts[0], "\nFrom the desk of Jane\n", ">From should be unescaped once")
	assert.True(t, strings.HasPrefix(texts[1], "From: bob@example.com\n"))

	// preamble plus the address-less "From " line after a blank line
	assert.Len(t, r.Boundaries(), 2)
}

func TestReader_EnvelopeAndOffset(t *testing.T) {
	r := NewReader(strings.NewReader(sampleArchive), 0)

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "From jane@rate.com Mon Jan  1 00:00:00 2024", first.Envelope)
	assert.Equal(t, int64(len("stray preamble\n")), first.Offset)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "bob@example.com", EnvelopeSender(second.Envelope))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "reader stays exhausted")
}

func TestReader_TruncatesOversizeMessage(t *testing.T) {
	archive := "From a@b.com Mon Jan  1 00:00:00 2024\n" +
		"Subject: x\n" +
		"0123456789\n" +
		"more text\n" +
		"From c@d.com Mon Jan  1 00:00:00 2024\n" +
		"Subject: y\n"

	r := NewReader(strings.NewReader(archive), 20)
	texts := readAll(t, r)

	require.Len(t, texts, 2)
	assert.Equal(t, "Subject: x\n", texts[0])
	assert.Equal(t, "Subject: y\n", texts[1])
	assert.Equal(t, 1, r.Truncated())
}

func TestReader_EmptyAndCRLF(t *testing.T) {
	r := NewReader(strings.NewReader(""), 0)
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)

	r = NewReader(strings.NewReader("From a@b.com Mon Jan  1 00:00:00 2024\r\nSubject: x\r\n\r\nbody\r\n"), 0)
	texts := readAll(t, r)
	require.Len(t, texts, 1)
	assert.Equal(t, "Subject: x\n\nbody\n", texts[0])
}

func TestIsEnvelope(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"From jane@rate.com Mon Jan  1 00:00:00 2024", true},
		{"From MAILER-DAEMON@host Fri Jul  8 12:08:34 2011", true},
		{"From here on we talk rates", false},
		{"From ", false},
		{">From jane@rate.com Mon Jan  1 00:00:00 2024", false},
		{"from jane@rate.com", false},
	}
	for _, tt := range tests {
		if got := IsEnvelope(tt.line); got != tt.want {
			t.Errorf("IsEnvelope(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"INBOX", "Sent", "Envoy&AOk-s", ".hidden", "INBOX.msf", "index.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Archives.sbd"), 0o755))

	archives, err := Discover([]string{dir})
	require.NoError(t, err)

	var names []string
	for _, a := range archives {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Envoyés", "INBOX", "Sent"}, names)

	_, err = Discover([]string{filepath.Join(dir, "nope")})
	assert.Error(t, err)
}
