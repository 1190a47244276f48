package mailparse

import (
	"errors"
	"strings"
	"testing"

	"mbox-addressbook/internal/models"
)

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "Plain ASCII",
			input:    "Hello World",
			expected: "Hello World",
			wantErr:  false,
		},
		{
			name:     "UTF-8 encoded",
			input:    "=?UTF-8?Q?Important_:_comment_mettre_=C3=A0_jour?=",
			expected: "Important : comment mettre à jour",
			wantErr:  false,
		},
		{
			name:     "ISO-8859-1 encoded",
			input:    "=?ISO-8859-1?Q?Caf=E9?=",
			expected: "Café",
			wantErr:  false,
		},
		{
			name:     "Base64 encoded",
			input:    "=?UTF-8?B?SGVsbG8gV29ybGQ=?=",
			expected: "Hello World",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHeader(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeHeader() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.expected {
				t.Errorf("DecodeHeader() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExtractEmailAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple email",
			input:    "jane@rate.com",
			expected: "jane@rate.com",
		},
		{
			name:     "Email with name",
			input:    "Jane Doe <jane@rate.com>",
			expected: "jane@rate.com",
		},
		{
			name:     "Email with quotes",
			input:    `"Doe, Jane" <jane.doe@rate.com>`,
			expected: "jane.doe@rate.com",
		},
		{
			name:     "No email",
			input:    "Just some text",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractEmailAddress(tt.input)
			if got != tt.expected {
				t.Errorf("extractEmailAddress() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func raw(text string) *models.RawMessage {
	return &models.RawMessage{Envelope: "From jane@rate.com Mon Jan  1 00:00:00 2024", Text: text}
}

func TestParse_PlainEnvelope(t *testing.T) {
	msg := "From: Jane Doe <Jane@Rate.com>\n" +
		"To: owner@example-mortgage.com, \"Bob\" <bob@example.com>\n" +
		"Cc: carol@example.com\n" +
		"Subject: =?UTF-8?Q?Rate_lock_=E2=9C=93?=\n" +
		"Date: Mon, 1 Jan 2024 10:00:00 -0800\n" +
		"\n" +
		"Hello there\n" +
		"Jane\n"

	email, err := Parse(raw(msg))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if email.From != "jane@rate.com" {
		t.Errorf("From = %q, want jane@rate.com", email.From)
	}
	if email.FromName != "Jane Doe" {
		t.Errorf("FromName = %q, want Jane Doe", email.FromName)
	}
	if len(email.To) != 2 || email.To[1] != "bob@example.com" {
		t.Errorf("To = %v", email.To)
	}
	if len(email.Cc) != 1 || email.Cc[0] != "carol@example.com" {
		t.Errorf("Cc = %v", email.Cc)
	}
	if email.Subject != "Rate lock ✓" {
		t.Errorf("Subject = %q", email.Subject)
	}
	if email.Date.IsZero() {
		t.Error("Date was not parsed")
	}
	if len(email.BodyLines) != 2 || email.BodyLines[1] != "Jane" {
		t.Errorf("BodyLines = %q", email.BodyLines)
	}
	if email.TraceID == "" {
		t.Error("TraceID not set")
	}
}

func TestParse_QuotedPrintable(t *testing.T) {
	msg := "From: a@b.com\n" +
		"Content-Type: text/plain; charset=utf-8\n" +
		"Content-Transfer-Encoding: quoted-printable\n" +
		"\n" +
		"Caf=C3=A9 soft=\n" +
		"break\n" +
		"Senior Loan Officer =E2=80=93 NMLS 12345\n"

	email, err := Parse(raw(msg))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := "Café softbreak\nSenior Loan Officer – NMLS 12345\n"
	if email.BodyText != want {
		t.Errorf("BodyText = %q, want %q", email.BodyText, want)
	}
}

func TestParse_MultipartPrefersPlain(t *testing.T) {
	msg := "From: a@b.com\n" +
		"Content-Type: multipart/alternative; boundary=\"XYZ\"\n" +
		"\n" +
		"preamble\n" +
		"--XYZ\n" +
		"Content-Type: text/html\n" +
		"\n" +
		"<p>html body</p>\n" +
		"--XYZ\n" +
		"Content-Type: text/plain\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" +
		"cGxhaW4g\n" +
		"Ym9keQ==\n" +
		"--XYZ--\n" +
		"epilogue\n"

	email, err := Parse(raw(msg))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if email.BodyText != "plain body" {
		t.Errorf("BodyText = %q, want %q", email.BodyText, "plain body")
	}
	if len(email.Parts) != 2 {
		t.Errorf("Parts = %d, want 2", len(email.Parts))
	}
}

func TestParse_Base64FlushedAtNestedBoundary(t *testing.T) {
	msg := "From: a@b.com\n" +
		"Content-Type: multipart/mixed; boundary=outer\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: multipart/alternative; boundary=inner\n" +
		"\n" +
		"--inner\n" +
		"Content-Type: text/plain; charset=iso-8859-1\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" +
		"Q2Fm6Q==\n" +
		"--outer\n" +
		"Content-Type: application/pdf\n" +
		"Content-Disposition: attachment; filename=a.pdf\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" +
		"JVBERi0=\n" +
		"--outer--\n"

	email, err := Parse(raw(msg))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if email.BodyText != "Café" {
		t.Errorf("BodyText = %q, want Café", email.BodyText)
	}
	if len(email.Parts) != 2 {
		t.Fatalf("Parts = %d, want 2", len(email.Parts))
	}
	if email.Parts[1].ContentType != "application/pdf" {
		t.Errorf("second part = %q", email.Parts[1].ContentType)
	}
}

func TestParse_HTMLOnly(t *testing.T) {
	msg := "From: a@b.com\n" +
		"Content-Type: text/html; charset=utf-8\n" +
		"\n" +
		"<html><head><style>p{color:red}</style></head><body>" +
		"<script>alert(1)</script><p>Jane&nbsp;Doe</p><div>Escrow &amp; Title</div></body></html>\n"

	email, err := Parse(raw(msg))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if strings.Contains(email.BodyText, "alert") || strings.Contains(email.BodyText, "color") {
		t.Errorf("script/style leaked: %q", email.BodyText)
	}
	if email.BodyText != "Jane Doe\nEscrow & Title" {
		t.Errorf("BodyText = %q", email.BodyText)
	}
}

func TestHTMLToText_SelfClosingHead(t *testing.T) {
	got := HTMLToText("<head/><p>Hi</p><p>Jane Doe</p>")
	if got != "Hi\nJane Doe" {
		t.Errorf("HTMLToText() = %q, want %q", got, "Hi\nJane Doe")
	}
}

func TestParse_MalformedBase64KeepsRaw(t *testing.T) {
	msg := "From: a@b.com\n" +
		"Content-Transfer-Encoding: base64\n" +
		"\n" +
		"this is !!! not base64\n"

	email, err := Parse(raw(msg))
	if err == nil {
		t.Fatal("Parse() expected a decode error")
	}
	var de *models.DecodeError
	if !errors.As(err, &de) || de.Encoding != "base64" {
		t.Errorf("error = %v, want DecodeError(base64)", err)
	}
	if email.BodyText != "this is !!! not base64\n" {
		t.Errorf("BodyText = %q, want raw text", email.BodyText)
	}
	if email.From != "a@b.com" {
		t.Errorf("From = %q", email.From)
	}
}

func TestParse_UnparsableFromFallsBack(t *testing.T) {
	msg := "From: Jane Doe <jane@rate.com> (via list) <<\n\nbody\n"
	email, _ := Parse(raw(msg))
	if email.From != "jane@rate.com" {
		t.Errorf("From = %q, want jane@rate.com", email.From)
	}
}

func TestDecodeQuotedPrintable_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text with no escapes",
		"multi\nline\ntext",
		"a = b is not an escape",
		"",
	}
	for _, in := range inputs {
		once, _ := DecodeQuotedPrintable(in)
		twice, _ := DecodeQuotedPrintable(once)
		if once != in {
			t.Errorf("DecodeQuotedPrintable(%q) = %q, want unchanged", in, once)
		}
		if twice != once {
			t.Errorf("second decode of %q changed it to %q", once, twice)
		}
	}
}

func TestDecodeQuotedPrintable_Escapes(t *testing.T) {
	got, err := DecodeQuotedPrintable("=41=42C=\nD =zz")
	if got != "ABCD =zz" {
		t.Errorf("DecodeQuotedPrintable() = %q", got)
	}
	if !errors.Is(err, errMalformedEscape) {
		t.Errorf("error = %v, want malformed escape", err)
	}
}
