// Package signature mines the trailing lines of a message body for contact
// details. Every field passes a strict admission filter; anything doubtful is
// dropped.
package signature

import (
	"errors"
	"regexp"
	"strings"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// DefaultTrailingLines is the size of the signature window.
const DefaultTrailingLines = 15

var (
	replyMarker   = regexp.MustCompile(`(?i)^on\s.+\s(wrote|a écrit|schrieb):?$`)
	forwardMarker = regexp.MustCompile(`(?i)^-{2,}\s*(original message|forwarded message)\s*-{2,}$`)
	segmentSep    = regexp.MustCompile(`\s*(?:\||•|·|\s[–—-]\s|\t)\s*`)
)

// Extractor turns message bodies into SignatureObservations. It keeps
// per-field rejection counts for the run summary.
type Extractor struct {
	trailing int
	rejected map[string]int
}

// New returns an Extractor using cfg.
func New(cfg models.SignatureConfig) *Extractor {
	n := cfg.TrailingLines
	if n <= 0 {
		n = DefaultTrailingLines
	}
	return &Extractor{trailing: n, rejected: make(map[string]int)}
}

// Rejected returns how many candidates each field filter discarded.
func (x *Extractor) Rejected() map[string]int {
	out := make(map[string]int, len(x.rejected))
	for k, v := range x.rejected {
		out[k] = v
	}
	return out
}

// Observe extracts the signature of a decoded message, including the name
// candidate taken from the From display name.
func (x *Extractor) Observe(email *models.Email) models.SignatureObservation {
	obs := x.Extract(email.From, email.BodyLines)
	obs.Subject = email.Subject
	if email.FromName != "" {
		if name, err := NormalizeName(email.FromName); err == nil {
			obs.NameCandidate = name
		} else {
			x.note(err)
		}
	}
	return obs
}

// Extract mines the signature window of bodyLines for sender.
func (x *Extractor) Extract(sender string, bodyLines []string) models.SignatureObservation {
	obs := models.SignatureObservation{Email: models.NormalizeEmail(sender)}
	seen := make(map[string]bool)
	add := func(list *[]string, kind, v string) {
		key := kind + "\x00" + strings.ToLower(strings.Join(strings.Fields(v), " "))
		if seen[key] {
			return
		}
		seen[key] = true
		*list = append(*list, v)
	}

	for _, line := range Window(bodyLines, x.trailing) {
		for _, id := range FindNMLS(line) {
			add(&obs.NMLSCandidates, "nmls", id)
		}
		line = nmlsPattern.ReplaceAllString(line, " ")

		phones, bad := FindPhones(line)
		x.rejected["phone"] += bad
		for _, p := range phones {
			add(&obs.PhoneCandidates, "phone", p)
		}
		line = phonePattern.ReplaceAllString(line, " ")

		for _, seg := range segmentSep.Split(line, -1) {
			seg = strings.Trim(strings.TrimSpace(seg), ",;:")
			if seg == "" || strings.Contains(seg, "@") || strings.Contains(strings.ToLower(seg), "http") {
				continue
			}
			titleErr := ValidateTitle(seg)
			if titleErr == nil {
				add(&obs.TitleCandidates, "title", seg)
				continue
			}
			x.note(titleErr)
			if err := ValidateCompany(seg); err != nil {
				x.note(err)
				continue
			}
			add(&obs.CompanyCandidates, "company", seg)
		}
	}
	return obs
}

func (x *Extractor) note(err error) {
	var rej *Rejection
	if errors.As(err, &rej) {
		x.rejected[rej.Field]++
		logging.Log.WithField("field", rej.Field).Trace(rej.Error())
	}
}

// Window returns the non-blank signature lines of a body: quoted replies and
// forwarded content are cut, and the text after a "-- " delimiter is
// preferred. At most n lines are returned, counted from the end.
func Window(lines []string, n int) []string {
	var own []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if replyMarker.MatchString(trimmed) || forwardMarker.MatchString(trimmed) {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		own = append(own, line)
	}

	for i := len(own) - 1; i >= 0; i-- {
		if own[i] == "-- " || own[i] == "--" {
			own = own[i+1:]
			break
		}
	}

	var out []string
	for _, line := range own {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
