package signature

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"mbox-addressbook/internal/models"
)

// Rejection is returned by the validators. It matches
// models.ErrValidationRejected under errors.Is.
type Rejection struct {
	Field  string
	Value  string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s %q rejected: %s", r.Field, r.Value, r.Reason)
}

func (r *Rejection) Is(target error) bool {
	return target == models.ErrValidationRejected
}

func reject(field, value, reason string) error {
	return &Rejection{Field: field, Value: value, Reason: reason}
}

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)
	nmlsPattern  = regexp.MustCompile(`(?i)\bNMLS\s*(?:#|ID|No\.?)?\s*:?\s*#?\s*(\d{4,10})\b`)

	// A capital preceded by ten or more letters with no space marks words
	// glued together by a broken HTML conversion.
	gluedRun        = regexp.MustCompile(`[A-Za-z]{10,}[A-Z]`)
	// Ten capitals in a row is shouting or a glued all-caps run.
	upperRun        = regexp.MustCompile(`[A-Z]{10,}`)
	alnumRun        = regexp.MustCompile(`[A-Za-z0-9]{15,}`)
	nonLetterInWord = regexp.MustCompile(`[^\p{L}'.\-]`)
)

// NormalizePhone reduces s to NNN-NNN-NNNN and validates it. An optional
// leading country code 1 is dropped. Area code and exchange must both start
// with 2-9, and five or more identical digits in a row mark garbage.
func NormalizePhone(s string) (string, error) {
	var digits []byte
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", reject("phone", s, "not ten digits")
	}
	if digits[0] < '2' || digits[3] < '2' {
		return "", reject("phone", s, "area code or exchange outside 200-999")
	}
	run := 1
	for i := 1; i < len(digits); i++ {
		if digits[i] == digits[i-1] {
			run++
			if run >= 5 {
				return "", reject("phone", s, "repeated digits")
			}
		} else {
			run = 1
		}
	}
	return fmt.Sprintf("%s-%s-%s", digits[:3], digits[3:6], digits[6:]), nil
}

var titleKeywords = []string{
	"loan officer", "originator", "processor", "underwriter", "closer",
	"manager", "director", "president", "vice president", "vp", "svp", "evp", "avp",
	"ceo", "cfo", "coo", "cto", "founder", "owner", "partner", "principal",
	"broker", "agent", "realtor", "escrow officer", "title officer", "officer",
	"coordinator", "assistant", "specialist", "consultant", "advisor", "adviser",
	"analyst", "associate", "executive", "representative", "supervisor", "lead",
	"appraiser", "attorney", "paralegal", "administrator", "counsel", "banker",
}

// ValidateTitle admits job titles: 5 to 60 characters, at least 80% letters
// or spaces, containing a title keyword and free of markup residue.
func ValidateTitle(s string) error {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	if n < 5 || n > 60 {
		return reject("title", s, "length")
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "style=") || strings.Contains(lower, "inline") {
		return reject("title", s, "markup")
	}
	if gluedRun.MatchString(s) || upperRun.MatchString(s) {
		return reject("title", s, "unbroken letter run")
	}
	if ratio(s, func(r rune) bool { return unicode.IsLetter(r) || r == ' ' }) < 0.8 {
		return reject("title", s, "too many non-letters")
	}
	if !containsKeyword(lower, titleKeywords) {
		return reject("title", s, "no title keyword")
	}
	return nil
}

var companyKeywords = []string{
	"inc", "llc", "llp", "ltd", "corp", "corporation", "company", "co",
	"group", "mortgage", "bank", "bancorp", "lending", "lender", "loans", "home loans",
	"financial", "finance", "funding", "capital", "credit union", "realty", "real estate",
	"properties", "homes", "title", "escrow", "insurance", "appraisal", "appraisals",
	"associates", "partners", "services", "solutions", "brokerage", "agency", "law",
}

// ValidateCompany admits organization names: 5 to 80 characters, at least
// 80% from letters, space, '&', ',' and '.', containing a company keyword and
// without alphanumeric runs of 15 or more.
func ValidateCompany(s string) error {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	if n < 5 || n > 80 {
		return reject("company", s, "length")
	}
	if alnumRun.MatchString(s) {
		return reject("company", s, "unbroken alphanumeric run")
	}
	allowed := func(r rune) bool {
		return unicode.IsLetter(r) || r == ' ' || r == '&' || r == ',' || r == '.'
	}
	if ratio(s, allowed) < 0.8 {
		return reject("company", s, "too many disallowed characters")
	}
	if !containsKeyword(strings.ToLower(s), companyKeywords) {
		return reject("company", s, "no company keyword")
	}
	return nil
}

var roleWords = map[string]bool{
	"team": true, "support": true, "info": true, "office": true, "department": true,
	"noreply": true, "admin": true, "notifications": true, "customer": true,
	"service": true, "services": true, "sales": true, "billing": true, "mailer": true,
	"daemon": true, "no-reply": true, "via": true,
}

// NormalizeName turns a display name into "First Last" form. "Last, First"
// is reordered. The name must have 2 to 4 alphabetic tokens and no role word.
func NormalizeName(display string) (string, error) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(display), `"'`))
	if s == "" {
		return "", reject("name", display, "empty")
	}
	if strings.ContainsAny(s, "@0123456789") {
		return "", reject("name", display, "address or digits")
	}
	if last, first, ok := strings.Cut(s, ","); ok {
		s = strings.TrimSpace(first) + " " + strings.TrimSpace(last)
	}
	tokens := strings.Fields(s)
	if len(tokens) < 2 || len(tokens) > 4 {
		return "", reject("name", display, "token count")
	}
	for _, tok := range tokens {
		if nonLetterInWord.MatchString(tok) || !strings.ContainsFunc(tok, unicode.IsLetter) {
			return "", reject("name", display, "non-alphabetic token")
		}
		if roleWords[strings.ToLower(tok)] {
			return "", reject("name", display, "role word")
		}
	}
	return strings.Join(tokens, " "), nil
}

// SplitName splits a normalized full name into first and last name. Middle
// tokens stay with the first name.
func SplitName(full string) (first, last string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	}
	return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
}

// FindPhones returns every valid phone on line.
func FindPhones(line string) ([]string, int) {
	var out []string
	rejected := 0
	for _, m := range phonePattern.FindAllString(line, -1) {
		p, err := NormalizePhone(m)
		if err != nil {
			rejected++
			continue
		}
		out = append(out, p)
	}
	return out, rejected
}

// FindNMLS returns the NMLS identifiers on line.
func FindNMLS(line string) []string {
	var out []string
	for _, m := range nmlsPattern.FindAllStringSubmatch(line, -1) {
		out = append(out, m[1])
	}
	return out
}

func ratio(s string, ok func(rune) bool) float64 {
	total, good := 0, 0
	for _, r := range s {
		total++
		if ok(r) {
			good++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(good) / float64(total)
}

// containsKeyword matches whole words or phrases of lower against keywords.
func containsKeyword(lower string, keywords []string) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) })
	padded := " " + strings.Join(words, " ") + " "
	for _, kw := range keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return true
		}
	}
	return false
}
