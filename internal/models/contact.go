package models

// Category is the relationship type assigned to a contact.
type Category string

const (
	CategoryBorrower      Category = "borrower"
	CategoryLoanOfficer   Category = "loan_officer"
	CategoryRealtor       Category = "realtor"
	CategoryVendor        Category = "vendor"
	CategoryInternalStaff Category = "internal_staff"
	CategoryPersonal      Category = "personal"
	CategorySpam          Category = "spam"
	CategoryUnclassified  Category = "unclassified"
)

// Categories lists the closed category set in export order.
var Categories = []Category{
	CategoryBorrower,
	CategoryLoanOfficer,
	CategoryRealtor,
	CategoryVendor,
	CategoryInternalStaff,
	CategoryPersonal,
	CategorySpam,
	CategoryUnclassified,
}

// ParseCategory maps s onto the closed set. Unknown values are not accepted.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryUnclassified, false
}

// Confidence is a coarse, rule-derived certainty level.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Classification is the outcome of the classification cascade for one contact.
type Classification struct {
	Type       Category   `json:"type"`
	Confidence Confidence `json:"confidence"`
	Signal     string     `json:"signal"`
	Source     string     `json:"source,omitempty"` // rule name or "delegate"
}

// CanonicalContact is the single deduplicated record for one correspondent.
type CanonicalContact struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	FullName       string         `json:"fullName,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	AltPhones      []string       `json:"altPhones,omitempty"`
	Title          string         `json:"title,omitempty"`
	Titles         []string       `json:"titles,omitempty"`
	Company        string         `json:"company,omitempty"`
	Companies      []string       `json:"companies,omitempty"`
	Addresses      []string       `json:"addresses,omitempty"`
	NMLS           string         `json:"nmls,omitempty"`
	SentTo         int            `json:"sentTo"`
	ReceivedFrom   int            `json:"receivedFrom"`
	Subjects       []string       `json:"subjects,omitempty"`
	Classification Classification `json:"classification"`
	Sources        []string       `json:"sources,omitempty"`
}

// Domain returns the part of the email after the last '@'.
func (c *CanonicalContact) Domain() string {
	_, domain := SplitAddress(c.Email)
	return domain
}

// LocalPart returns the part of the email before the last '@'.
func (c *CanonicalContact) LocalPart() string {
	local, _ := SplitAddress(c.Email)
	return local
}

// Phones returns the primary phone followed by the alternates.
func (c *CanonicalContact) Phones() []string {
	var out []string
	if c.Phone != "" {
		out = append(out, c.Phone)
	}
	return append(out, c.AltPhones...)
}

// SignatureObservation holds the candidates mined from one message signature.
type SignatureObservation struct {
	Email             string
	PhoneCandidates   []string
	TitleCandidates   []string
	CompanyCandidates []string
	NameCandidate     string
	NMLSCandidates    []string
	Subject           string
}

// Empty reports whether the observation carries no candidate at all.
func (o SignatureObservation) Empty() bool {
	return len(o.PhoneCandidates) == 0 && len(o.TitleCandidates) == 0 &&
		len(o.CompanyCandidates) == 0 && o.NameCandidate == "" && len(o.NMLSCandidates) == 0
}

// StructuredRecord is one row of a structured side-table, such as a prior
// transaction export. Its values take precedence over signature heuristics.
type StructuredRecord struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Title     string
	Company   string
	Address   string
	NMLS      string
	Role      string
	Source    string
}

// Review queue names.
const (
	QueueNMLSCollision = "nmls_collision"
	QueueSharedPhone   = "shared_phone"
	QueueUnclassified  = "unclassified"
	QueueMergeConflict = "merge_conflict"
)

// ReviewItem is an entry on a manual review queue.
type ReviewItem struct {
	Queue  string `json:"queue"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}
