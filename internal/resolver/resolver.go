// Package resolver folds signature observations, correspondent counters and
// structured side-table rows into one canonical contact per address.
package resolver

import (
	"sort"
	"strings"

	"mbox-addressbook/internal/correspondents"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/signature"
)

// List caps used when the configuration leaves them unset.
const (
	DefaultMaxPhones    = 3
	DefaultMaxTitles    = 2
	DefaultMaxCompanies = 2
	DefaultMaxSubjects  = 20
)

// Source labels recorded on contacts.
const (
	SourceSignature  = "signature"
	SourceIndex      = "index"
	SourceStructured = "structured"
)

// Limits bounds per-contact list growth.
type Limits struct {
	Phones    int
	Titles    int
	Companies int
	Subjects  int
}

// DefaultLimits returns the built-in caps.
func DefaultLimits() Limits {
	return Limits{
		Phones:    DefaultMaxPhones,
		Titles:    DefaultMaxTitles,
		Companies: DefaultMaxCompanies,
		Subjects:  DefaultMaxSubjects,
	}
}

// LimitsFromConfig fills unset caps with defaults.
func LimitsFromConfig(cfg models.ResolverConfig) Limits {
	l := DefaultLimits()
	if cfg.MaxPhones > 0 {
		l.Phones = cfg.MaxPhones
	}
	if cfg.MaxTitles > 0 {
		l.Titles = cfg.MaxTitles
	}
	if cfg.MaxCompanies > 0 {
		l.Companies = cfg.MaxCompanies
	}
	if cfg.MaxSubjects > 0 {
		l.Subjects = cfg.MaxSubjects
	}
	return l
}

// Accumulator is the contact map built during one run. It is threaded
// through the pipeline explicitly and is not safe for concurrent use.
type Accumulator struct {
	limits    Limits
	contacts  map[string]*models.CanonicalContact
	conflicts []*models.MergeConflict
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator(limits Limits) *Accumulator {
	return &Accumulator{
		limits:   limits,
		contacts: make(map[string]*models.CanonicalContact),
	}
}

func (a *Accumulator) get(addr string) *models.CanonicalContact {
	c, ok := a.contacts[addr]
	if !ok {
		c = &models.CanonicalContact{Email: addr}
		a.contacts[addr] = c
	}
	return c
}

// Len returns the number of contacts.
func (a *Accumulator) Len() int { return len(a.contacts) }

// AddObservation folds one signature observation into its contact. The first
// non-empty name wins; list fields grow up to their caps.
func (a *Accumulator) AddObservation(obs models.SignatureObservation) {
	addr := models.NormalizeEmail(obs.Email)
	if addr == "" {
		return
	}
	c := a.get(addr)
	c.Sources = addUnique(c.Sources, SourceSignature)

	if c.FullName == "" && obs.NameCandidate != "" {
		c.FullName = obs.NameCandidate
		c.FirstName, c.LastName = signature.SplitName(obs.NameCandidate)
	}

	setPhones(c, appendCapped(c.Phones(), obs.PhoneCandidates, a.limits.Phones))
	c.Titles = appendCapped(c.Titles, obs.TitleCandidates, a.limits.Titles)
	c.Companies = appendCapped(c.Companies, obs.CompanyCandidates, a.limits.Companies)
	syncPrimary(c)

	for _, id := range obs.NMLSCandidates {
		switch {
		case c.NMLS == "":
			c.NMLS = id
		case c.NMLS != id:
			a.conflict(&models.MergeConflict{Email: addr, Field: "nmls", Kept: c.NMLS, Rejected: id, Reason: "first observed wins"})
		}
	}

	if obs.Subject != "" {
		c.Subjects = appendCapped(c.Subjects, []string{obs.Subject}, a.limits.Subjects)
	}
}

// ApplyCounters copies the correspondent counters onto the contacts,
// creating a contact for every indexed address.
func (a *Accumulator) ApplyCounters(ix *correspondents.Index) {
	for _, addr := range ix.Addresses() {
		counter := ix.Get(addr)
		c := a.get(addr)
		c.SentTo = counter.SentByOwner
		c.ReceivedFrom = counter.ReceivedByOwner
		c.Sources = addUnique(c.Sources, SourceIndex)
	}
}

// AddStructured merges a side-table row. Structured values replace
// heuristic ones; empty structured values never erase anything.
func (a *Accumulator) AddStructured(rec models.StructuredRecord) {
	addr := models.NormalizeEmail(rec.Email)
	if addr == "" {
		return
	}
	c := a.get(addr)
	c.Sources = addUnique(c.Sources, SourceStructured)
	reason := "structured source " + rec.Source

	a.override(c, "firstName", &c.FirstName, rec.FirstName, reason)
	a.override(c, "lastName", &c.LastName, rec.LastName, reason)
	if rec.FirstName != "" || rec.LastName != "" {
		c.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}

	if rec.Phone != "" {
		phone, err := signature.NormalizePhone(rec.Phone)
		if err != nil {
			phone = strings.TrimSpace(rec.Phone)
		}
		if c.Phone != "" && !sameValue(c.Phone, phone) {
			a.conflict(&models.MergeConflict{Email: addr, Field: "phone", Kept: phone, Rejected: c.Phone, Reason: reason})
		}
		setPhones(c, prependCapped(c.Phones(), phone, a.limits.Phones))
	}
	if rec.Title != "" {
		if c.Title != "" && !sameValue(c.Title, rec.Title) {
			a.conflict(&models.MergeConflict{Email: addr, Field: "title", Kept: rec.Title, Rejected: c.Title, Reason: reason})
		}
		c.Titles = prependCapped(c.Titles, strings.TrimSpace(rec.Title), a.limits.Titles)
	}
	if rec.Company != "" {
		if c.Company != "" && !sameValue(c.Company, rec.Company) {
			a.conflict(&models.MergeConflict{Email: addr, Field: "company", Kept: rec.Company, Rejected: c.Company, Reason: reason})
		}
		c.Companies = prependCapped(c.Companies, strings.TrimSpace(rec.Company), a.limits.Companies)
	}
	syncPrimary(c)

	if rec.Address != "" {
		c.Addresses = appendCapped(c.Addresses, []string{strings.TrimSpace(rec.Address)}, 0)
	}
	a.override(c, "nmls", &c.NMLS, strings.TrimSpace(rec.NMLS), reason)

	if cat, ok := models.ParseCategory(strings.ToLower(strings.TrimSpace(rec.Role))); ok && cat != models.CategoryUnclassified {
		c.Classification = models.Classification{
			Type:       cat,
			Confidence: models.ConfidenceHigh,
			Signal:     "confirmed role",
			Source:     SourceStructured,
		}
	}
}

// override sets *field to value when value is non-empty, recording a
// conflict when a different value is replaced.
func (a *Accumulator) override(c *models.CanonicalContact, name string, field *string, value, reason string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if *field != "" && !sameValue(*field, value) {
		a.conflict(&models.MergeConflict{Email: c.Email, Field: name, Kept: value, Rejected: *field, Reason: reason})
	}
	*field = value
}

func (a *Accumulator) conflict(mc *models.MergeConflict) {
	a.conflicts = append(a.conflicts, mc)
	logging.Log.WithField("email", mc.Email).Debug(mc.Error())
}

// Conflicts returns every merge conflict recorded so far.
func (a *Accumulator) Conflicts() []*models.MergeConflict {
	return a.conflicts
}

// Contacts returns copies of all contacts ordered by email.
func (a *Accumulator) Contacts() []models.CanonicalContact {
	out := make([]models.CanonicalContact, 0, len(a.contacts))
	for _, c := range a.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

func setPhones(c *models.CanonicalContact, phones []string) {
	c.Phone, c.AltPhones = "", nil
	if len(phones) == 0 {
		return
	}
	c.Phone = phones[0]
	if len(phones) > 1 {
		c.AltPhones = append([]string(nil), phones[1:]...)
	}
}

func syncPrimary(c *models.CanonicalContact) {
	c.Title, c.Company = "", ""
	if len(c.Titles) > 0 {
		c.Title = c.Titles[0]
	}
	if len(c.Companies) > 0 {
		c.Company = c.Companies[0]
	}
}

// foldKey compares values case- and whitespace-insensitively.
func foldKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sameValue(a, b string) bool { return foldKey(a) == foldKey(b) }

// appendCapped appends the values of add not already in list, stopping at
// limit entries. A limit of zero means unbounded.
func appendCapped(list, add []string, limit int) []string {
	for _, v := range add {
		if limit > 0 && len(list) >= limit {
			break
		}
		if v = strings.TrimSpace(v); v == "" || contains(list, v) {
			continue
		}
		list = append(list, v)
	}
	return list
}

// prependCapped moves v to the front of list, trimming to limit.
func prependCapped(list []string, v string, limit int) []string {
	out := []string{v}
	for _, x := range list {
		if !sameValue(x, v) {
			out = append(out, x)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if sameValue(x, v) {
			return true
		}
	}
	return false
}

func addUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
