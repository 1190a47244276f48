// Package classify assigns each canonical contact a relationship category
// using an ordered rule table, with an optional delegated path for contacts
// no rule could place.
package classify

import (
	"fmt"
	"strings"

	"mbox-addressbook/internal/models"
)

// Facts are the inputs a rule may look at.
type Facts struct {
	Email    string
	Local    string
	Domain   string
	Sent     int
	Received int
	Subjects []string
}

// FactsFor extracts the rule inputs from a contact.
func FactsFor(c *models.CanonicalContact) Facts {
	return Facts{
		Email:    c.Email,
		Local:    c.LocalPart(),
		Domain:   c.Domain(),
		Sent:     c.SentTo,
		Received: c.ReceivedFrom,
		Subjects: c.Subjects,
	}
}

// Bidirectional reports whether mail went both ways.
func (f Facts) Bidirectional() bool { return f.Sent > 0 && f.Received > 0 }

// Outcome is the result of a matching rule. Drop removes the contact from
// the set entirely.
type Outcome struct {
	Type       models.Category
	Confidence models.Confidence
	Signal     string
	Drop       bool
}

// Rule is one entry of the cascade. Match returns false to pass the contact
// to the next rule.
type Rule struct {
	Name  string
	Match func(Facts) (Outcome, bool)
}

// Dictionaries are the curated word and domain lists the rules consult.
type Dictionaries struct {
	OwnDomains      []string
	StaffAllow      []string
	RolePatterns    []string
	LenderDomains   []string
	VendorKeywords  []string
	RealtorKeywords []string
	WebmailDomains  []string
	LoanKeywords    []string
}

var (
	defaultRolePatterns = []string{
		"noreply", "no-reply", "no_reply", "donotreply", "do-not-reply", "do_not_reply",
		"support", "info", "billing", "admin", "notifications", "notification", "notify",
		"mailer-daemon", "postmaster", "alerts", "alert", "news", "newsletter", "marketing",
		"help", "helpdesk", "service", "customerservice", "bounce", "bounces", "webmaster",
		"system", "automated", "reply", "updates", "team",
	}
	defaultLenderDomains = []string{
		"rate.com", "guaranteedrate.com", "uwm.com", "rocketmortgage.com", "quickenloans.com",
		"loandepot.com", "movement.com", "crosscountrymortgage.com", "fairwaymc.com",
		"newrez.com", "pennymac.com", "mrcooper.com", "homepoint.com", "caliberhomeloans.com",
		"guildmortgage.com", "primelending.com", "academymortgage.com", "wellsfargo.com",
		"chase.com", "bankofamerica.com", "usbank.com", "flagstar.com",
	}
	defaultVendorKeywords = []string{
		"title", "escrow", "insurance", "insure", "appraisal", "appraise", "closing",
		"settlement", "inspection", "inspect", "survey", "homewarranty",
	}
	defaultRealtorKeywords = []string{
		"realty", "realtor", "realestate", "homes", "properties", "kw", "remax",
		"coldwell", "coldwellbanker", "sothebys", "compass", "century21", "kellerwilliams",
		"exprealty", "bhhs", "brokerage",
	}
	defaultWebmailDomains = []string{
		"gmail.com", "googlemail.com", "yahoo.com", "ymail.com", "hotmail.com", "outlook.com",
		"live.com", "msn.com", "aol.com", "icloud.com", "me.com", "mac.com", "comcast.net",
		"att.net", "sbcglobal.net", "verizon.net", "cox.net", "charter.net", "protonmail.com",
		"proton.me", "gmx.com", "mail.com",
	}
	defaultLoanKeywords = []string{
		"loan", "mortgage", "pre-approval", "preapproval", "pre-qual", "prequal", "refinance",
		"refi", "rate lock", "closing", "escrow", "appraisal", "application", "underwriting",
		"disclosure", "purchase", "payoff", "heloc", "conditions", "clear to close",
	}
)

// DefaultDictionaries returns the built-in lists.
func DefaultDictionaries() Dictionaries {
	return Dictionaries{
		RolePatterns:    defaultRolePatterns,
		LenderDomains:   defaultLenderDomains,
		VendorKeywords:  defaultVendorKeywords,
		RealtorKeywords: defaultRealtorKeywords,
		WebmailDomains:  defaultWebmailDomains,
		LoanKeywords:    defaultLoanKeywords,
	}
}

// DictionariesFromConfig extends the built-in lists with configured entries.
func DictionariesFromConfig(cfg *models.Config) Dictionaries {
	d := DefaultDictionaries()
	d.OwnDomains = lowerAll(cfg.Organization.Domains)
	d.StaffAllow = lowerAll(cfg.Organization.StaffAllow)
	d.RolePatterns = append(lowerAll(cfg.Classification.RolePatterns), d.RolePatterns...)
	d.LenderDomains = append(lowerAll(cfg.Classification.LenderDomains), d.LenderDomains...)
	d.VendorKeywords = append(lowerAll(cfg.Classification.VendorKeywords), d.VendorKeywords...)
	d.RealtorKeywords = append(lowerAll(cfg.Classification.RealtorKeywords), d.RealtorKeywords...)
	d.WebmailDomains = append(lowerAll(cfg.Classification.WebmailDomains), d.WebmailDomains...)
	return d
}

// DefaultRules builds the cascade in priority order. The first rule that
// matches decides.
func DefaultRules(d Dictionaries) []Rule {
	return []Rule{
		{Name: "own_domain", Match: ownDomainRule(d)},
		{Name: "role_account", Match: roleAccountRule(d)},
		{Name: "lender_domain", Match: lenderDomainRule(d)},
		{Name: "domain_keyword", Match: domainKeywordRule(d)},
		{Name: "webmail", Match: webmailRule(d)},
		{Name: "fallback", Match: fallbackRule},
	}
}

func ownDomainRule(d Dictionaries) func(Facts) (Outcome, bool) {
	return func(f Facts) (Outcome, bool) {
		if !domainIn(f.Domain, d.OwnDomains) {
			return Outcome{}, false
		}
		if len(d.StaffAllow) > 0 && !contains(d.StaffAllow, f.Local) {
			return Outcome{Type: models.CategoryInternalStaff, Confidence: models.ConfidenceHigh,
				Signal: "own domain, not a staff mailbox", Drop: true}, true
		}
		return Outcome{Type: models.CategoryInternalStaff, Confidence: models.ConfidenceHigh, Signal: "own domain"}, true
	}
}

func roleAccountRule(d Dictionaries) func(Facts) (Outcome, bool) {
	return func(f Facts) (Outcome, bool) {
		if !IsRoleAccount(f.Local, d.RolePatterns) {
			return Outcome{}, false
		}
		return Outcome{Type: models.CategorySpam, Confidence: models.ConfidenceHigh, Signal: "role account", Drop: true}, true
	}
}

func lenderDomainRule(d Dictionaries) func(Facts) (Outcome, bool) {
	return func(f Facts) (Outcome, bool) {
		if !domainIn(f.Domain, d.LenderDomains) {
			return Outcome{}, false
		}
		switch {
		case f.Sent >= 3:
			return Outcome{Type: models.CategoryLoanOfficer, Confidence: models.ConfidenceHigh, Signal: "recruiting outreach"}, true
		case f.Sent == 0 && f.Received > 0:
			return Outcome{Type: models.CategorySpam, Confidence: models.ConfidenceMedium, Signal: "one-way inbound"}, true
		default:
			return Outcome{Type: models.CategoryLoanOfficer, Confidence: models.ConfidenceLow, Signal: "lender domain"}, true
		}
	}
}

func domainKeywordRule(d Dictionaries) func(Facts) (Outcome, bool) {
	return func(f Facts) (Outcome, bool) {
		if kw, ok := domainKeyword(f.Domain, d.VendorKeywords); ok {
			return Outcome{Type: models.CategoryVendor, Confidence: magnitude(f), Signal: fmt.Sprintf("vendor keyword %q in domain", kw)}, true
		}
		if kw, ok := domainKeyword(f.Domain, d.RealtorKeywords); ok {
			return Outcome{Type: models.CategoryRealtor, Confidence: magnitude(f), Signal: fmt.Sprintf("realtor keyword %q in domain", kw)}, true
		}
		return Outcome{}, false
	}
}

func webmailRule(d Dictionaries) func(Facts) (Outcome, bool) {
	return func(f Facts) (Outcome, bool) {
		if !domainIn(f.Domain, d.WebmailDomains) {
			return Outcome{}, false
		}
		loanTalk := subjectsMention(f.Subjects, d.LoanKeywords)
		switch {
		case loanTalk && f.Bidirectional():
			return Outcome{Type: models.CategoryBorrower, Confidence: models.ConfidenceHigh, Signal: "loan subjects, bidirectional"}, true
		case loanTalk:
			return Outcome{Type: models.CategoryBorrower, Confidence: models.ConfidenceMedium, Signal: "loan subjects"}, true
		case f.Bidirectional():
			return Outcome{Type: models.CategoryBorrower, Confidence: models.ConfidenceLow, Signal: "personal address, bidirectional"}, true
		default:
			return Outcome{Type: models.CategoryPersonal, Confidence: models.ConfidenceLow, Signal: "personal webmail"}, true
		}
	}
}

func fallbackRule(Facts) (Outcome, bool) {
	return Outcome{Type: models.CategoryUnclassified, Confidence: models.ConfidenceLow, Signal: "no rule matched"}, true
}

// IsRoleAccount reports whether local is a shared or automated mailbox name.
func IsRoleAccount(local string, patterns []string) bool {
	local = strings.ToLower(local)
	for _, p := range patterns {
		if local == p {
			return true
		}
		for _, sep := range []string{".", "-", "_", "+"} {
			if strings.HasPrefix(local, p+sep) {
				return true
			}
		}
		if strings.Contains(p, "reply") && strings.Contains(local, p) {
			return true
		}
	}
	return false
}

// magnitude grades confidence by how much mail was exchanged.
func magnitude(f Facts) models.Confidence {
	total := f.Sent + f.Received
	switch {
	case f.Bidirectional() && total >= 10:
		return models.ConfidenceHigh
	case total >= 3:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func domainIn(domain string, list []string) bool {
	for _, d := range list {
		d = strings.TrimPrefix(d, "@")
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// domainKeyword looks for a keyword in the domain without its top-level
// label. Keywords shorter than four characters must equal a whole label.
func domainKeyword(domain string, keywords []string) (string, bool) {
	labels := strings.Split(domain, ".")
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	for _, kw := range keywords {
		for _, label := range labels {
			if label == kw || (len(kw) >= 4 && strings.Contains(label, kw)) {
				return kw, true
			}
		}
	}
	return "", false
}

func subjectsMention(subjects, keywords []string) bool {
	for _, s := range subjects {
		s = strings.ToLower(s)
		for _, kw := range keywords {
			if strings.Contains(s, kw) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
