// Package enforce holds the explicit data-quality passes run over a finished
// contact set. Each pass is destructive and returns a report of what it did.
package enforce

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mbox-addressbook/internal/classify"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// MaxExamples bounds the examples kept in a report.
const MaxExamples = 5

// Pass names.
const (
	PassRoleAccounts  = "role_accounts"
	PassSharedPhones  = "shared_phones"
	PassBidirectional = "bidirectional"
)

// Report summarizes one pass.
type Report struct {
	Pass     string
	Examined int
	Removed  []string // emails deleted from the set
	Cleared  []string // emails that lost a field value
	Examples []string
}

func (r *Report) example(format string, args ...any) {
	if len(r.Examples) < MaxExamples {
		r.Examples = append(r.Examples, fmt.Sprintf(format, args...))
	}
}

func (r *Report) log() {
	logging.Log.WithFields(logrus.Fields{
		"pass":     r.Pass,
		"examined": r.Examined,
		"removed":  len(r.Removed),
		"cleared":  len(r.Cleared),
	}).Infof("Enforcement pass %s finished", r.Pass)
	for _, ex := range r.Examples {
		logging.Log.WithField("pass", r.Pass).Debug(ex)
	}
}

// ReviewQueue is a secondary review list that must not keep entries for
// purged contacts.
type ReviewQueue interface {
	RemoveReviewItems(emails []string) (int, error)
}

// ReviewList is an in-memory ReviewQueue.
type ReviewList []models.ReviewItem

// RemoveReviewItems drops every entry for the given emails.
func (l *ReviewList) RemoveReviewItems(emails []string) (int, error) {
	drop := make(map[string]bool, len(emails))
	for _, e := range emails {
		drop[e] = true
	}
	kept := (*l)[:0]
	removed := 0
	for _, item := range *l {
		if drop[item.Email] {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	*l = kept
	return removed, nil
}

// Bidirectional deletes every contact that lacks mail in either direction.
func Bidirectional(contacts []models.CanonicalContact) ([]models.CanonicalContact, Report) {
	r := Report{Pass: PassBidirectional, Examined: len(contacts)}
	kept := make([]models.CanonicalContact, 0, len(contacts))
	for _, c := range contacts {
		if c.SentTo > 0 && c.ReceivedFrom > 0 {
			kept = append(kept, c)
			continue
		}
		r.Removed = append(r.Removed, c.Email)
		r.example("%s sent=%d received=%d", c.Email, c.SentTo, c.ReceivedFrom)
	}
	r.log()
	return kept, r
}

// SharedPhones clears every phone number claimed by more than one contact
// from all of them, and queues the affected contacts for review.
func SharedPhones(contacts []models.CanonicalContact) ([]models.CanonicalContact, Report, []models.ReviewItem) {
	r := Report{Pass: PassSharedPhones, Examined: len(contacts)}

	owners := make(map[string][]string)
	for _, c := range contacts {
		for _, p := range c.Phones() {
			owners[p] = appendUnique(owners[p], c.Email)
		}
	}
	shared := make(map[string][]string)
	for p, emails := range owners {
		if len(emails) > 1 {
			shared[p] = emails
		}
	}

	out := make([]models.CanonicalContact, len(contacts))
	var review []models.ReviewItem
	for i, c := range contacts {
		var keep, lost []string
		for _, p := range c.Phones() {
			if _, bad := shared[p]; bad {
				lost = append(lost, p)
				continue
			}
			keep = append(keep, p)
		}
		if len(lost) > 0 {
			c.Phone, c.AltPhones = "", nil
			if len(keep) > 0 {
				c.Phone = keep[0]
				if len(keep) > 1 {
					c.AltPhones = keep[1:]
				}
			}
			r.Cleared = append(r.Cleared, c.Email)
			for _, p := range lost {
				others := shared[p]
				review = append(review, models.ReviewItem{
					Queue:  models.QueueSharedPhone,
					Email:  c.Email,
					Reason: fmt.Sprintf("phone %s shared by %d contacts", p, len(others)),
					Detail: strings.Join(others, ", "),
				})
			}
		}
		out[i] = c
	}

	phones := make([]string, 0, len(shared))
	for p := range shared {
		phones = append(phones, p)
	}
	sort.Strings(phones)
	for _, p := range phones {
		r.example("%s claimed by %s", p, strings.Join(shared[p], ", "))
	}
	r.log()
	return out, r, review
}

// RoleAccounts deletes contacts whose local part is a role-account pattern,
// and removes their entries from queue when one is given.
func RoleAccounts(contacts []models.CanonicalContact, patterns []string, queue ReviewQueue) ([]models.CanonicalContact, Report, error) {
	r := Report{Pass: PassRoleAccounts, Examined: len(contacts)}
	kept := make([]models.CanonicalContact, 0, len(contacts))
	for _, c := range contacts {
		if classify.IsRoleAccount(c.LocalPart(), patterns) {
			r.Removed = append(r.Removed, c.Email)
			r.example("%s", c.Email)
			continue
		}
		kept = append(kept, c)
	}

	if queue != nil && len(r.Removed) > 0 {
		n, err := queue.RemoveReviewItems(r.Removed)
		if err != nil {
			return contacts, r, fmt.Errorf("purge review queues: %w", err)
		}
		if n > 0 {
			r.example("%d stale review entries removed", n)
		}
	}
	r.log()
	return kept, r, nil
}

// RunAll applies the passes in their fixed order: role accounts, shared
// phones, then the bidirectional-exchange invariant. The returned review
// items are the shared-phone entries; queue only receives removals.
func RunAll(contacts []models.CanonicalContact, patterns []string, queue ReviewQueue) ([]models.CanonicalContact, []Report, []models.ReviewItem, error) {
	var reports []Report

	contacts, roleReport, err := RoleAccounts(contacts, patterns, queue)
	if err != nil {
		return nil, nil, nil, err
	}
	reports = append(reports, roleReport)

	contacts, phoneReport, review := SharedPhones(contacts)
	reports = append(reports, phoneReport)

	contacts, biReport := Bidirectional(contacts)
	reports = append(reports, biReport)

	return contacts, reports, review, nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
