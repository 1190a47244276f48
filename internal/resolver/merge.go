package resolver

import (
	"fmt"
	"sort"
	"strings"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// Merge combines two contact sets keyed by email. It is idempotent:
// Merge(S, S) equals S up to ordering, so re-running an archive and merging
// its output again changes nothing.
func Merge(a, b []models.CanonicalContact) []models.CanonicalContact {
	out, _ := MergeWithConflicts(a, b, DefaultLimits())
	return out
}

// MergeWithConflicts is Merge with explicit caps that also reports field
// disagreements. Structured-sourced values win; otherwise the first set's
// non-empty value is kept, and empty values never replace non-empty ones.
// Counters combine with max since both sets may describe the same archive.
func MergeWithConflicts(a, b []models.CanonicalContact, limits Limits) ([]models.CanonicalContact, []*models.MergeConflict) {
	byEmail := make(map[string]*models.CanonicalContact)
	var conflicts []*models.MergeConflict

	fold := func(c models.CanonicalContact) {
		c.Email = models.NormalizeEmail(c.Email)
		if c.Email == "" {
			return
		}
		existing, ok := byEmail[c.Email]
		if !ok {
			cp := c
			byEmail[c.Email] = &cp
			return
		}
		conflicts = append(conflicts, mergeInto(existing, c, limits)...)
	}
	for _, c := range a {
		fold(c)
	}
	for _, c := range b {
		fold(c)
	}

	out := make([]models.CanonicalContact, 0, len(byEmail))
	for _, c := range byEmail {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })

	for _, mc := range conflicts {
		logging.Log.WithField("email", mc.Email).Debug(mc.Error())
	}
	return out, conflicts
}

func mergeInto(dst *models.CanonicalContact, src models.CanonicalContact, limits Limits) []*models.MergeConflict {
	var conflicts []*models.MergeConflict
	srcWins := isStructured(src) && !isStructured(*dst)
	reason := "first set kept"
	if srcWins {
		reason = "structured source"
	}

	pick := func(field string, d *string, s string) {
		switch {
		case s == "" || sameValue(*d, s):
		case *d == "":
			*d = s
		case srcWins:
			conflicts = append(conflicts, &models.MergeConflict{Email: dst.Email, Field: field, Kept: s, Rejected: *d, Reason: reason})
			*d = s
		default:
			conflicts = append(conflicts, &models.MergeConflict{Email: dst.Email, Field: field, Kept: *d, Rejected: s, Reason: reason})
		}
	}

	pick("firstName", &dst.FirstName, src.FirstName)
	pick("lastName", &dst.LastName, src.LastName)
	pick("fullName", &dst.FullName, src.FullName)
	pick("nmls", &dst.NMLS, src.NMLS)

	phones := union(dst.Phones(), src.Phones(), srcWins, limits.Phones)
	setPhones(dst, phones)
	dst.Titles = union(withPrimary(dst.Title, dst.Titles), withPrimary(src.Title, src.Titles), srcWins, limits.Titles)
	dst.Companies = union(withPrimary(dst.Company, dst.Companies), withPrimary(src.Company, src.Companies), srcWins, limits.Companies)
	syncPrimary(dst)
	dst.Addresses = union(dst.Addresses, src.Addresses, srcWins, 0)
	dst.Subjects = union(dst.Subjects, src.Subjects, false, limits.Subjects)
	dst.Sources = union(dst.Sources, src.Sources, false, 0)

	// Max keeps merging idempotent; counts from split archives are not summed.
	dst.SentTo = max(dst.SentTo, src.SentTo)
	dst.ReceivedFrom = max(dst.ReceivedFrom, src.ReceivedFrom)

	cl, rejected := mergeClassification(dst.Classification, src.Classification, srcWins)
	if rejected != "" {
		conflicts = append(conflicts, &models.MergeConflict{
			Email: dst.Email, Field: "classification",
			Kept: string(cl.Type), Rejected: rejected, Reason: reason,
		})
	}
	dst.Classification = cl
	return conflicts
}

// mergeClassification never lets an unclassified or empty result replace a
// real category. It returns the rejected type when two real categories
// disagree.
func mergeClassification(d, s models.Classification, srcWins bool) (models.Classification, string) {
	assigned := func(c models.Classification) bool {
		return c.Type != "" && c.Type != models.CategoryUnclassified
	}
	switch {
	case !assigned(s):
		if d.Type == "" {
			return s, ""
		}
		return d, ""
	case !assigned(d):
		return s, ""
	case d.Type == s.Type:
		return d, ""
	case srcWins:
		return s, string(d.Type)
	default:
		return d, string(s.Type)
	}
}

func isStructured(c models.CanonicalContact) bool {
	for _, s := range c.Sources {
		if s == SourceStructured {
			return true
		}
	}
	return false
}

func withPrimary(primary string, list []string) []string {
	if primary == "" || contains(list, primary) {
		return list
	}
	return append([]string{primary}, list...)
}

// union returns the values of both lists without duplicates. The preferred
// list comes first, then the other, capped at limit (zero means unbounded).
func union(first, second []string, secondFirst bool, limit int) []string {
	if secondFirst {
		first, second = second, first
	}
	var out []string
	out = appendCapped(out, first, limit)
	return appendCapped(out, second, limit)
}

// NMLSCollisions groups contacts by NMLS id and reports every id claimed by
// more than one email. Colliding contacts are left untouched.
func NMLSCollisions(contacts []models.CanonicalContact) []*models.InvariantViolation {
	byID := make(map[string][]string)
	for _, c := range contacts {
		id := strings.TrimSpace(c.NMLS)
		if id == "" {
			continue
		}
		byID[id] = addUnique(byID[id], c.Email)
	}

	var out []*models.InvariantViolation
	for id, emails := range byID {
		if len(emails) < 2 {
			continue
		}
		sort.Strings(emails)
		out = append(out, &models.InvariantViolation{Invariant: "nmls_unique", Key: id, Emails: emails})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CollisionReviewItems turns NMLS collisions into review queue entries, one
// per affected email.
func CollisionReviewItems(violations []*models.InvariantViolation) []models.ReviewItem {
	var items []models.ReviewItem
	for _, v := range violations {
		for _, email := range v.Emails {
			items = append(items, models.ReviewItem{
				Queue:  models.QueueNMLSCollision,
				Email:  email,
				Reason: fmt.Sprintf("NMLS %s shared by %d contacts", v.Key, len(v.Emails)),
				Detail: strings.Join(v.Emails, ", "),
			})
		}
	}
	return items
}

// ConflictReviewItems turns merge conflicts into review queue entries.
func ConflictReviewItems(conflicts []*models.MergeConflict) []models.ReviewItem {
	items := make([]models.ReviewItem, 0, len(conflicts))
	for _, mc := range conflicts {
		items = append(items, models.ReviewItem{
			Queue:  models.QueueMergeConflict,
			Email:  mc.Email,
			Reason: mc.Field + ": " + mc.Reason,
			Detail: fmt.Sprintf("kept %q, rejected %q", mc.Kept, mc.Rejected),
		})
	}
	return items
}
