package classify

import (
	"context"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// SourceDelegate marks classifications returned by the enrichment delegate.
const SourceDelegate = "delegate"

// Delegate classifies one contact into free text that should name a category.
type Delegate interface {
	Classify(ctx context.Context, contact models.CanonicalContact) (string, error)
}

// Enricher sends unclassified contacts to a Delegate one at a time, at a
// fixed low rate.
type Enricher struct {
	delegate    Delegate
	limiter     *rate.Limiter
	timeout     time.Duration
	maxContacts int
}

// EnrichStats summarizes one enrichment pass.
type EnrichStats struct {
	Attempted  int
	Classified int
	Failed     int
	Rejected   int
}

// NewEnricher creates an Enricher with the provided delegate and settings.
func NewEnricher(delegate Delegate, cfg models.EnrichmentConfig) *Enricher {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	return &Enricher{
		delegate:    delegate,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		timeout:     cfg.Timeout,
		maxContacts: cfg.MaxContacts,
	}
}

// Enrich updates unclassified contacts in place. Contacts with any other
// category are never touched. A cancelled context stops the pass and is
// returned; delegate failures only leave the contact unclassified.
func (e *Enricher) Enrich(ctx context.Context, contacts []models.CanonicalContact) (EnrichStats, error) {
	var stats EnrichStats
	for i := range contacts {
		c := &contacts[i]
		if c.Classification.Type != models.CategoryUnclassified {
			continue
		}
		if e.maxContacts > 0 && stats.Attempted >= e.maxContacts {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return stats, err
		}
		stats.Attempted++

		locallog := logging.Log.WithField("email", c.Email)
		answer, err := e.ask(ctx, *c)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Failed++
			locallog.WithError(err).Warn("Enrichment delegate error")
			continue
		}

		cat, ok := ParseCategory(answer)
		if !ok || cat == models.CategoryUnclassified {
			stats.Rejected++
			locallog.Debugf("Delegate answer not usable: %q", answer)
			continue
		}
		c.Classification = models.Classification{
			Type:       cat,
			Confidence: models.ConfidenceLow,
			Signal:     "delegated review",
			Source:     SourceDelegate,
		}
		stats.Classified++
	}
	return stats, nil
}

func (e *Enricher) ask(ctx context.Context, c models.CanonicalContact) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.delegate.Classify(ctx, c)
}

var categoryWord = regexp.MustCompile(`[a-z_]+`)

// ParseCategory reads a delegate answer. The answer must name exactly one
// category of the closed set, either alone or as the only category word in
// the text; anything else is rejected.
func ParseCategory(answer string) (models.Category, bool) {
	s := strings.ToLower(strings.TrimSpace(answer))
	s = strings.Trim(s, "`*\"'. \n")
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if cat, ok := models.ParseCategory(s); ok {
		return cat, true
	}

	found := make(map[models.Category]bool)
	normalized := strings.NewReplacer("loan officer", "loan_officer", "loan-officer", "loan_officer",
		"internal staff", "internal_staff", "internal-staff", "internal_staff").Replace(strings.ToLower(answer))
	for _, w := range categoryWord.FindAllString(normalized, -1) {
		if cat, ok := models.ParseCategory(w); ok {
			found[cat] = true
		}
	}
	if len(found) != 1 {
		return models.CategoryUnclassified, false
	}
	for cat := range found {
		return cat, true
	}
	return models.CategoryUnclassified, false
}
