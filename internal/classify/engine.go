package classify

import (
	"fmt"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/resolver"
)

// Engine runs the rule cascade.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over rules, evaluated in order.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// NewFromConfig builds the default cascade with configured dictionaries.
func NewFromConfig(cfg *models.Config) *Engine {
	return NewEngine(DefaultRules(DictionariesFromConfig(cfg)))
}

// Rules returns the cascade in evaluation order.
func (e *Engine) Rules() []Rule { return e.rules }

// Classify returns the outcome of the first matching rule and its name.
func (e *Engine) Classify(c *models.CanonicalContact) (Outcome, string) {
	facts := FactsFor(c)
	for _, r := range e.rules {
		if out, ok := r.Match(facts); ok {
			return out, r.Name
		}
	}
	return Outcome{Type: models.CategoryUnclassified, Confidence: models.ConfidenceLow, Signal: "no rule matched"}, ""
}

// Dropped is a contact removed by a rule with a Drop outcome.
type Dropped struct {
	Email  string
	Rule   string
	Signal string
}

// Result is the outcome of classifying a whole contact set.
type Result struct {
	Contacts []models.CanonicalContact
	Dropped  []Dropped
	Review   []models.ReviewItem
	Counts   map[models.Category]int
}

// Apply classifies every contact. Classifications confirmed by a structured
// source are kept as they are. Dropped contacts are left out of the returned
// set; unclassified ones are queued for review.
func (e *Engine) Apply(contacts []models.CanonicalContact) Result {
	res := Result{Counts: make(map[models.Category]int)}
	for _, c := range contacts {
		if c.Classification.Source == resolver.SourceStructured && c.Classification.Type != "" {
			res.Contacts = append(res.Contacts, c)
			res.Counts[c.Classification.Type]++
			continue
		}

		out, rule := e.Classify(&c)
		if out.Drop {
			res.Dropped = append(res.Dropped, Dropped{Email: c.Email, Rule: rule, Signal: out.Signal})
			logging.Log.WithField("email", c.Email).Debugf("Dropped by rule %s: %s", rule, out.Signal)
			continue
		}

		c.Classification = models.Classification{
			Type:       out.Type,
			Confidence: out.Confidence,
			Signal:     out.Signal,
			Source:     rule,
		}
		res.Contacts = append(res.Contacts, c)
		res.Counts[out.Type]++
		if out.Type == models.CategoryUnclassified {
			res.Review = append(res.Review, UnclassifiedItem(c))
		}
	}
	return res
}

// UnclassifiedItem is the review queue entry for a contact no rule placed.
func UnclassifiedItem(c models.CanonicalContact) models.ReviewItem {
	return models.ReviewItem{
		Queue:  models.QueueUnclassified,
		Email:  c.Email,
		Reason: "no rule matched",
		Detail: fmt.Sprintf("sent=%d received=%d", c.SentTo, c.ReceivedFrom),
	}
}
