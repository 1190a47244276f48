package enforce

import (
	"errors"
	"testing"

	"mbox-addressbook/internal/models"
)

var testPatterns = []string{"noreply", "info", "support"}

func TestBidirectional(t *testing.T) {
	contacts := []models.CanonicalContact{
		{Email: "both@x.com", SentTo: 2, ReceivedFrom: 1},
		{Email: "inbound@x.com", ReceivedFrom: 5},
		{Email: "outbound@x.com", SentTo: 3},
		{Email: "none@x.com"},
	}

	kept, report := Bidirectional(contacts)

	if len(kept) != 1 || kept[0].Email != "both@x.com" {
		t.Fatalf("Bidirectional() kept %+v", kept)
	}
	for _, c := range kept {
		if c.SentTo == 0 || c.ReceivedFrom == 0 {
			t.Errorf("survivor %s lacks exchange: sent=%d received=%d", c.Email, c.SentTo, c.ReceivedFrom)
		}
	}
	if report.Examined != 4 || len(report.Removed) != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestSharedPhones(t *testing.T) {
	contacts := []models.CanonicalContact{
		{Email: "a@x.com", Phone: "(415) 555-0199", AltPhones: []string{"(212) 555-0101"}},
		{Email: "b@x.com", Phone: "(650) 555-0123", AltPhones: []string{"(415) 555-0199"}},
		{Email: "c@x.com", Phone: "(310) 555-0177"},
	}

	out, report, review := SharedPhones(contacts)

	if out[0].Phone != "(212) 555-0101" || len(out[0].AltPhones) != 0 {
		t.Errorf("a@x.com phones = %q %v, want alternate promoted", out[0].Phone, out[0].AltPhones)
	}
	if out[1].Phone != "(650) 555-0123" || len(out[1].AltPhones) != 0 {
		t.Errorf("b@x.com phones = %q %v", out[1].Phone, out[1].AltPhones)
	}
	if out[2].Phone != "(310) 555-0177" {
		t.Errorf("c@x.com phone changed: %q", out[2].Phone)
	}
	for _, c := range out {
		for _, p := range c.Phones() {
			if p == "(415) 555-0199" {
				t.Errorf("shared phone still on %s", c.Email)
			}
		}
	}
	if len(report.Cleared) != 2 {
		t.Errorf("report.Cleared = %v", report.Cleared)
	}
	if len(review) != 2 || review[0].Queue != models.QueueSharedPhone {
		t.Errorf("review = %+v", review)
	}
	if contacts[0].Phone != "(415) 555-0199" {
		t.Error("input slice was modified")
	}
}

func TestSharedPhones_OnlyPhoneCleared(t *testing.T) {
	contacts := []models.CanonicalContact{
		{Email: "a@x.com", Phone: "(415) 555-0199"},
		{Email: "b@x.com", Phone: "(415) 555-0199"},
	}

	out, _, _ := SharedPhones(contacts)

	for _, c := range out {
		if c.Phone != "" || c.AltPhones != nil {
			t.Errorf("%s still has phones %q %v", c.Email, c.Phone, c.AltPhones)
		}
	}
}

func TestRoleAccounts(t *testing.T) {
	queue := ReviewList{
		{Queue: models.QueueUnclassified, Email: "info@x.com"},
		{Queue: models.QueueUnclassified, Email: "jane@x.com"},
	}
	contacts := []models.CanonicalContact{
		{Email: "info@x.com"},
		{Email: "noreply@bank.com"},
		{Email: "jane@x.com"},
	}

	kept, report, err := RoleAccounts(contacts, testPatterns, &queue)
	if err != nil {
		t.Fatalf("RoleAccounts() error: %v", err)
	}
	if len(kept) != 1 || kept[0].Email != "jane@x.com" {
		t.Errorf("RoleAccounts() kept %+v", kept)
	}
	if len(report.Removed) != 2 {
		t.Errorf("report.Removed = %v", report.Removed)
	}
	if len(queue) != 1 || queue[0].Email != "jane@x.com" {
		t.Errorf("review queue = %+v", queue)
	}
}

type failingQueue struct{}

func (failingQueue) RemoveReviewItems([]string) (int, error) {
	return 0, errors.New("database is locked")
}

func TestRoleAccounts_QueueError(t *testing.T) {
	contacts := []models.CanonicalContact{{Email: "info@x.com"}}
	if _, _, err := RoleAccounts(contacts, testPatterns, failingQueue{}); err == nil {
		t.Error("RoleAccounts() expected error from queue")
	}
}

func TestRunAll(t *testing.T) {
	contacts := []models.CanonicalContact{
		{Email: "support@x.com", Phone: "(415) 555-0199", SentTo: 1, ReceivedFrom: 1},
		{Email: "a@x.com", Phone: "(415) 555-0199", SentTo: 1, ReceivedFrom: 1},
		{Email: "b@x.com", SentTo: 1},
	}

	kept, reports, review, err := RunAll(contacts, testPatterns, nil)
	if err != nil {
		t.Fatalf("RunAll() error: %v", err)
	}
	if len(reports) != 3 || reports[0].Pass != PassRoleAccounts || reports[2].Pass != PassBidirectional {
		t.Fatalf("reports = %+v", reports)
	}
	// The role account went first, so a@x.com keeps its phone.
	if len(kept) != 1 || kept[0].Email != "a@x.com" || kept[0].Phone != "(415) 555-0199" {
		t.Errorf("RunAll() kept %+v", kept)
	}
	if len(review) != 0 {
		t.Errorf("review = %+v", review)
	}
}

func TestReport_ExamplesBounded(t *testing.T) {
	var contacts []models.CanonicalContact
	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com", "g@x.com"} {
		contacts = append(contacts, models.CanonicalContact{Email: e})
	}
	_, report := Bidirectional(contacts)
	if len(report.Examples) != MaxExamples || len(report.Removed) != 7 {
		t.Errorf("examples = %d removed = %d", len(report.Examples), len(report.Removed))
	}
}
