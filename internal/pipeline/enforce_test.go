package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"mbox-addressbook/internal/classify"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/store"
)

func TestEnforceDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.db")

	contacts := []models.CanonicalContact{
		{Email: "jane@rate.com", SentTo: 2, ReceivedFrom: 1, Phone: "(415) 555-0199"},
		{Email: "amy@title.com", SentTo: 1, ReceivedFrom: 1, Phone: "(415) 555-0199"},
		{Email: "info@rate.com", SentTo: 1, ReceivedFrom: 1},
		{Email: "bob@gmail.com", SentTo: 1, Phone: "(415) 555-0199"},
	}
	items := []models.ReviewItem{
		{Queue: models.QueueUnclassified, Email: "jane@rate.com", Reason: "no rule matched"},
		{Queue: models.QueueUnclassified, Email: "info@rate.com", Reason: "no rule matched"},
		{Queue: models.QueueUnclassified, Email: "bob@gmail.com", Reason: "no rule matched"},
	}
	if err := store.WriteSnapshot(ctx, path, contacts, items); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	res, err := EnforceDatabase(ctx, path, classify.DefaultDictionaries().RolePatterns)
	if err != nil {
		t.Fatalf("EnforceDatabase: %v", err)
	}
	if res.Kept != 2 || res.Total != 4 {
		t.Errorf("kept %d of %d, want 2 of 4", res.Kept, res.Total)
	}

	loaded, review, err := LoadSnapshot(ctx, path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Email != "amy@title.com" || loaded[1].Email != "jane@rate.com" {
		t.Fatalf("contacts = %+v, want amy and jane", loaded)
	}
	for _, c := range loaded {
		if c.Phone != "" {
			t.Errorf("%s phone = %q, want shared phone cleared", c.Email, c.Phone)
		}
	}
	queues := make(map[string]int)
	for _, item := range review {
		if item.Email == "info@rate.com" || item.Email == "bob@gmail.com" {
			t.Errorf("review item for removed contact: %+v", item)
		}
		queues[item.Queue]++
	}
	if queues[models.QueueSharedPhone] != 2 || queues[models.QueueUnclassified] != 1 {
		t.Errorf("review queues = %v", queues)
	}
}

func TestEnforceDatabase_CancelledKeepsDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.db")
	contacts := []models.CanonicalContact{{Email: "info@rate.com", SentTo: 1, ReceivedFrom: 1}}
	if err := store.WriteSnapshot(context.Background(), path, contacts, nil); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := EnforceDatabase(ctx, path, classify.DefaultDictionaries().RolePatterns); err == nil {
		t.Fatal("EnforceDatabase() with cancelled context error = nil")
	}

	loaded, _, err := LoadSnapshot(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("contacts = %+v, want the original row", loaded)
	}
}
