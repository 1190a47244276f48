package pipeline

import (
	"context"
	"fmt"

	"mbox-addressbook/internal/enforce"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
	"mbox-addressbook/internal/store"
)

// EnforceResult summarizes a pass over an existing contact database.
type EnforceResult struct {
	Reports []enforce.Report
	Kept    int
	Total   int
}

// EnforceDatabase re-applies the data-quality passes to the database at path.
// The result is written as a new snapshot that replaces path only once it is
// complete, so a failure leaves the previous database untouched.
func EnforceDatabase(ctx context.Context, path string, patterns []string) (*EnforceResult, error) {
	contacts, items, err := LoadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}

	queue := enforce.ReviewList(items)
	kept, reports, phoneItems, err := enforce.RunAll(contacts, patterns, &queue)
	if err != nil {
		return nil, err
	}
	queue = append(queue, phoneItems...)
	var removed []string
	for _, r := range reports {
		removed = append(removed, r.Removed...)
	}
	if _, err := queue.RemoveReviewItems(removed); err != nil {
		return nil, fmt.Errorf("purge review items: %w", err)
	}

	if err := store.WriteSnapshot(ctx, path, kept, queue); err != nil {
		return nil, err
	}
	logging.Log.WithField("db", path).WithField("kept", len(kept)).WithField("total", len(contacts)).Info("Enforcement written")
	return &EnforceResult{Reports: reports, Kept: len(kept), Total: len(contacts)}, nil
}

// LoadSnapshot reads every contact and review item from the database at path.
func LoadSnapshot(ctx context.Context, path string) ([]models.CanonicalContact, []models.ReviewItem, error) {
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	contacts, err := s.LoadContacts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load contacts from %s: %w", path, err)
	}
	items, err := s.ReviewItems(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("load review items from %s: %w", path, err)
	}
	return contacts, items, nil
}
