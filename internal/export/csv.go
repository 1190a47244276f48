// Package export writes the classified contact set as one CSV file per
// category.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mbox-addressbook/internal/correspondents"
	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// Header is the column row of every export file.
var Header = []string{"email", "first name", "last name", "phone", "tags"}

// FileName returns the export file name for a category.
func FileName(cat models.Category) string {
	return string(cat) + ".csv"
}

// Tags renders the classification of c as a semicolon-separated tag list.
func Tags(c models.CanonicalContact) string {
	cl := c.Classification
	cat := cl.Type
	if cat == "" {
		cat = models.CategoryUnclassified
	}
	tags := []string{string(cat)}
	if cl.Confidence != "" {
		tags = append(tags, "confidence:"+string(cl.Confidence))
	}
	if cl.Signal != "" {
		tags = append(tags, strings.ReplaceAll(strings.ToLower(cl.Signal), " ", "-"))
	}
	if cl.Source != "" {
		tags = append(tags, "source:"+cl.Source)
	}
	return strings.Join(tags, "; ")
}

// Group splits contacts by category, each group sorted by email.
func Group(contacts []models.CanonicalContact) map[models.Category][]models.CanonicalContact {
	groups := make(map[models.Category][]models.CanonicalContact)
	for _, c := range contacts {
		cat := c.Classification.Type
		if cat == "" {
			cat = models.CategoryUnclassified
		}
		groups[cat] = append(groups[cat], c)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Email < g[j].Email })
	}
	return groups
}

// Encode renders contacts as CSV with the export header.
func Encode(contacts []models.CanonicalContact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		first, last := c.FirstName, c.LastName
		if first == "" && last == "" {
			first = c.FullName
		}
		if err := w.Write([]string{c.Email, first, last, c.Phone, Tags(c)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// WriteAll writes one file per non-empty category into dir and returns the
// paths written, in category order. Files of empty categories left by an
// earlier run are removed.
func WriteAll(dir string, contacts []models.CanonicalContact) ([]string, error) {
	groups := Group(contacts)
	var written []string
	for _, cat := range models.Categories {
		g := groups[cat]
		if len(g) == 0 {
			path := filepath.Join(dir, FileName(cat))
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return written, fmt.Errorf("remove stale %s: %w", path, err)
			}
			continue
		}
		data, err := Encode(g)
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", cat, err)
		}
		path := filepath.Join(dir, FileName(cat))
		if err := correspondents.WriteFileAtomic(path, data); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		logging.Log.WithField("category", cat).Infof("Exported %d contacts to %s", len(g), path)
		written = append(written, path)
	}
	return written, nil
}
