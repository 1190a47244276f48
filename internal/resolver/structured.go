package resolver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mbox-addressbook/internal/models"
)

// headerAliases maps side-table column names onto record fields.
var headerAliases = map[string]string{
	"email":           "email",
	"e-mail":          "email",
	"email address":   "email",
	"first name":      "first",
	"firstname":       "first",
	"first":           "first",
	"last name":       "last",
	"lastname":        "last",
	"last":            "last",
	"surname":         "last",
	"phone":           "phone",
	"phone number":    "phone",
	"mobile":          "phone",
	"cell":            "phone",
	"title":           "title",
	"job title":       "title",
	"company":         "company",
	"organization":    "company",
	"employer":        "company",
	"address":         "address",
	"mailing address": "address",
	"street":          "address",
	"nmls":            "nmls",
	"nmls id":         "nmls",
	"nmls #":          "nmls",
	"role":            "role",
	"type":            "role",
	"category":        "role",
}

// LoadStructured reads a CSV side-table. Columns are matched by header name;
// a column holding the email address is required. Rows without an email are
// skipped.
func LoadStructured(path string) ([]models.StructuredRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open side-table: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	records, err := ReadStructured(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("side-table %s: %w", path, err)
	}
	return records, nil
}

// ReadStructured parses side-table rows from r, labeling them with source.
func ReadStructured(r io.Reader, source string) ([]models.StructuredRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := headerAliases[key]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["email"]; !ok {
		return nil, errors.New("no email column")
	}

	value := func(row []string, field string) string {
		i, ok := columns[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []models.StructuredRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		email := models.NormalizeEmail(value(row, "email"))
		if email == "" || !strings.Contains(email, "@") {
			continue
		}
		out = append(out, models.StructuredRecord{
			Email:     email,
			FirstName: value(row, "first"),
			LastName:  value(row, "last"),
			Phone:     value(row, "phone"),
			Title:     value(row, "title"),
			Company:   value(row, "company"),
			Address:   value(row, "address"),
			NMLS:      value(row, "nmls"),
			Role:      value(row, "role"),
			Source:    source,
		})
	}
}
