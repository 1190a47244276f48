// Package store persists the canonical contact set and the manual review
// queues in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mbox-addressbook/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore holds contacts and review items in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	email          TEXT PRIMARY KEY,
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	full_name      TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	alt_phones     TEXT NOT NULL DEFAULT '[]',
	title          TEXT NOT NULL DEFAULT '',
	titles         TEXT NOT NULL DEFAULT '[]',
	company        TEXT NOT NULL DEFAULT '',
	companies      TEXT NOT NULL DEFAULT '[]',
	addresses      TEXT NOT NULL DEFAULT '[]',
	nmls           TEXT NOT NULL DEFAULT '',
	sent_to        INTEGER NOT NULL DEFAULT 0,
	received_from  INTEGER NOT NULL DEFAULT 0,
	subjects       TEXT NOT NULL DEFAULT '[]',
	category       TEXT NOT NULL DEFAULT 'unclassified',
	confidence     TEXT NOT NULL DEFAULT '',
	signal         TEXT NOT NULL DEFAULT '',
	class_source   TEXT NOT NULL DEFAULT '',
	sources        TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS review_items (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	queue  TEXT NOT NULL,
	email  TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '',
	UNIQUE(queue, email, reason)
);

CREATE INDEX IF NOT EXISTS review_items_email ON review_items(email);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const contactColumns = `email, first_name, last_name, full_name, phone, alt_phones, title, titles,
	company, companies, addresses, nmls, sent_to, received_from, subjects,
	category, confidence, signal, class_source, sources`

// SaveContacts upserts contacts in one transaction.
func (s *SQLiteStore) SaveContacts(ctx context.Context, contacts []models.CanonicalContact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			first_name    = excluded.first_name,
			last_name     = excluded.last_name,
			full_name     = excluded.full_name,
			phone         = excluded.phone,
			alt_phones    = excluded.alt_phones,
			title         = excluded.title,
			titles        = excluded.titles,
			company       = excluded.company,
			companies     = excluded.companies,
			addresses     = excluded.addresses,
			nmls          = excluded.nmls,
			sent_to       = excluded.sent_to,
			received_from = excluded.received_from,
			subjects      = excluded.subjects,
			category      = excluded.category,
			confidence    = excluded.confidence,
			signal        = excluded.signal,
			class_source  = excluded.class_source,
			sources       = excluded.sources
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range contacts {
		lists, err := encodeLists(c.AltPhones, c.Titles, c.Companies, c.Addresses, c.Subjects, c.Sources)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.Email, err)
		}
		category := c.Classification.Type
		if category == "" {
			category = models.CategoryUnclassified
		}
		_, err = stmt.ExecContext(ctx,
			c.Email, c.FirstName, c.LastName, c.FullName, c.Phone, lists[0], c.Title, lists[1],
			c.Company, lists[2], lists[3], c.NMLS, c.SentTo, c.ReceivedFrom, lists[4],
			string(category), string(c.Classification.Confidence), c.Classification.Signal,
			c.Classification.Source, lists[5])
		if err != nil {
			return fmt.Errorf("save %s: %w", c.Email, err)
		}
	}
	return tx.Commit()
}

// LoadContacts returns every stored contact ordered by email.
func (s *SQLiteStore) LoadContacts(ctx context.Context) ([]models.CanonicalContact, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+contactColumns+" FROM contacts ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.CanonicalContact
	for rows.Next() {
		var (
			c        models.CanonicalContact
			lists    [6]string
			category string
			conf     string
		)
		if err := rows.Scan(&c.Email, &c.FirstName, &c.LastName, &c.FullName, &c.Phone, &lists[0],
			&c.Title, &lists[1], &c.Company, &lists[2], &lists[3], &c.NMLS, &c.SentTo, &c.ReceivedFrom,
			&lists[4], &category, &conf, &c.Classification.Signal, &c.Classification.Source, &lists[5]); err != nil {
			return nil, err
		}
		targets := []*[]string{&c.AltPhones, &c.Titles, &c.Companies, &c.Addresses, &c.Subjects, &c.Sources}
		for i, raw := range lists {
			if err := json.Unmarshal([]byte(raw), targets[i]); err != nil {
				return nil, fmt.Errorf("decode %s: %w", c.Email, err)
			}
		}
		c.Classification.Type, _ = models.ParseCategory(category)
		c.Classification.Confidence = models.Confidence(conf)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (s *SQLiteStore) DeleteContacts(ctx context.Context, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM contacts WHERE email = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range emails {
		if _, err := stmt.ExecContext(ctx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CountContacts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&count)
	return count, err
}

// AddReviewItems queues items; an identical queue/email/reason entry is kept once.
func (s *SQLiteStore) AddReviewItems(ctx context.Context, items []models.ReviewItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO review_items (queue, email, reason, detail) VALUES (?, ?, ?, ?)
		ON CONFLICT(queue, email, reason) DO UPDATE SET detail = excluded.detail
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.Queue, it.Email, it.Reason, it.Detail); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReviewItems lists one queue, or all queues when queue is empty.
func (s *SQLiteStore) ReviewItems(ctx context.Context, queue string) ([]models.ReviewItem, error) {
	query := "SELECT queue, email, reason, detail FROM review_items"
	var args []any
	if queue != "" {
		query += " WHERE queue = ?"
		args = append(args, queue)
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY queue, email, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ReviewItem
	for rows.Next() {
		var it models.ReviewItem
		if err := rows.Scan(&it.Queue, &it.Email, &it.Reason, &it.Detail); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// RemoveReviewItems deletes every queue entry for the given emails and
// returns how many rows went.
func (s *SQLiteStore) RemoveReviewItems(emails []string) (int, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(emails))
	args := make([]any, len(emails))
	for i, e := range emails {
		placeholders[i] = "?"
		args[i] = e
	}
	res, err := s.db.Exec("DELETE FROM review_items WHERE email IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// WriteSnapshot writes contacts and review items to a fresh database at path.
// The file only replaces path once every row is committed.
func WriteSnapshot(ctx context.Context, path string, contacts []models.CanonicalContact, items []models.ReviewItem) error {
	tmp := path + ".tmp"
	removeDB(tmp)

	s, err := NewSQLiteStore(tmp)
	if err != nil {
		return err
	}
	if err := s.SaveContacts(ctx, contacts); err != nil {
		s.Close()
		removeDB(tmp)
		return fmt.Errorf("save contacts: %w", err)
	}
	if err := s.AddReviewItems(ctx, items); err != nil {
		s.Close()
		removeDB(tmp)
		return fmt.Errorf("save review items: %w", err)
	}
	if err := s.Close(); err != nil {
		removeDB(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	removeDB(path)
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// removeDB deletes a database file and its WAL sidecars.
func removeDB(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

func encodeLists(lists ...[]string) ([]string, error) {
	out := make([]string, len(lists))
	for i, l := range lists {
		if l == nil {
			l = []string{}
		}
		b, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}
