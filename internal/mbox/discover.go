package mbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-imap/utf7"

	"mbox-addressbook/internal/logging"
)

// Archive is one mbox file selected for a run.
type Archive struct {
	Path string
	Name string // display name, decoded from IMAP modified UTF-7 when possible
}

// skipSuffixes are index and sidecar files that mail clients keep next to mbox files.
var skipSuffixes = []string{".msf", ".json", ".db", ".sqlite", ".dat", ".idx", ".lock"}

// Discover expands paths into archives. Files are taken as given; directories
// contribute their regular, non-hidden files (not recursively).
func Discover(paths []string) ([]Archive, error) {
	var archives []Archive
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			archives = append(archives, Archive{Path: p, Name: DisplayName(filepath.Base(p))})
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", p, err)
		}
		var found []Archive
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, ".") || hasSkippedSuffix(name) {
				continue
			}
			found = append(found, Archive{Path: filepath.Join(p, name), Name: DisplayName(name)})
		}
		sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
		archives = append(archives, found...)
	}
	return archives, nil
}

// DisplayName decodes a mailbox file name stored in IMAP modified UTF-7, as
// Thunderbird and Dovecot exports do. Undecodable names are returned as is.
func DisplayName(fileName string) string {
	decoded, err := utf7.Encoding.NewDecoder().String(fileName)
	if err != nil {
		logging.Log.Debugf("Failed to decode mailbox filename %s: %v", fileName, err)
		return fileName
	}
	return decoded
}

func hasSkippedSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range skipSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}
