// Package correspondents counts, per address, how many messages the archive
// owner sent to it and received from it.
package correspondents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mbox-addressbook/internal/logging"
	"mbox-addressbook/internal/models"
)

// Owner is the set of identities belonging to the archive owner.
type Owner struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
}

// NewOwner builds an identity set. Entries of the form "*@domain" match every
// address at that domain.
func NewOwner(identities ...string) *Owner {
	o := &Owner{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
	}
	for _, id := range identities {
		id = models.NormalizeEmail(id)
		if id == "" {
			continue
		}
		if strings.HasPrefix(id, "*@") {
			o.domains[id[2:]] = struct{}{}
			continue
		}
		o.addresses[id] = struct{}{}
	}
	return o
}

// OwnerFromConfig collects the configured addresses and aliases.
func OwnerFromConfig(cfg models.OwnerConfig) *Owner {
	ids := append([]string{}, cfg.Addresses...)
	return NewOwner(append(ids, cfg.Aliases...)...)
}

// Matches reports whether addr is one of the owner's identities.
func (o *Owner) Matches(addr string) bool {
	addr = models.NormalizeEmail(addr)
	if _, ok := o.addresses[addr]; ok {
		return true
	}
	_, domain := models.SplitAddress(addr)
	_, ok := o.domains[domain]
	return ok && domain != ""
}

// Counter holds the owner-relative message counts for one address.
type Counter struct {
	SentByOwner     int `json:"sentByOwner"`
	ReceivedByOwner int `json:"receivedByOwner"`
}

// Index maps normalized addresses to counters. The zero value is not usable;
// call NewIndex.
type Index struct {
	owner    *Owner
	counters map[string]*Counter
	messages int
}

// NewIndex creates an empty index for owner.
func NewIndex(owner *Owner) *Index {
	return &Index{owner: owner, counters: make(map[string]*Counter)}
}

// Observe updates the counters with one message. Messages from the owner
// count once for every distinct non-owner recipient; any other message counts
// once for its sender.
func (ix *Index) Observe(email *models.Email) {
	ix.messages++
	from := models.NormalizeEmail(email.From)
	if from == "" {
		return
	}

	if !ix.owner.Matches(from) {
		ix.counter(from).ReceivedByOwner++
		return
	}

	seen := make(map[string]struct{})
	for _, rcpt := range email.Recipients() {
		rcpt = models.NormalizeEmail(rcpt)
		if rcpt == "" || ix.owner.Matches(rcpt) {
			continue
		}
		if _, dup := seen[rcpt]; dup {
			continue
		}
		seen[rcpt] = struct{}{}
		ix.counter(rcpt).SentByOwner++
	}
}

func (ix *Index) counter(addr string) *Counter {
	c, ok := ix.counters[addr]
	if !ok {
		c = &Counter{}
		ix.counters[addr] = c
	}
	return c
}

// Get returns the counts for addr, zero when unknown.
func (ix *Index) Get(addr string) Counter {
	if c, ok := ix.counters[models.NormalizeEmail(addr)]; ok {
		return *c
	}
	return Counter{}
}

// Len returns the number of distinct addresses.
func (ix *Index) Len() int { return len(ix.counters) }

// Messages returns how many messages were observed.
func (ix *Index) Messages() int { return ix.messages }

// Addresses returns every indexed address in sorted order.
func (ix *Index) Addresses() []string {
	out := make([]string, 0, len(ix.counters))
	for addr := range ix.counters {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Combine folds other into ix, keeping the larger count per field. Indexes
// of the same archive therefore combine to themselves.
// Counts are not summed, so a correspondent whose mail is split across
// archives (yearly exports, say) is undercounted and may never reach the
// sent-by-owner threshold.
func (ix *Index) Combine(other *Index) {
	for addr, oc := range other.counters {
		c := ix.counter(addr)
		c.SentByOwner = max(c.SentByOwner, oc.SentByOwner)
		c.ReceivedByOwner = max(c.ReceivedByOwner, oc.ReceivedByOwner)
	}
	ix.messages = max(ix.messages, other.messages)
}

// Snapshot returns a copy of the counters.
func (ix *Index) Snapshot() map[string]Counter {
	out := make(map[string]Counter, len(ix.counters))
	for addr, c := range ix.counters {
		out[addr] = *c
	}
	return out
}

// Save writes the index as JSON. The file is replaced atomically so an
// interrupted write leaves the previous artifact intact.
func (ix *Index) Save(path string) error {
	data, err := json.MarshalIndent(ix.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return err
	}
	logging.Log.WithField("path", path).Infof("Saved correspondent index with %d addresses", ix.Len())
	return nil
}

// Load reads an index written by Save.
func Load(path string, owner *Owner) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var snapshot map[string]Counter
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	ix := NewIndex(owner)
	for addr, c := range snapshot {
		c := c
		ix.counters[models.NormalizeEmail(addr)] = &c
	}
	return ix, nil
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func(name string) {
		_ = os.Remove(name)
	}(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
