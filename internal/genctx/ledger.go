package genctx

import (
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// MergeRecord is one recorded modification intent for a project file.
type MergeRecord struct {
	Intent         string // human readable description of the change
	Format         string // code block language tag, e.g. "go"
	PostActionCode string // literal fragment or diff shown to the user
}

// Entry pairs a ledger key with its records in application order.
type Entry struct {
	Path    string
	Records []MergeRecord
}

// Ledger maps project-relative paths to ordered merge records. Both the order
// in which paths were first recorded and the order of records per path are
// preserved. It is safe for concurrent use.
type Ledger struct {
	mu      sync.RWMutex
	order   []string
	records map[string][]MergeRecord
}

// NewLedger returns an empty ledger
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string][]MergeRecord)}
}

// NormalizeKey converts a relative path to the ledger key space:
// forward slashes, cleaned, no leading "./".
func NormalizeKey(p string) string {
	p = strings.ReplaceAll(filepath.ToSlash(p), "\\", "/")
	return strings.TrimPrefix(path.Clean(p), "./")
}

// Add appends a record for the given project-relative path
func (l *Ledger) Add(relPath string, rec MergeRecord) {
	key := NormalizeKey(relPath)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[key]; !ok {
		l.order = append(l.order, key)
	}
	l.records[key] = append(l.records[key], rec)
}

// Has reports whether the path has at least one record
func (l *Ledger) Has(relPath string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[NormalizeKey(relPath)]
	return ok
}

// Get returns a copy of the records for a path
func (l *Ledger) Get(relPath string) []MergeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recs := l.records[NormalizeKey(relPath)]
	if recs == nil {
		return nil
	}
	return append([]MergeRecord(nil), recs...)
}

// Keys returns paths in first-recorded order
func (l *Ledger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

// Entries returns a snapshot of the ledger in first-recorded order
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]Entry, 0, len(l.order))
	for _, key := range l.order {
		entries = append(entries, Entry{
			Path:    key,
			Records: append([]MergeRecord(nil), l.records[key]...),
		})
	}
	return entries
}

// Len returns the number of distinct paths
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Clear removes every entry
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = nil
	l.records = make(map[string][]MergeRecord)
}
