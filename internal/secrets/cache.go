package secrets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// CacheStatus is the answer to "is this file's encryption current?".
type CacheStatus int

const (
	// StatusUpToDate means the on-disk ciphertext matches the cached
	// fingerprints of both content and recipient set.
	StatusUpToDate CacheStatus = iota

	// StatusNeedsRekey means the fingerprints disagree (or no entry exists):
	// the file must be re-encrypted to the current recipient set.
	StatusNeedsRekey

	// StatusUnreadable means the ciphertext itself could not be read.
	StatusUnreadable
)

func (s CacheStatus) String() string {
	switch s {
	case StatusUpToDate:
		return "up to date"
	case StatusNeedsRekey:
		return "needs rekey"
	default:
		return "unreadable"
	}
}

// CacheEntry fingerprints one managed file: its ciphertext content, the
// recipient set it was last encrypted to, and the blob format version.
type CacheEntry struct {
	Path             string `json:"path"`
	ContentSHA256    string `json:"content_sha256"`
	RecipientsSHA256 string `json:"recipients_sha256"`
	Version          string `json:"version"`
}

type cacheFile struct {
	Version int          `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

const cacheFileVersion = 1

// CacheStore is a derived, regenerable index answering whether a file's
// encryption is current without decrypting it. It is never the source of
// truth: every verification re-derives both fingerprints from the on-disk
// blob and the current recipient set, so a lost or corrupted cache costs a
// rebuild, never correctness.
//
// Mutations are serialized under a single-writer lock; reads re-derive and
// take only a read lock for map safety.
type CacheStore struct {
	path string
	root string

	mu      sync.RWMutex
	entries map[string]CacheEntry
	dirty   bool
}

// OpenCache loads the cache file for a project, or starts an empty one if
// none exists yet. Paths in entries are relative to the project root.
func OpenCache(cachePath, projectRoot string) (*CacheStore, error) {
	store := &CacheStore{
		path:    cachePath,
		root:    projectRoot,
		entries: make(map[string]CacheEntry),
	}

	data, err := os.ReadFile(cachePath)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache at %s: %w", cachePath, err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		// A corrupted cache is disposable: start empty, a rebuild restores it.
		return store, nil
	}
	for _, entry := range file.Entries {
		store.entries[entry.Path] = entry
	}
	return store, nil
}

// ContentFingerprint returns the hex SHA-256 of a ciphertext blob.
func ContentFingerprint(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes both fingerprints for a managed file and compares them
// against the stored entry. An absent entry counts as NeedsRekey: the cache
// must never claim validity it cannot prove.
func (c *CacheStore) Verify(relPath string, recipients *RecipientSet) CacheStatus {
	blob, err := os.ReadFile(c.abs(relPath))
	if err != nil {
		return StatusUnreadable
	}

	c.mu.RLock()
	entry, ok := c.entries[relPath]
	c.mu.RUnlock()
	if !ok {
		return StatusNeedsRekey
	}

	if entry.ContentSHA256 != ContentFingerprint(blob) {
		return StatusNeedsRekey
	}
	if entry.RecipientsSHA256 != recipients.Fingerprint() {
		return StatusNeedsRekey
	}
	return StatusUpToDate
}

// Update stores the entry for a freshly (re)encrypted file. Idempotent:
// recomputing from scratch yields the same entry as this incremental update.
func (c *CacheStore) Update(relPath string, blob []byte, recipients *RecipientSet) {
	entry := CacheEntry{
		Path:             relPath,
		ContentSHA256:    ContentFingerprint(blob),
		RecipientsSHA256: recipients.Fingerprint(),
	}
	if info, err := Inspect(blob); err == nil {
		entry.Version = info.Version
	}

	c.mu.Lock()
	c.entries[relPath] = entry
	c.dirty = true
	c.mu.Unlock()
}

// CacheTarget names one managed file and its current recipient set, for
// rebuilds.
type CacheTarget struct {
	Name       string
	Path       string
	Recipients *RecipientSet
}

// Rebuild regenerates every entry from scratch, discarding previous state.
// The result is identical to the union of per-file Update calls, proving the
// cache carries no information not derivable from ciphertext and
// configuration. Unreadable files are reported per-file and skipped.
func (c *CacheStore) Rebuild(targets []CacheTarget) []FileResult {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.dirty = true
	c.mu.Unlock()

	results := make([]FileResult, 0, len(targets))
	for _, target := range targets {
		blob, err := os.ReadFile(c.abs(target.Path))
		if err != nil {
			results = append(results, FileResult{Name: target.Name, Path: target.Path, Err: err})
			continue
		}
		c.Update(target.Path, blob, target.Recipients)
		results = append(results, FileResult{Name: target.Name, Path: target.Path})
	}
	return results
}

// Entry returns the stored entry for a path, for inspection.
func (c *CacheStore) Entry(relPath string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[relPath]
	return entry, ok
}

// Len returns the number of stored entries.
func (c *CacheStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save persists the cache atomically, entries sorted by path for stable
// output. A no-op when nothing changed since load.
func (c *CacheStore) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	file := cacheFile{Version: cacheFileVersion}
	for _, entry := range c.entries {
		file.Entries = append(file.Entries, entry)
	}
	sort.Slice(file.Entries, func(i, j int) bool {
		return file.Entries[i].Path < file.Entries[j].Path
	})

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := WriteFileAtomic(c.path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	c.dirty = false
	return nil
}

func (c *CacheStore) abs(relPath string) string {
	if c.root == "" || filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(c.root, relPath)
}
