package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
)

// Cache is a content-addressed store of stage results on disk. One entry per
// fingerprint, written once and never rewritten: a new stage version or a new
// input always derives a new key. The cache guarantees nothing beyond
// exact-match retrieval; eviction is an operational concern handled outside
// the pipeline (see Clear).
type Cache struct {
	dir string
}

// NewCache opens (creating if needed) a file cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Fingerprint derives the cache key for a stage invocation. The input is
// serialized with encoding/json, which is byte-stable for equal values
// (struct fields in declaration order, map keys sorted), so equal logical
// inputs always hash identically.
func Fingerprint(name, version string, input any) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("serialize stage input: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the stored value for key, or ok=false on a miss. An entry that
// exists but cannot be read is logged and reported as a miss so the stage
// simply recomputes; corruption is never fatal.
func (c *Cache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.entryPath(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[cache] unreadable entry %s, treating as miss: %v", key, err)
		}
		return nil, false
	}
	if !json.Valid(data) {
		log.Printf("[cache] corrupt entry %s, treating as miss", key)
		return nil, false
	}
	return data, true
}

// Put stores value under key. The write goes through a temp file in the same
// directory followed by a rename, so a concurrent reader either sees the
// complete entry or no entry. A duplicate write of the same key is harmless:
// entries are pure functions of their fingerprint.
func (c *Cache) Put(key string, value []byte) error {
	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache entry: %w", err)
	}
	if err := os.Rename(tmpName, c.entryPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Stats reports entry count and total bytes on disk.
func (c *Cache) Stats() (entries int, bytes int64, err error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries++
		bytes += info.Size()
	}
	return entries, bytes, nil
}

// Clear removes every entry. Operational maintenance only; the pipeline
// itself never deletes entries.
func (c *Cache) Clear() (removed int, err error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
			return removed, fmt.Errorf("remove cache entry %s: %w", de.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}
