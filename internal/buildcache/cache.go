// Package buildcache lets repeated `jsdocify translate` runs skip
// re-running the Annotation Transformer / Externs Generator over files
// whose content and config haven't changed since the last successful run.
//
// The cache is intentionally conservative: any mismatch — content hash,
// config hash, or schema version — forces that file to retranslate. Whether
// the file's emitted output still exists on disk is not checked.
// There is no partial invalidation across files, since a change to one
// file's exported types can affect forward declares in any file that
// imports it, and this cache does not track that import graph.
package buildcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/zeebo/xxh3"
)

// SchemaVersion is bumped when the cache format changes, forcing a full
// rebuild on binary upgrades.
const SchemaVersion = 1

// Cache records, per translated source file, the content hash that
// produced its last emitted output. Output paths are not recorded.
type Cache struct {
	V          int               `json:"v"`
	ConfigHash string            `json:"configHash"`
	Files      map[string]string `json:"files"` // source path -> content hash
}

// CachePath returns the cache file path inside the output directory,
// mirroring `translate`'s output layout. The cache lives at
// `<outDir>/.jsdocify-cache` so deleting the output directory also
// invalidates the cache.
func CachePath(outDir, tsconfigPath string) string {
	if outDir != "" {
		return filepath.Join(outDir, ".jsdocify-cache")
	}
	dir := filepath.Dir(tsconfigPath)
	return filepath.Join(dir, ".jsdocify-cache")
}

// Load reads and parses a cache file from disk. Returns nil on any error —
// callers treat nil as "cache miss" and retranslate everything.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

// Save writes the cache to disk atomically.
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the cache file from disk. Errors are ignored.
func Delete(path string) {
	os.Remove(path)
}

// UpToDate reports whether sourcePath's current content hash matches what
// this cache recorded and the schema/config generation still matches, so
// its translation can be skipped this run.
func (c *Cache) UpToDate(currentConfigHash, sourcePath, currentHash string) bool {
	if c == nil || c.V != SchemaVersion || c.ConfigHash != currentConfigHash {
		return false
	}
	got, ok := c.Files[sourcePath]
	return ok && got == currentHash
}

// HashContent computes the xxh3 hex digest of a file's content, used to key
// the cache and to hash the config for the cache's config generation.
func HashContent(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}

// New creates a Cache seeded with the given per-file hashes.
func New(configHash string, files map[string]string) *Cache {
	return &Cache{V: SchemaVersion, ConfigHash: configHash, Files: files}
}
