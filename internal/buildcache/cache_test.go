package buildcache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCachePath(t *testing.T) {
	t.Run("with outDir", func(t *testing.T) {
		tests := []struct {
			outDir string
			tsconf string
			want   string
		}{
			{"/project/dist", "/project/tsconfig.json", "/project/dist/.jsdocify-cache"},
			{"/project/dist", "/project/tsconfig.build.json", "/project/dist/.jsdocify-cache"},
			{"dist", "tsconfig.json", "dist/.jsdocify-cache"},
		}
		for _, tt := range tests {
			got := CachePath(tt.outDir, tt.tsconf)
			if got != tt.want {
				t.Errorf("CachePath(%q, %q) = %q, want %q", tt.outDir, tt.tsconf, got, tt.want)
			}
		}
	})

	t.Run("without outDir falls back to tsconfig's directory", func(t *testing.T) {
		tests := []struct {
			tsconf string
			want   string
		}{
			{"/foo/tsconfig.json", "/foo/.jsdocify-cache"},
			{"/foo/tsconfig.build.json", "/foo/.jsdocify-cache"},
			{"/foo/bar/tsconfig.app.json", "/foo/bar/.jsdocify-cache"},
			{"tsconfig.json", ".jsdocify-cache"},
		}
		for _, tt := range tests {
			got := CachePath("", tt.tsconf)
			if got != tt.want {
				t.Errorf("CachePath(\"\", %q) = %q, want %q", tt.tsconf, got, tt.want)
			}
		}
	})
}

func TestHashContent(t *testing.T) {
	hash1 := HashContent([]byte("hello world"))
	if hash1 == "" {
		t.Fatal("HashContent returned empty for non-empty input")
	}

	hash2 := HashContent([]byte("hello world"))
	if hash1 != hash2 {
		t.Errorf("same content produced different hashes: %q vs %q", hash1, hash2)
	}

	hash3 := HashContent([]byte("hello world!"))
	if hash1 == hash3 {
		t.Error("different content produced same hash")
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "test-cache")

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for non-existent file")
	}

	original := New("abc123", map[string]string{
		"src/a.ts": "hash-a",
		"src/b.ts": "hash-b",
	})
	if err := Save(cachePath, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := Load(cachePath)
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}
	if loaded.V != original.V {
		t.Errorf("V = %d, want %d", loaded.V, original.V)
	}
	if loaded.ConfigHash != original.ConfigHash {
		t.Errorf("ConfigHash = %q, want %q", loaded.ConfigHash, original.ConfigHash)
	}
	if len(loaded.Files) != len(original.Files) {
		t.Fatalf("Files length = %d, want %d", len(loaded.Files), len(original.Files))
	}
	for path, hash := range original.Files {
		if loaded.Files[path] != hash {
			t.Errorf("Files[%q] = %q, want %q", path, loaded.Files[path], hash)
		}
	}
}

func TestLoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "corrupted-cache")

	os.WriteFile(cachePath, []byte("not json at all {{{"), 0644)

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for corrupted JSON")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "empty-cache")

	os.WriteFile(cachePath, []byte(""), 0644)

	if c := Load(cachePath); c != nil {
		t.Fatal("Load should return nil for empty file")
	}
}

func TestUpToDate_NilCache(t *testing.T) {
	var c *Cache
	if c.UpToDate("cfg", "src/a.ts", "hash-a") {
		t.Error("nil cache should never be up to date")
	}
}

func TestUpToDate_SchemaVersionMismatch(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion + 1,
		ConfigHash: "cfg",
		Files:      map[string]string{"src/a.ts": "hash-a"},
	}
	if c.UpToDate("cfg", "src/a.ts", "hash-a") {
		t.Error("cache from a future schema version should not be up to date")
	}
}

func TestUpToDate_ConfigHashMismatch(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion,
		ConfigHash: "old-hash",
		Files:      map[string]string{"src/a.ts": "hash-a"},
	}
	if c.UpToDate("new-hash", "src/a.ts", "hash-a") {
		t.Error("cache with a mismatched config hash should not be up to date")
	}
}

func TestUpToDate_UnknownSourcePath(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion,
		ConfigHash: "cfg",
		Files:      map[string]string{"src/a.ts": "hash-a"},
	}
	if c.UpToDate("cfg", "src/never-seen.ts", "whatever") {
		t.Error("a source path the cache never recorded should not be up to date")
	}
}

func TestUpToDate_ContentHashMismatch(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion,
		ConfigHash: "cfg",
		Files:      map[string]string{"src/a.ts": "hash-a"},
	}
	if c.UpToDate("cfg", "src/a.ts", "hash-a-edited") {
		t.Error("a changed content hash should invalidate the cached entry")
	}
}

func TestUpToDate_AllChecksPass(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion,
		ConfigHash: "cfg",
		Files:      map[string]string{"src/a.ts": "hash-a", "src/b.ts": "hash-b"},
	}
	if !c.UpToDate("cfg", "src/a.ts", "hash-a") {
		t.Error("matching schema, config hash, and content hash should be up to date")
	}
}

func TestUpToDate_EmptyConfigHash(t *testing.T) {
	c := &Cache{
		V:          SchemaVersion,
		ConfigHash: "",
		Files:      map[string]string{"src/a.ts": "hash-a"},
	}
	if !c.UpToDate("", "src/a.ts", "hash-a") {
		t.Error("cache with an empty config hash should be up to date when the current hash is also empty")
	}
	if c.UpToDate("now-has-config", "src/a.ts", "hash-a") {
		t.Error("cache with an empty config hash should invalidate once a config is introduced")
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "test-cache")

	os.WriteFile(cachePath, []byte(`{"v":1}`), 0644)
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatal("cache file should exist before delete")
	}

	Delete(cachePath)
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Error("cache file should not exist after delete")
	}

	Delete(filepath.Join(dir, "nonexistent"))
}

func TestNew(t *testing.T) {
	c := New("hash123", map[string]string{"src/a.ts": "hash-a", "src/b.ts": "hash-b"})
	if c.V != SchemaVersion {
		t.Errorf("V = %d, want %d", c.V, SchemaVersion)
	}
	if c.ConfigHash != "hash123" {
		t.Errorf("ConfigHash = %q, want %q", c.ConfigHash, "hash123")
	}
	if len(c.Files) != 2 {
		t.Fatalf("Files length = %d, want 2", len(c.Files))
	}
}

func TestSaveAtomicity(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "atomic-cache")

	c := New("hash", nil)
	if err := Save(cachePath, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tmpPath := cachePath + ".tmp"
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Error("temp file should not exist after successful save")
	}

	loaded := Load(cachePath)
	if loaded == nil {
		t.Fatal("failed to load after atomic save")
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	nestedPath := filepath.Join(dir, "sub", "dir", "cache")

	c := New("hash", nil)
	if err := Save(nestedPath, c); err != nil {
		t.Fatalf("Save failed to create nested dirs: %v", err)
	}

	loaded := Load(nestedPath)
	if loaded == nil {
		t.Fatal("failed to load from nested directory")
	}
}

func TestRoundTripWithRealFiles(t *testing.T) {
	// Simulate a real scenario: a config file plus a couple of translated sources.
	dir := t.TempDir()

	configPath := filepath.Join(dir, "jsdocify.config.json")
	os.WriteFile(configPath, []byte(`{"moduleFormat":"esm"}`), 0644)
	configData, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	configHash := HashContent(configData)

	srcA := filepath.Join(dir, "a.ts")
	srcB := filepath.Join(dir, "b.ts")
	os.WriteFile(srcA, []byte("export type A = number;"), 0644)
	os.WriteFile(srcB, []byte("export type B = string;"), 0644)
	dataA, _ := os.ReadFile(srcA)
	dataB, _ := os.ReadFile(srcB)
	hashA := HashContent(dataA)
	hashB := HashContent(dataB)

	cachePath := filepath.Join(dir, ".jsdocify-cache")
	c := New(configHash, map[string]string{srcA: hashA, srcB: hashB})
	if err := Save(cachePath, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Scenario 1: everything unchanged — up to date.
	loaded := Load(cachePath)
	if !loaded.UpToDate(configHash, srcA, hashA) {
		t.Error("cache should be up to date when nothing changed")
	}

	// Scenario 2: config file changed — invalidates every entry.
	os.WriteFile(configPath, []byte(`{"moduleFormat":"cjs"}`), 0644)
	newConfigData, _ := os.ReadFile(configPath)
	newConfigHash := HashContent(newConfigData)
	if loaded.UpToDate(newConfigHash, srcA, hashA) {
		t.Error("cache should be invalid when the config hash changed")
	}

	// Scenario 3: source content edited — only that entry invalidates.
	os.WriteFile(srcA, []byte("export type A = boolean;"), 0644)
	editedData, _ := os.ReadFile(srcA)
	editedHash := HashContent(editedData)
	if loaded.UpToDate(configHash, srcA, editedHash) {
		t.Error("cache should be invalid when the file's content hash changed")
	}
	if !loaded.UpToDate(configHash, srcB, hashB) {
		t.Error("an untouched file's entry should remain up to date")
	}
}
