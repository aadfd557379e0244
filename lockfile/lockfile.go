// Package lockfile implements langcache.lock, a manifest of the MD5
// checksums of every cached language file written by the last runs.
//
// The manifest never changes what a run fetches: every run regenerates every
// file. It only lets a run report which files actually changed and lets the
// status command show what the cache holds.
//
// The lock file is stored alongside .langcache.yaml as langcache.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "langcache.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the langcache.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // cache dir -> file name -> md5

	path string `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of content.
func Hash(content []byte) string {
	return fmt.Sprintf("%x", md5.Sum(content))
}

// splitKey turns a slash-separated path relative to the cache directory
// ("shop/en.php", "flash/lang_en.xml") into its directory and file name.
func splitKey(relPath string) (string, string) {
	dir, file := path.Split(filepath.ToSlash(relPath))
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "."
	}
	return dir, file
}

// IsChanged reports whether content differs from the checksum recorded for
// relPath. Unknown files are always changed.
func (lf *LockFile) IsChanged(relPath string, content []byte) bool {
	dir, file := splitKey(relPath)
	files, ok := lf.Checksums[dir]
	if !ok {
		return true
	}
	old, ok := files[file]
	if !ok {
		return true
	}
	return old != Hash(content)
}

// Record stores the checksum of a freshly written cache file and reports
// whether it differs from the previously recorded one.
func (lf *LockFile) Record(relPath string, content []byte) bool {
	dir, file := splitKey(relPath)
	sum := Hash(content)

	files := lf.Checksums[dir]
	if files == nil {
		files = make(map[string]string)
		lf.Checksums[dir] = files
	}
	old, ok := files[file]
	files[file] = sum
	return !ok || old != sum
}

// Checksum returns the recorded checksum for relPath, or "".
func (lf *LockFile) Checksum(relPath string) string {
	dir, file := splitKey(relPath)
	return lf.Checksums[dir][file]
}

// Clean removes entries of dir whose file names are not in current.
// Used after a complete run so entries for languages dropped from the
// configuration do not accumulate.
func (lf *LockFile) Clean(dir string, current []string) {
	existing := lf.Checksums[dir]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(current))
	for _, k := range current {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
		}
	}
	if len(existing) == 0 {
		delete(lf.Checksums, dir)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of cache directories and files in the lock file.
func (lf *LockFile) Stats() (dirs, files int) {
	dirs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		files += len(m)
	}
	return
}

// Dirs returns the sorted list of cache directories.
func (lf *LockFile) Dirs() []string {
	dirs := make([]string, 0, len(lf.Checksums))
	for d := range lf.Checksums {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// ---------------------------------------------------------------------------
// Human-readable summary
// ---------------------------------------------------------------------------

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	dirs, files := lf.Stats()
	if dirs == 0 {
		return "empty"
	}

	var parts []string
	for _, d := range lf.Dirs() {
		parts = append(parts, fmt.Sprintf("%s: %d files", d, len(lf.Checksums[d])))
	}
	return fmt.Sprintf("%d directories, %d files (%s)", dirs, files, strings.Join(parts, ", "))
}
