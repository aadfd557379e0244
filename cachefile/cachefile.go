// Package cachefile computes cache paths and writes cached language files.
//
// Layout under the configured root:
//
//	<root>/cache/<application>/<lang>.php   application language files
//	<root>/cache/flash/lang_<lang>.xml      applet language files
//
// Files are overwritten on every run. Nothing here deletes files.
package cachefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CacheDirName is the directory under the root that holds all cached files.
const CacheDirName = "cache"

// FlashDirName is the cache subdirectory for applet XML files.
const FlashDirName = "flash"

// File extensions.
const (
	ExtPHP = ".php"
	ExtXML = ".xml"
)

// CacheWriteError reports a cache file that could not be fully written.
type CacheWriteError struct {
	Path string
	Msg  string
	Err  error
}

func (e *CacheWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to write %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("unable to write %s: %s", e.Path, e.Msg)
}

func (e *CacheWriteError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

// Layout maps logical keys to cache file paths.
type Layout struct {
	// Root is the configured system root; files go under Root/cache.
	Root string
}

// Dir returns the cache directory, <root>/cache.
func (l Layout) Dir() string {
	return filepath.Join(l.Root, CacheDirName)
}

// ApplicationFile returns <root>/cache/<app>/<lang>.php.
func (l Layout) ApplicationFile(app, lang string) (string, error) {
	return l.ApplicationFileExt(app, lang, ExtPHP)
}

// ApplicationFileExt returns <root>/cache/<app>/<lang><ext>.
func (l Layout) ApplicationFileExt(app, lang, ext string) (string, error) {
	if err := checkSegment("application", app); err != nil {
		return "", err
	}
	if err := checkSegment("language", lang); err != nil {
		return "", err
	}
	return filepath.Join(l.Dir(), app, lang+ext), nil
}

// AppletFile returns <root>/cache/flash/lang_<lang>.xml.
func (l Layout) AppletFile(lang string) (string, error) {
	if err := checkSegment("language", lang); err != nil {
		return "", err
	}
	return filepath.Join(l.Dir(), FlashDirName, "lang_"+lang+ExtXML), nil
}

// Rel returns path relative to the cache directory, with forward slashes.
func (l Layout) Rel(path string) string {
	rel, err := filepath.Rel(l.Dir(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ValidSegment reports whether s can be used as a single path element.
func ValidSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}

func checkSegment(kind, s string) error {
	if !ValidSegment(s) {
		return &CacheWriteError{Path: s, Msg: fmt.Sprintf("invalid %s name %q", kind, s)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer writes cache files, creating missing directories first.
type Writer struct {
	// OpenFile opens the destination for writing. Defaults to os.OpenFile.
	OpenFile func(name string, flag int, perm os.FileMode) (io.WriteCloser, error)
	// MkdirAll creates the destination directory. Defaults to os.MkdirAll.
	MkdirAll func(path string, perm os.FileMode) error
}

// NewWriter returns a Writer backed by the os package.
func NewWriter() *Writer {
	return &Writer{}
}

// Write replaces the file at path with content.
//
// The parent directory and its missing ancestors are created with 0755; an
// existing directory is not an error. A write that stores fewer bytes than
// len(content) fails with *CacheWriteError, as does any directory, open or
// close failure.
func (w *Writer) Write(path string, content []byte) error {
	mkdir := w.MkdirAll
	if mkdir == nil {
		mkdir = os.MkdirAll
	}
	open := w.OpenFile
	if open == nil {
		open = func(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
			return os.OpenFile(name, flag, perm)
		}
	}

	if err := mkdir(filepath.Dir(path), 0755); err != nil {
		return &CacheWriteError{Path: path, Msg: "creating directory", Err: err}
	}

	f, err := open(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return &CacheWriteError{Path: path, Msg: "opening file", Err: err}
	}

	n, werr := f.Write(content)
	cerr := f.Close()

	if n != len(content) {
		return &CacheWriteError{
			Path: path,
			Msg:  fmt.Sprintf("wrote %d of %d bytes", n, len(content)),
			Err:  werr,
		}
	}
	if werr != nil {
		return &CacheWriteError{Path: path, Msg: "writing file", Err: werr}
	}
	if cerr != nil {
		return &CacheWriteError{Path: path, Msg: "closing file", Err: cerr}
	}
	return nil
}
