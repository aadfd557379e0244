package cachefile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	t.Parallel()

	l := Layout{Root: "/srv/app"}

	got, err := l.ApplicationFile("shop", "hu")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/app", "cache", "shop", "hu.php"), got)

	got, err = l.ApplicationFileExt("shop", "hu", ExtXML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/app", "cache", "shop", "hu.xml"), got)

	got, err = l.AppletFile("en")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/app", "cache", "flash", "lang_en.xml"), got)

	assert.Equal(t, "shop/hu.php", l.Rel(filepath.Join("/srv/app", "cache", "shop", "hu.php")))
}

func TestLayoutRejectsUnsafeSegments(t *testing.T) {
	t.Parallel()

	l := Layout{Root: "/srv/app"}
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := l.ApplicationFile(bad, "en")
		var cwErr *CacheWriteError
		require.ErrorAs(t, err, &cwErr, "application %q", bad)

		_, err = l.ApplicationFile("shop", bad)
		require.ErrorAs(t, err, &cwErr, "language %q", bad)

		_, err = l.AppletFile(bad)
		require.ErrorAs(t, err, &cwErr, "applet language %q", bad)
	}
}

func TestLayoutKeysDoNotCollide(t *testing.T) {
	t.Parallel()

	l := Layout{Root: "/srv/app"}
	seen := map[string]string{}
	add := func(key, path string, err error) {
		require.NoError(t, err)
		if prev, ok := seen[path]; ok {
			t.Fatalf("%s and %s both map to %s", prev, key, path)
		}
		seen[path] = key
	}

	for _, app := range []string{"shop", "flash", "portal"} {
		for _, lang := range []string{"en", "hu", "lang_en"} {
			p, err := l.ApplicationFile(app, lang)
			add(app+"/"+lang, p, err)
		}
	}
	for _, lang := range []string{"en", "hu", "lang_en"} {
		p, err := l.AppletFile(lang)
		add("applet/"+lang, p, err)
	}
}

func TestWriterCreatesDirectoriesAndRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "cache", "shop", "en.php")
	content := []byte("<?php return [];")

	w := NewWriter()
	require.NoError(t, w.Write(path, content))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Second write into the existing directory replaces the file.
	require.NoError(t, w.Write(path, []byte("x")))
	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestWriterEmptyContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "flash", "lang_en.xml")
	require.NoError(t, NewWriter().Write(path, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

type shortWriter struct {
	limit  int
	closed bool
}

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > s.limit {
		return s.limit, nil
	}
	return len(p), nil
}

func (s *shortWriter) Close() error {
	s.closed = true
	return nil
}

func TestWriterShortWrite(t *testing.T) {
	t.Parallel()

	sw := &shortWriter{limit: 3}
	w := &Writer{
		MkdirAll: func(string, os.FileMode) error { return nil },
		OpenFile: func(string, int, os.FileMode) (io.WriteCloser, error) { return sw, nil },
	}

	err := w.Write("/cache/shop/en.php", []byte("<?php return [];"))
	var cwErr *CacheWriteError
	require.ErrorAs(t, err, &cwErr)
	assert.Contains(t, err.Error(), "wrote 3 of 16 bytes")
	assert.True(t, sw.closed)
}

func TestWriterDirectoryFailure(t *testing.T) {
	t.Parallel()

	diskFull := errors.New("no space left on device")
	w := &Writer{
		MkdirAll: func(string, os.FileMode) error { return diskFull },
	}

	err := w.Write("/cache/shop/en.php", []byte("x"))
	var cwErr *CacheWriteError
	require.ErrorAs(t, err, &cwErr)
	assert.ErrorIs(t, err, diskFull)
}

func TestWriterDestinationIsDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "en.php")
	require.NoError(t, os.Mkdir(path, 0755))

	err := NewWriter().Write(path, []byte("x"))
	var cwErr *CacheWriteError
	require.ErrorAs(t, err, &cwErr)
}
