package lockfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newLockFile() *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
	}
}

func TestHashDeterministic(t *testing.T) {
	h1 := Hash([]byte("<?php return [];"))
	h2 := Hash([]byte("<?php return [];"))
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	h3 := Hash([]byte("different"))
	if h1 == h3 {
		t.Errorf("Hash collision: %s == %s", h1, h3)
	}
}

func TestLoadNonExistent(t *testing.T) {
	lf, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error for non-existent file: %v", err)
	}
	if lf.Version != Version {
		t.Errorf("Version = %d, want %d", lf.Version, Version)
	}
	if len(lf.Checksums) != 0 {
		t.Errorf("Checksums not empty: %v", lf.Checksums)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lf.Record("shop/en.php", []byte("en"))
	lf.Record("shop/hu.php", []byte("hu"))
	lf.Record("flash/lang_en.xml", []byte("<data/>"))

	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path := filepath.Join(dir, LockFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Lock file not created at %s", path)
	}

	lf2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}

	dirs, files := lf2.Stats()
	if dirs != 2 {
		t.Errorf("dirs = %d, want 2", dirs)
	}
	if files != 3 {
		t.Errorf("files = %d, want 3", files)
	}
	if got := lf2.Checksum("shop/hu.php"); got != Hash([]byte("hu")) {
		t.Errorf("Checksum(shop/hu.php) = %q, want %q", got, Hash([]byte("hu")))
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("checksums: [oops"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("Load expected parse error")
	}
}

func TestRecordReportsChanges(t *testing.T) {
	lf := newLockFile()

	if !lf.Record("shop/en.php", []byte("v1")) {
		t.Error("first record should be changed")
	}
	if lf.Record("shop/en.php", []byte("v1")) {
		t.Error("same content should be unchanged")
	}
	if !lf.Record("shop/en.php", []byte("v2")) {
		t.Error("new content should be changed")
	}
	if !lf.IsChanged("portal/en.php", []byte("v2")) {
		t.Error("different directory should be changed")
	}
}

func TestClean(t *testing.T) {
	lf := newLockFile()

	lf.Record("shop/en.php", []byte("en"))
	lf.Record("shop/hu.php", []byte("hu"))
	lf.Record("shop/de.php", []byte("de"))

	lf.Clean("shop", []string{"en.php", "hu.php"})

	if lf.IsChanged("shop/en.php", []byte("en")) {
		t.Error("en.php should still be tracked")
	}
	if lf.Checksum("shop/de.php") != "" {
		t.Error("de.php should be removed by Clean")
	}

	lf.Clean("shop", nil)
	if dirs, _ := lf.Stats(); dirs != 0 {
		t.Errorf("dirs after cleaning everything = %d, want 0", dirs)
	}
}

func TestDirsAndSummary(t *testing.T) {
	lf := newLockFile()

	if lf.Summary() != "empty" {
		t.Errorf("empty summary = %q, want %q", lf.Summary(), "empty")
	}

	lf.Record("shop/en.php", nil)
	lf.Record("flash/lang_en.xml", nil)
	lf.Record("admin/en.php", nil)

	dirs := lf.Dirs()
	expected := []string{"admin", "flash", "shop"}
	if len(dirs) != len(expected) {
		t.Fatalf("dirs len = %d, want %d", len(dirs), len(expected))
	}
	for i, want := range expected {
		if dirs[i] != want {
			t.Errorf("dirs[%d] = %q, want %q", i, dirs[i], want)
		}
	}

	s := lf.Summary()
	if !strings.HasPrefix(s, "3 directories, 3 files") {
		t.Errorf("Summary() = %q", s)
	}
}

func TestRecordAfterReload(t *testing.T) {
	dir := t.TempDir()

	lf, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lf.Record("flash/lang_en.xml", []byte("<data/>"))
	if err := lf.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load after save: %v", err)
	}
	if reloaded.Record("flash/lang_en.xml", []byte("<data/>")) {
		t.Error("Record(same content) after reload = true, want false")
	}
	if !reloaded.Record("flash/lang_hu.xml", []byte("<data/>")) {
		t.Error("Record(new file) = false, want true")
	}
	if dirs, files := reloaded.Stats(); dirs != 1 || files != 2 {
		t.Errorf("Stats() = %d, %d, want 1, 2", dirs, files)
	}
}
