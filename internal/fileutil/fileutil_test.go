package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func TestAtomicWrite_ReplacesAndKeepsMode(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("old"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := AtomicWrite(p, []byte("new"), 0o600); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "new" {
		t.Fatalf("content=%q", b)
	}
	if runtime.GOOS != "windows" {
		st, _ := os.Stat(p)
		if st.Mode().Perm() != 0o600 {
			t.Fatalf("mode=%v", st.Mode().Perm())
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestAtomicWrite_MissingDirFails(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nope", "a.txt")
	if err := AtomicWrite(p, []byte("x"), 0o644); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	want := []byte("line1\r\nline2\x00\n")
	_ = os.WriteFile(src, want, 0o644)
	_ = os.WriteFile(dst, []byte("previous backup, longer than the source"), 0o644)

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != string(want) {
		t.Fatalf("got=%q", got)
	}
}

func TestLockAndWrite_Concurrent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg", "settings.toml")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := LockAndWrite(p, []byte("value = 1\n"), 0o644); err != nil {
				t.Errorf("LockAndWrite: %v", err)
			}
		}()
	}
	wg.Wait()

	b, err := os.ReadFile(p)
	if err != nil || string(b) != "value = 1\n" {
		t.Fatalf("content=%q err=%v", b, err)
	}
}
