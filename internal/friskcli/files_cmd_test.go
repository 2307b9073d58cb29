package friskcli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesCommand_ListsWhatSearchWouldRead(t *testing.T) {
	env := newCLIEnv(t)
	writeFile(t, filepath.Join(env.root, "sub", "d.txt"), strings.Repeat("x", 4096))

	out, err := env.run(t, "files", "-f", "*.txt;*.go", env.root)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	for _, want := range []string{"a.txt", "c.go", filepath.Join("sub", "d.txt")} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "b.ini") {
		t.Fatalf("filespec not applied:\n%s", out)
	}

	out, err = env.run(t, "files", "-f", "*.txt", "-R", "--max-size", "1", env.root)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if got := strings.Fields(out); len(got) != 1 || filepath.Base(got[0]) != "a.txt" {
		t.Fatalf("files=%q", got)
	}
}

func TestFilesCommand_BadFilespec(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "files", "--filespec-regex", "-f", "(", env.root)
	if err == nil || !strings.Contains(err.Error(), "invalid filespec") {
		t.Fatalf("err=%v", err)
	}
}
