package walk

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"testing"

	"frisk/internal/core/match"
)

func mustFilespec(t *testing.T, specs ...string) *match.Filespec {
	t.Helper()
	fs, err := match.CompileFilespec(specs, false, false)
	if err != nil {
		t.Fatalf("filespec: %v", err)
	}
	return fs
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func rels(t *testing.T, root string, paths []string) []string {
	t.Helper()
	var out []string
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(r))
	}
	sort.Strings(out)
	return out
}

func TestListFiles_FilespecAndRecursion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "x")
	writeFile(t, root, "b.md", "x")
	writeFile(t, root, "sub/c.txt", "x")
	writeFile(t, root, "sub/deeper/d.ini", "x")

	files, _ := ListFiles([]string{root}, Options{Filespec: mustFilespec(t, "*.txt;*.ini"), Recursive: true})
	want := []string{"a.txt", "sub/c.txt", "sub/deeper/d.ini"}
	if got := rels(t, root, files); !reflect.DeepEqual(got, want) {
		t.Fatalf("recursive got=%v want=%v", got, want)
	}

	files, stats := ListFiles([]string{root}, Options{Filespec: mustFilespec(t, "*.txt;*.ini")})
	if got := rels(t, root, files); !reflect.DeepEqual(got, []string{"a.txt"}) {
		t.Fatalf("flat got=%v", got)
	}
	if stats.DirsSearched != 1 {
		t.Fatalf("dirs searched=%d", stats.DirsSearched)
	}
}

func TestListFiles_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "12345")
	writeFile(t, root, "big.txt", "1234567890")

	files, stats := ListFiles([]string{root}, Options{Filespec: mustFilespec(t, "*.txt"), MaxFileSize: 5})
	if got := rels(t, root, files); !reflect.DeepEqual(got, []string{"small.txt"}) {
		t.Fatalf("files=%v", got)
	}
	if stats.FilesTooLarge != 1 {
		t.Fatalf("too large=%d", stats.FilesTooLarge)
	}
}

func TestListFiles_FileRootAndMissingRoot(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, root, "one.txt", "x")

	files, stats := ListFiles([]string{filepath.Join(root, "missing"), p}, Options{Filespec: mustFilespec(t, "*.txt")})
	if len(files) != 1 || files[0] != p {
		t.Fatalf("files=%v", files)
	}
	if stats.DirsSkipped != 1 || len(stats.Errors) != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestWalker_StopsWhenConsumerBreaks(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "sub/d.txt"} {
		writeFile(t, root, name, "x")
	}

	w := New([]string{root, root}, Options{Recursive: true})
	n := 0
	for range w.Files() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("n=%d", n)
	}
	if s := w.Stats(); s.DirsSearched != 1 {
		t.Fatalf("walk continued after break: %+v", s)
	}
}

func TestWalker_UnreadableDirectoryIsCounted(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "x")
	locked := filepath.Join(root, "locked")
	writeFile(t, root, "locked/hidden.txt", "x")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, stats := ListFiles([]string{root}, Options{Recursive: true})
	if got := rels(t, root, files); !reflect.DeepEqual(got, []string{"ok.txt"}) {
		t.Fatalf("files=%v", got)
	}
	if stats.DirsSkipped != 1 || stats.DirsSearched != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestListFiles_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "build/\n*.log\n")
	writeFile(t, root, "keep.txt", "x")
	writeFile(t, root, "drop.log", "x")
	writeFile(t, root, "build/out.txt", "x")
	writeFile(t, root, ".git/config", "x")

	files, _ := ListFiles([]string{root}, Options{Recursive: true, Gitignore: true})
	want := []string{".gitignore", "keep.txt"}
	if got := rels(t, root, files); !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}

	files, _ = ListFiles([]string{root}, Options{Recursive: true})
	if len(files) != 5 {
		t.Fatalf("without ignore rules expected 5 files, got=%v", rels(t, root, files))
	}
}

func TestListFiles_GitInfoExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/info/exclude", "# local\n*.tmp\nnotes/\n")
	writeFile(t, root, ".gitignore", "!keep.tmp\n")
	writeFile(t, root, "a.txt", "x")
	writeFile(t, root, "scratch.tmp", "x")
	writeFile(t, root, "keep.tmp", "x")
	writeFile(t, root, "notes/n.txt", "x")

	files, _ := ListFiles([]string{root}, Options{Recursive: true, Gitignore: true})
	want := []string{".gitignore", "a.txt", "keep.tmp"}
	if got := rels(t, root, files); !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
}

func TestFilter_ShouldInclude(t *testing.T) {
	root := t.TempDir()
	f, err := NewFilter(root, Options{Filespec: mustFilespec(t, "*.go")})
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.ShouldInclude("pkg/a.go", false) || f.ShouldInclude("pkg/a.txt", false) {
		t.Fatalf("file filtering wrong")
	}
	if !f.ShouldInclude("pkg", true) {
		t.Fatalf("directories are always included without ignore rules")
	}
	if Depth("a/b/c.go") != 2 || Depth("c.go") != 0 {
		t.Fatalf("depth wrong")
	}
}
