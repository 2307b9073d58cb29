package friskcli

import (
	"path/filepath"
	"strings"
	"testing"

	"frisk/internal/config"
	"frisk/internal/model"
)

func TestSavedLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "saved", "save", "greet", "-t", "hello", env.root)
	if err != nil {
		t.Fatalf("save: %v\n%s", err, out)
	}
	out, err = env.run(t, "saved", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "greet") || !strings.Contains(out, `"hello"`) {
		t.Fatalf("list output:\n%s", out)
	}

	out, err = env.run(t, "saved", "load", "greet")
	if err != nil {
		t.Fatalf("load: %v\n%s", err, out)
	}
	if !strings.Contains(out, "a.txt(1): hello world") {
		t.Fatalf("load output:\n%s", out)
	}

	if _, err := env.run(t, "saved", "delete", "greet"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.run(t, "saved", "load", "greet"); err == nil {
		t.Fatalf("load after delete succeeded")
	}
}

func TestSavedReplaceNeedsYes(t *testing.T) {
	env := newCLIEnv(t)
	setStdinTerminal(t, false)

	if _, err := env.run(t, "saved", "save", "swap", "--replace", "bye", "hello", env.root); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := env.run(t, "saved", "load", "swap"); err == nil {
		t.Fatalf("expected refusal without --yes")
	}
}

func TestSavedParamsRoundTrip(t *testing.T) {
	s := config.Default()
	p := s.Params("hello", []string{"a", "b"})
	p.Flags |= model.FlagReplace | model.FlagWholeWord
	p.Replace = "bye"
	p.MaxFileSize = 3 * 1024

	ss := SavedFromParams("x", p)
	if ss.Path != "a;b" || ss.FileSize != "3" || ss.Replace != "bye" {
		t.Fatalf("saved=%+v", ss)
	}

	got, err := ParamsFromSaved(ss, s)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if got.Match != "hello" || got.Replace != "bye" || got.MaxFileSize != 3*1024 || got.Flags != p.Flags {
		t.Fatalf("params=%+v", got)
	}
	if len(got.Paths) != 2 || got.Paths[1] != "b" {
		t.Fatalf("Paths=%v", got.Paths)
	}

	ss.FileSize = "lots"
	if _, err := ParamsFromSaved(ss, s); err == nil {
		t.Fatalf("expected invalid file size error")
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "search", "hello", env.root); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := env.run(t, "search", "again", env.root); err != nil {
		t.Fatalf("search: %v", err)
	}

	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if out != "again\nhello\n" {
		t.Fatalf("matches=%q", out)
	}

	out, err = env.run(t, "history", "paths")
	if err != nil {
		t.Fatalf("history paths: %v", err)
	}
	if strings.TrimSpace(out) != env.root {
		t.Fatalf("paths=%q", out)
	}

	out, err = env.run(t, "history", "--runs", "5")
	if err != nil {
		t.Fatalf("history runs: %v", err)
	}
	if strings.Count(out, "completed") != 2 {
		t.Fatalf("runs=%q", out)
	}

	if _, err := env.run(t, "history", "bogus"); err == nil {
		t.Fatalf("expected unknown list error")
	}
}

func TestNoHistory(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "--no-history", "search", "hello", env.root); err != nil {
		t.Fatalf("search: %v", err)
	}
	out, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if out != "" {
		t.Fatalf("history recorded: %q", out)
	}
}

func TestOpenDryRun(t *testing.T) {
	env := newCLIEnv(t)
	writeFile(t, env.cfg, "[editor]\ncmd_template = 'myedit --line !LINE! \"!FILENAME!\"'\n")

	out, err := env.run(t, "open", "--dry-run", filepath.Join(env.root, "a.txt"), "7")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := "myedit --line 7 " + filepath.Join(env.root, "a.txt") + "\n"
	if out != want {
		t.Fatalf("got %q want %q", out, want)
	}

	if _, err := env.run(t, "open", "--dry-run", "a.txt", "zero"); err == nil {
		t.Fatalf("expected invalid line error")
	}
}
