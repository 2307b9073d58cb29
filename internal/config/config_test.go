package config

import (
	"os"
	"path/filepath"
	"testing"

	"frisk/internal/model"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Flags != model.DefaultFlags {
		t.Fatalf("Flags=%v", s.Flags)
	}
	if s.FileSizeKB != DefaultFileSizeKB || s.Filespec != DefaultFilespec || s.BackupExtension != "friskbackup" {
		t.Fatalf("bad defaults: %+v", s)
	}
	if s.Editor.CmdTemplate == "" {
		t.Fatalf("empty command template")
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := `
filespec = "*.go"
gitignore = true

[editor]
cmd_template = "code -g !FILENAME!:!LINE!"

[editor.redirections]
".inl" = ".h"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Filespec != "*.go" || !s.Gitignore {
		t.Fatalf("overlay lost: %+v", s)
	}
	if s.FileSizeKB != DefaultFileSizeKB {
		t.Fatalf("default lost: FileSizeKB=%d", s.FileSizeKB)
	}
	if s.Editor.Redirections[".inl"] != ".h" {
		t.Fatalf("redirections=%v", s.Editor.Redirections)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"syntax": "flags = [",
		"color":  "[display]\ncolor = \"rainbow\"\n",
		"size":   "file_size_kb = -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", FileName)
	s := Default()
	s.Flags |= model.FlagMatchRegex
	s.Find.WholeWord = true
	s.Editor.Associations[".txt"] = "nano"
	if err := Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Flags != s.Flags || !got.Find.WholeWord || got.Editor.Associations[".txt"] != "nano" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}

func TestParams(t *testing.T) {
	s := Default()
	s.Flags |= model.FlagReplace
	s.Path = "/a;/b"
	p := s.Params("needle", nil)
	if len(p.Paths) != 2 || p.Paths[1] != "/b" {
		t.Fatalf("Paths=%v", p.Paths)
	}
	if p.Flags.Has(model.FlagReplace) {
		t.Fatalf("replace flag should not carry over from settings")
	}
	if p.MaxFileSize != DefaultFileSizeKB*1024 {
		t.Fatalf("MaxFileSize=%d", p.MaxFileSize)
	}
	if got := s.Params("x", []string{"."}).Paths; len(got) != 1 || got[0] != "." {
		t.Fatalf("explicit paths ignored: %v", got)
	}
}
