package editor

import (
	"context"
	"reflect"
	"runtime"
	"testing"

	"frisk/internal/config"
)

func TestResolve(t *testing.T) {
	got := Resolve(`!EXE! +!LINE! "!FILENAME!" !LINE!`, "a b.txt", 12, "vim")
	want := `vim +12 "a b.txt" 12`
	if got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestSplitCommandLine(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`vi +3 "a b.txt"`, []string{"vi", "+3", "a b.txt"}},
		{`textpad "C:\dir\f.c"(7,0)`, []string{"textpad", `C:\dir\f.c(7,0)`}},
		{`  a   b  `, []string{"a", "b"}},
		{`x ""`, []string{"x", ""}},
		{``, nil},
	}
	for _, tc := range cases {
		got, err := SplitCommandLine(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: got=%q want=%q", tc.in, got, tc.want)
		}
	}
	if _, err := SplitCommandLine(`vi "open`); err == nil {
		t.Fatalf("expected unterminated quote error")
	}
}

func TestFormatFor(t *testing.T) {
	if got := FormatFor(`C:\Program Files\TextPad\TextPad.exe`); got != `!EXE! "!FILENAME!"(!LINE!,0)` {
		t.Fatalf("textpad format=%q", got)
	}
	if got := FormatFor("/usr/bin/editplus"); got != `!EXE! "!FILENAME!" -cursor !LINE!:0` {
		t.Fatalf("editplus format=%q", got)
	}
	if got := FormatFor("mystery"); got != unknownFormat {
		t.Fatalf("unknown format=%q", got)
	}
}

func TestCommand_Template(t *testing.T) {
	argv, err := Command(config.Editor{CmdTemplate: `myed --line=!LINE! "!FILENAME!"`}, "/p/x y.go", 40)
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want := []string{"myed", "--line=40", "/p/x y.go"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv=%q want=%q", argv, want)
	}
}

func TestCommand_FrisksChoiceUsesAssociation(t *testing.T) {
	cfg := config.Editor{
		FrisksChoice: true,
		CmdTemplate:  "ignored",
		Associations: map[string]string{".h": "/opt/editplus"},
		Redirections: map[string]string{".inl": "h"},
	}
	argv, err := Command(cfg, "a.inl", 5)
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want := []string{"/opt/editplus", "a.inl", "-cursor", "5:0"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv=%q want=%q", argv, want)
	}
}

func TestCommand_EnvironmentEditor(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nano")
	argv, err := Command(config.Editor{}, "f.txt", 0)
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want := []string{"nano", "+1", "f.txt"}
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv=%q want=%q", argv, want)
	}
}

func TestCommand_RedirectWithoutAssociationFallsBack(t *testing.T) {
	t.Setenv("VISUAL", "code")
	cfg := config.Editor{FrisksChoice: true, Redirections: map[string]string{".inl": ".h"}}
	argv, err := Command(cfg, "a.inl", 3)
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	want, _ := SplitCommandLine(Resolve(config.DefaultCmdTemplate(), "a.inl", 3, ""))
	if !reflect.DeepEqual(argv, want) {
		t.Fatalf("argv=%q want=%q", argv, want)
	}
}

func TestRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX true")
	}
	if err := Run(context.Background(), []string{"true"}, nil, nil, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := Run(context.Background(), nil, nil, nil, nil); err == nil {
		t.Fatalf("expected empty command error")
	}
}
