package friskcli

import (
	"bytes"
	"strings"
	"testing"

	"frisk/internal/version"
)

func TestHelpContainsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	s := out.String()
	for _, want := range []string{"frisk", "search", "replace", "watch", "saved", "history", "open"} {
		if !strings.Contains(s, want) {
			t.Fatalf("help missing %q: %s", want, s)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-v"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), version.Version) {
		t.Fatalf("version output %q", out.String())
	}
}
