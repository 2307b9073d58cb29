package friskcli

import (
	"strings"

	"github.com/spf13/cobra"
)

// RewriteArgsForImplicitSearch turns `frisk TODO src` into `frisk search TODO src`
// when the first positional argument is not a known command.
func RewriteArgsForImplicitSearch(root *cobra.Command, args []string) []string {
	if root == nil || len(args) == 0 {
		return args
	}

	first, ok := firstPositionalArgAfterFlags(args)
	if !ok {
		return args
	}

	known := knownTopLevelCommands(root)
	if known[strings.TrimSpace(first)] {
		return args
	}

	return append([]string{"search"}, args...)
}

func knownTopLevelCommands(root *cobra.Command) map[string]bool {
	known := map[string]bool{
		"help":       true,
		"completion": true,
	}

	if root == nil {
		return known
	}

	for _, c := range root.Commands() {
		if c == nil {
			continue
		}
		known[c.Name()] = true
		for _, a := range c.Aliases {
			known[a] = true
		}
	}

	return known
}

func firstPositionalArgAfterFlags(args []string) (string, bool) {
	skipNext := false
	positionalOnly := false

	for i := 0; i < len(args); i++ {
		a := strings.TrimSpace(args[i])
		if a == "" {
			continue
		}
		if skipNext {
			skipNext = false
			continue
		}

		if a == "--" {
			positionalOnly = true
			continue
		}

		if positionalOnly {
			return a, true
		}

		if strings.HasPrefix(a, "--") {
			if strings.Contains(a, "=") {
				continue
			}

			switch strings.TrimPrefix(a, "--") {
			case "config", "db", "filespec", "max-size", "backup-ext":
				skipNext = true
			}
			// --explain only takes a value as --explain=json.
			continue
		}

		if strings.HasPrefix(a, "-") && a != "-" {
			// -f is the only value-taking short flag.
			if len(a) == 2 && a[1] == 'f' {
				skipNext = true
			}
			continue
		}

		return a, true
	}

	return "", false
}
