package editor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"frisk/internal/config"
)

const (
	TokenExe      = "!EXE!"
	TokenFilename = "!FILENAME!"
	TokenLine     = "!LINE!"
)

// Go-to-line command formats by editor base name.
var formats = map[string]string{
	"textpad":     `!EXE! "!FILENAME!"(!LINE!,0)`,
	"editplus":    `!EXE! "!FILENAME!" -cursor !LINE!:0`,
	"vi":          `!EXE! +!LINE! "!FILENAME!"`,
	"vim":         `!EXE! +!LINE! "!FILENAME!"`,
	"gvim":        `!EXE! --remote-silent +!LINE! "!FILENAME!"`,
	"nvim":        `!EXE! +!LINE! "!FILENAME!"`,
	"nano":        `!EXE! +!LINE! "!FILENAME!"`,
	"emacs":       `!EXE! +!LINE! "!FILENAME!"`,
	"emacsclient": `!EXE! -n +!LINE! "!FILENAME!"`,
	"code":        `!EXE! -g "!FILENAME!:!LINE!"`,
	"subl":        `!EXE! "!FILENAME!:!LINE!"`,
}

const unknownFormat = `!EXE! "!FILENAME!"`

// Resolve substitutes the placeholders of a command template.
func Resolve(template string, file string, line int, exe string) string {
	r := strings.NewReplacer(
		TokenExe, exe,
		TokenFilename, file,
		TokenLine, strconv.Itoa(line),
	)
	return r.Replace(template)
}

// FormatFor returns the go-to-line template for an editor executable.
func FormatFor(exe string) string {
	name := strings.ToLower(filepath.Base(exe))
	name = strings.TrimSuffix(name, ".exe")
	if f, ok := formats[name]; ok {
		return f
	}
	return unknownFormat
}

// Executable picks the editor for file: an association for its extension
// (after following a redirection), then $VISUAL and $EDITOR. The environment
// is only consulted when no redirection applied.
func Executable(cfg config.Editor, file string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(file))
	redirected := false
	if to := cfg.Redirections[ext]; to != "" {
		if !strings.HasPrefix(to, ".") {
			to = "." + to
		}
		ext = strings.ToLower(to)
		redirected = true
	}
	if exe := strings.TrimSpace(cfg.Associations[ext]); exe != "" {
		return exe, true
	}
	if redirected {
		return "", false
	}
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if exe := strings.TrimSpace(os.Getenv(env)); exe != "" {
			return exe, true
		}
	}
	return "", false
}

// Command resolves the argv that opens file at line.
func Command(cfg config.Editor, file string, line int) ([]string, error) {
	if strings.TrimSpace(file) == "" {
		return nil, fmt.Errorf("file is required")
	}
	if line < 1 {
		line = 1
	}

	tmpl := strings.TrimSpace(cfg.CmdTemplate)
	if cfg.FrisksChoice || tmpl == "" {
		if exe, ok := Executable(cfg, file); ok {
			return SplitCommandLine(Resolve(FormatFor(exe), file, line, quoteIfSpaced(exe)))
		}
		tmpl = config.DefaultCmdTemplate()
	}

	argv, err := SplitCommandLine(Resolve(tmpl, file, line, ""))
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command template %q resolves to nothing", tmpl)
	}
	return argv, nil
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

// SplitCommandLine breaks a resolved template into arguments. Double quotes
// group text containing spaces and are removed; they may appear mid-token.
// Backslashes are literal so Windows paths survive.
func SplitCommandLine(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		inToken bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			inToken = true
		case (r == ' ' || r == '\t') && !inQuote:
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args, nil
}

// Run starts argv attached to the given stdio and waits for it.
func Run(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Start launches argv without waiting, for GUI editors.
func Start(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
