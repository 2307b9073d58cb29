package replace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"frisk/internal/core/match"
	"frisk/internal/core/search"
	"frisk/internal/fileutil"
	"frisk/internal/model"
)

const DefaultBackupExtension = "friskbackup"

type Options struct {
	Backup          bool
	BackupExtension string
}

// FileError is a per-file failure. The file it names is left as it was.
type FileError struct {
	Path   string
	Reason model.SkipReason
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("replace %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func BackupPath(path string, ext string) string {
	if ext == "" {
		ext = DefaultBackupExtension
	}
	return path + "." + ext
}

// Content rewrites data line by line over the same line stream the scanner
// uses. Line terminators are carried through unchanged.
func Content(data []byte, m *match.Matcher, replacement string) ([]byte, int) {
	if m == nil || len(data) == 0 {
		return data, 0
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	total := 0
	for _, line := range search.SplitLines(string(data)) {
		text, n := m.Replace(line.Text, replacement)
		total += n
		buf.WriteString(text)
		buf.WriteString(line.EOL)
	}
	if total == 0 {
		return data, 0
	}
	return buf.Bytes(), total
}

// File replaces every match in path and returns the number of replacements.
// original may carry content already read by the scanner; nil re-reads it.
// A file with no matches is neither backed up nor written. A symlink is
// followed: the file it points at is backed up and rewritten, the link stays.
func File(path string, original []byte, m *match.Matcher, replacement string, opts Options) (int, error) {
	if m == nil {
		return 0, fmt.Errorf("matcher is nil")
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return 0, &FileError{Path: path, Reason: model.SkipUnreadable, Err: err}
	}
	st, err := os.Stat(target)
	if err != nil {
		return 0, &FileError{Path: path, Reason: model.SkipUnreadable, Err: err}
	}
	if original == nil {
		original, err = os.ReadFile(target)
		if err != nil {
			return 0, &FileError{Path: path, Reason: model.SkipUnreadable, Err: err}
		}
	}

	out, n := Content(original, m, replacement)
	if n == 0 {
		return 0, nil
	}

	if err := checkWritable(target, st.Mode()); err != nil {
		reason := model.SkipWriteFailed
		if errors.Is(err, fs.ErrPermission) {
			reason = model.SkipPermission
		}
		return 0, &FileError{Path: path, Reason: reason, Err: err}
	}

	if opts.Backup {
		if err := fileutil.CopyFile(target, BackupPath(target, opts.BackupExtension)); err != nil {
			return 0, &FileError{Path: path, Reason: model.SkipBackupFailed, Err: err}
		}
	}

	if err := fileutil.AtomicWrite(target, out, st.Mode().Perm()); err != nil {
		return 0, &FileError{Path: path, Reason: model.SkipWriteFailed, Err: err}
	}
	return n, nil
}

// checkWritable refuses files an in-place write could not change. The rename
// in AtomicWrite only needs a writable directory, so a read-only file is
// caught here. Write bits are checked as well as the open so that privileged
// users do not overwrite read-only files either.
func checkWritable(path string, mode fs.FileMode) error {
	if mode.Perm()&0o222 == 0 {
		return &fs.PathError{Op: "write", Path: path, Err: fs.ErrPermission}
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}
