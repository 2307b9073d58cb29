package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"frisk/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const DefaultMaxHistory = 10

// History list names.
const (
	ListPaths            = "paths"
	ListFilespecs        = "filespecs"
	ListMatches          = "matches"
	ListReplaces         = "replaces"
	ListBackupExtensions = "backup_extensions"
	ListFileSizes        = "file_sizes"
	ListFind             = "find"
)

var Lists = []string{ListPaths, ListFilespecs, ListMatches, ListReplaces, ListBackupExtensions, ListFileSizes, ListFind}

// Store persists what a user typed before: MRU lists, saved searches and a
// log of finished runs.
type Store struct {
	db *sql.DB
}

type Run struct {
	ID            int64
	StartedAt     time.Time
	Match         string
	Paths         []string
	Flags         model.Flags
	Outcome       model.Outcome
	FilesSearched int
	Hits          int
	Replacements  int
	Errors        int
	Elapsed       time.Duration
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DefaultPath is the history database beside the user's other frisk state.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "frisk", "history.db")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}
	_, _ = s.db.Exec("PRAGMA journal_mode = WAL")
	return execStatements(s.db, schemaSQL)
}

// PushHistory moves value to the front of list, dropping an exact duplicate
// and trimming the list to max entries.
func (s *Store) PushHistory(list string, value string, max int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	list = strings.TrimSpace(list)
	if list == "" {
		return fmt.Errorf("list is required")
	}
	if value == "" {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxHistory
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM history WHERE list = ?`, list).Scan(&seq); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO history (list, value, seq, used_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(list, value) DO UPDATE SET
		   seq=excluded.seq,
		   used_at=excluded.used_at`,
		list, value, seq+1, time.Now().Unix(),
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM history
		 WHERE list = ? AND seq NOT IN (
		   SELECT seq FROM history WHERE list = ? ORDER BY seq DESC LIMIT ?
		 )`,
		list, list, max,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// History returns list newest first.
func (s *Store) History(list string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	rows, err := s.db.Query(`SELECT value FROM history WHERE list = ? ORDER BY seq DESC`, list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecordParams pushes every input of a search onto its history list.
func (s *Store) RecordParams(p model.SearchParams, max int) error {
	push := func(list, value string) error { return s.PushHistory(list, value, max) }
	if err := push(ListPaths, strings.Join(p.Paths, ";")); err != nil {
		return err
	}
	if err := push(ListFilespecs, strings.Join(p.Filespecs, ";")); err != nil {
		return err
	}
	if err := push(ListMatches, p.Match); err != nil {
		return err
	}
	if p.Flags.Has(model.FlagReplace) {
		if err := push(ListReplaces, p.Replace); err != nil {
			return err
		}
		if p.Flags.Has(model.FlagBackup) {
			if err := push(ListBackupExtensions, p.BackupExtension); err != nil {
				return err
			}
		}
	}
	if p.MaxFileSize > 0 {
		if err := push(ListFileSizes, fmt.Sprint(p.MaxFileSize/1024)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) SaveSearch(ss model.SavedSearch) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	if strings.TrimSpace(ss.Name) == "" {
		return fmt.Errorf("saved search name is required")
	}
	_, err := s.db.Exec(
		`INSERT INTO saved_searches (name, match_text, path, filespec, file_size, replace_text, backup_extension, flags, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   match_text=excluded.match_text,
		   path=excluded.path,
		   filespec=excluded.filespec,
		   file_size=excluded.file_size,
		   replace_text=excluded.replace_text,
		   backup_extension=excluded.backup_extension,
		   flags=excluded.flags,
		   updated_at=excluded.updated_at`,
		ss.Name, ss.Match, ss.Path, ss.Filespec, ss.FileSize, ss.Replace, ss.BackupExtension, int64(ss.Flags), time.Now().Unix(),
	)
	return err
}

func (s *Store) LoadSearch(name string) (model.SavedSearch, error) {
	if s == nil || s.db == nil {
		return model.SavedSearch{}, fmt.Errorf("store is not open")
	}
	var ss model.SavedSearch
	var flags int64
	err := s.db.QueryRow(
		`SELECT name, match_text, path, filespec, file_size, replace_text, backup_extension, flags
		 FROM saved_searches WHERE name = ?`,
		name,
	).Scan(&ss.Name, &ss.Match, &ss.Path, &ss.Filespec, &ss.FileSize, &ss.Replace, &ss.BackupExtension, &flags)
	if err == sql.ErrNoRows {
		return model.SavedSearch{}, fmt.Errorf("no saved search named %q", name)
	}
	if err != nil {
		return model.SavedSearch{}, err
	}
	ss.Flags = model.Flags(flags)
	return ss, nil
}

func (s *Store) DeleteSearch(name string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is not open")
	}
	res, err := s.db.Exec(`DELETE FROM saved_searches WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no saved search named %q", name)
	}
	return nil
}

func (s *Store) SavedSearches() ([]model.SavedSearch, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	rows, err := s.db.Query(
		`SELECT name, match_text, path, filespec, file_size, replace_text, backup_extension, flags
		 FROM saved_searches ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SavedSearch
	for rows.Next() {
		var ss model.SavedSearch
		var flags int64
		if err := rows.Scan(&ss.Name, &ss.Match, &ss.Path, &ss.Filespec, &ss.FileSize, &ss.Replace, &ss.BackupExtension, &flags); err != nil {
			return nil, err
		}
		ss.Flags = model.Flags(flags)
		out = append(out, ss)
	}
	return out, rows.Err()
}

func (s *Store) RecordRun(r Run) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store is not open")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, match_text, paths, flags, outcome, files_searched, hits, replacements, errors, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.Unix(), r.Match, strings.Join(r.Paths, ";"), int64(r.Flags), string(r.Outcome),
		r.FilesSearched, r.Hits, r.Replacements, r.Errors, r.Elapsed.Milliseconds(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is not open")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, match_text, paths, flags, outcome, files_searched, hits, replacements, errors, elapsed_ms
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, flags, elapsed int64
		var paths, outcome string
		if err := rows.Scan(&r.ID, &started, &r.Match, &paths, &flags, &outcome, &r.FilesSearched, &r.Hits, &r.Replacements, &r.Errors, &elapsed); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0)
		if paths != "" {
			r.Paths = strings.Split(paths, ";")
		}
		r.Flags = model.Flags(flags)
		r.Outcome = model.Outcome(outcome)
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func execStatements(db *sql.DB, sqlText string) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	sqlText = strings.ReplaceAll(sqlText, "\r\n", "\n")

	var cleaned strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "--") {
			continue
		}
		cleaned.WriteString(line)
		cleaned.WriteString("\n")
	}

	for _, raw := range strings.Split(cleaned.String(), ";") {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
