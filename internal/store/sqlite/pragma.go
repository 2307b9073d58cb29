package sqlite

import (
	"fmt"
	"strings"
)

// JournalMode reports the journal mode the history database ended up in.
// Open asks for WAL, but a database on a filesystem without shared memory
// support stays in its previous mode.
func (s *Store) JournalMode() (string, error) {
	return s.QueryPragma("journal_mode")
}

// QueryPragma returns the first column of a PRAGMA that reads back a single
// row. The name is checked against [A-Za-z0-9_] because it is spliced into
// the statement.
func (s *Store) QueryPragma(name string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("store is not open")
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.IndexFunc(name, notPragmaRune) >= 0 {
		return "", fmt.Errorf("bad pragma name %q", name)
	}

	var v any
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("pragma %s: %w", name, err)
	}
	switch v := v.(type) {
	case nil:
		return "", nil
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func notPragmaRune(r rune) bool {
	switch {
	case r == '_', r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return false
	}
	return true
}
