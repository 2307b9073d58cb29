package sqlite

import (
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"frisk/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpen_PragmasApplied(t *testing.T) {
	s := openTest(t)
	if jm, err := s.JournalMode(); err != nil || jm != "wal" {
		t.Fatalf("journal_mode=%q err=%v", jm, err)
	}
	if bt, err := s.QueryPragma("busy_timeout"); err != nil || bt != "5000" {
		t.Fatalf("busy_timeout=%q err=%v", bt, err)
	}
	if _, err := s.QueryPragma("x; DROP TABLE history"); err == nil {
		t.Fatalf("expected invalid pragma name")
	}
}

func TestPushHistory_MRU(t *testing.T) {
	s := openTest(t)
	for _, v := range []string{"a", "b", "c", "a", "A"} {
		if err := s.PushHistory(ListMatches, v, 3); err != nil {
			t.Fatalf("push %q: %v", v, err)
		}
	}
	got, err := s.History(ListMatches)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"A", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}

	if other, _ := s.History(ListPaths); len(other) != 0 {
		t.Fatalf("lists leak into each other: %v", other)
	}
}

func TestPushHistory_DefaultCap(t *testing.T) {
	s := openTest(t)
	for i := 0; i < 15; i++ {
		if err := s.PushHistory(ListPaths, strconv.Itoa(i), 0); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	got, _ := s.History(ListPaths)
	if len(got) != DefaultMaxHistory || got[0] != "14" {
		t.Fatalf("got=%v", got)
	}
}

func TestRecordParams(t *testing.T) {
	s := openTest(t)
	p := model.SearchParams{
		Paths:           []string{"/a", "/b"},
		Filespecs:       []string{"*.txt"},
		Match:           "needle",
		Replace:         "pin",
		BackupExtension: "bak",
		MaxFileSize:     5000 * 1024,
		Flags:           model.FlagReplace | model.FlagBackup,
	}
	if err := s.RecordParams(p, 10); err != nil {
		t.Fatalf("record: %v", err)
	}
	checks := map[string]string{
		ListPaths:            "/a;/b",
		ListFilespecs:        "*.txt",
		ListMatches:          "needle",
		ListReplaces:         "pin",
		ListBackupExtensions: "bak",
		ListFileSizes:        "5000",
	}
	for list, want := range checks {
		got, _ := s.History(list)
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s=%v want %q", list, got, want)
		}
	}
}

func TestSavedSearches(t *testing.T) {
	s := openTest(t)
	ss := model.SavedSearch{
		Name:     "todos",
		Match:    "TODO",
		Path:     "/proj",
		Filespec: "*.go;*.c",
		FileSize: "5000",
		Flags:    model.FlagRecursive | model.FlagMatchCaseSensitive,
	}
	if err := s.SaveSearch(ss); err != nil {
		t.Fatalf("save: %v", err)
	}
	ss.Match = "FIXME"
	if err := s.SaveSearch(ss); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.SaveSearch(model.SavedSearch{Name: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadSearch("todos")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, ss) {
		t.Fatalf("got=%+v want=%+v", got, ss)
	}

	all, _ := s.SavedSearches()
	if len(all) != 2 || all[0].Name != "abc" {
		t.Fatalf("all=%+v", all)
	}

	if err := s.DeleteSearch("todos"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadSearch("todos"); err == nil {
		t.Fatalf("expected missing search")
	}
	if err := s.DeleteSearch("todos"); err == nil {
		t.Fatalf("expected error deleting twice")
	}
	if err := s.SaveSearch(model.SavedSearch{}); err == nil {
		t.Fatalf("expected name required")
	}
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	for i := 0; i < 3; i++ {
		_, err := s.RecordRun(Run{
			Match:         "m" + strconv.Itoa(i),
			Paths:         []string{"/x"},
			Outcome:       model.OutcomeCompleted,
			FilesSearched: i,
			Elapsed:       1500 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	runs, err := s.RecentRuns(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 || runs[0].Match != "m2" || runs[0].Elapsed != 1500*time.Millisecond || runs[0].Paths[0] != "/x" {
		t.Fatalf("runs=%+v", runs)
	}
}
