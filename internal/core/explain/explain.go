package explain

import "frisk/internal/model"

type Explain interface {
	KV(key string, value any)
	Timer(name string) func()
}

// RecordSummary copies a run's tallies into ex.
func RecordSummary(ex Explain, s model.Summary) {
	if ex == nil {
		return
	}
	ex.KV("outcome", string(s.Outcome))
	ex.KV("dirs_searched", s.DirsSearched)
	ex.KV("dirs_skipped", s.DirsSkipped)
	ex.KV("files_searched", s.FilesSearched)
	ex.KV("files_skipped", s.FilesSkipped)
	ex.KV("files_with_hits", s.FilesWithHits)
	ex.KV("lines_with_hits", s.LinesWithHits)
	ex.KV("hits", s.Hits)
	if s.FilesReplaced > 0 || s.ReplaceFailures > 0 {
		ex.KV("files_replaced", s.FilesReplaced)
		ex.KV("replacements", s.Replacements)
		ex.KV("replace_failures", s.ReplaceFailures)
	}
	ex.KV("errors", s.ErrorCount())
	ex.KV("elapsed_ms", s.Elapsed.Milliseconds())
}
