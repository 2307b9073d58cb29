package frisk

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"frisk/internal/core/replace"
	"frisk/internal/core/search"
	"frisk/internal/core/walk"
	"frisk/internal/model"
)

type runResult struct {
	summary model.Summary
	outcome model.Outcome
	failure string
}

func (sc *SearchContext) work(r *run, c compiled) {
	defer sc.workers.Done()
	defer close(r.done)

	if r.prev != nil {
		<-r.prev.done
		r.prev = nil
	}

	started := time.Now()
	res := &runResult{outcome: model.OutcomeCompleted}
	defer func() {
		if rec := recover(); rec != nil {
			res.outcome = model.OutcomeFailed
			res.failure = fmt.Sprint(rec)
			sc.log.Error("search worker panicked", "search_id", r.id, "panic", rec, "stack", string(debug.Stack()))
		}
		res.summary.Elapsed = time.Since(started)
		sc.finish(r, res)
	}()

	sc.scan(r, c, res)
}

func (sc *SearchContext) scan(r *run, c compiled, res *runResult) {
	p := r.params
	doReplace := p.Flags.Has(model.FlagReplace)
	trim := p.Flags.Has(model.FlagTrimFilenames)

	// Size limits are applied by the scanner so each oversized file gets a
	// recorded skip reason.
	w := walk.New(p.Paths, walk.Options{
		Filespec:  c.filespec,
		Recursive: p.Flags.Has(model.FlagRecursive),
		Gitignore: p.Gitignore,
	})

	var pending []model.Entry
	status := StatusStarting
	files := 0
	lastPoke := time.Now()

	for f := range w.Files() {
		if sc.onFile != nil {
			sc.onFile(r.id, f.Path)
		}
		if r.stop.Load() {
			res.outcome = model.OutcomeStopped
			break
		}
		status = "Frisking: " + f.Path

		sr := search.ScanFile(f.Path, search.Options{
			MaxFileSize: p.MaxFileSize,
			Matcher:     c.matcher,
			KeepContent: doReplace,
		})
		sc.tally(res, sr)

		if doReplace && len(sr.Lines) > 0 {
			n, err := replace.File(f.Path, sr.Content, c.matcher, p.Replace, replace.Options{
				Backup:          p.Flags.Has(model.FlagBackup),
				BackupExtension: p.BackupExtension,
			})
			if err != nil {
				res.summary.ReplaceFailures++
				res.summary.Errors = append(res.summary.Errors, replaceError(f.Path, err))
				sc.log.Debug("replace failed", "search_id", r.id, "path", f.Path, "err", err)
			} else if n > 0 {
				res.summary.FilesReplaced++
				res.summary.Replacements += n
			}
		}

		pending = append(pending, sr.Entries(search.DisplayName(f.Root, f.Path, trim))...)
		files++
		if files >= sc.opts.PokeFiles || time.Since(lastPoke) >= sc.opts.PokeInterval {
			sc.mergeWalkStats(res, w.Stats())
			if !sc.emit(r, status, pending, res.summary) {
				res.outcome = model.OutcomeStopped
				return
			}
			pending = nil
			if r.stop.Load() {
				res.outcome = model.OutcomeStopped
				return
			}
			files = 0
			lastPoke = time.Now()
		}
	}

	// A stopped run still publishes what it found before the stop, so files
	// it already rewrote show up in the results.
	sc.mergeWalkStats(res, w.Stats())
	if len(pending) > 0 {
		if !sc.emit(r, status, pending, res.summary) {
			res.outcome = model.OutcomeStopped
		}
	}
}

func (sc *SearchContext) tally(res *runResult, sr search.Result) {
	s := &res.summary
	if sr.Skipped() {
		s.FilesSkipped++
		fe := model.FileError{Path: sr.Path, Reason: sr.Skip}
		if sr.Err != nil {
			fe.Err = sr.Err.Error()
		}
		s.Errors = append(s.Errors, fe)
		return
	}
	s.FilesSearched++
	if len(sr.Lines) > 0 {
		s.FilesWithHits++
		s.LinesWithHits += len(sr.Lines)
		s.Hits += sr.Hits()
	}
}

// mergeWalkStats folds the walker's directory counters into the summary.
// Walker errors are appended once, when the walk has finished with them.
func (sc *SearchContext) mergeWalkStats(res *runResult, ws walk.Stats) {
	res.summary.DirsSearched = ws.DirsSearched
	res.summary.DirsSkipped = ws.DirsSkipped
	seen := make(map[string]bool, len(res.summary.Errors))
	for _, e := range res.summary.Errors {
		seen[e.Path] = true
	}
	for _, e := range ws.Errors {
		if !seen[e.Path] {
			res.summary.Errors = append(res.summary.Errors, e)
		}
	}
}

// emit publishes a progress batch if the run is still current. The check and
// the enqueue happen under one lock, so a superseded run can never publish
// after its successor's first notification.
func (sc *SearchContext) emit(r *run, status string, entries []model.Entry, sum model.Summary) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cur != r {
		return false
	}
	text, hl := sc.appendLocked(entries)
	sum.Errors = append([]model.FileError(nil), sum.Errors...)
	sc.summary = sum
	sc.queue.push(model.Notification{
		Kind:       model.KindProgress,
		SearchID:   r.id,
		Running:    true,
		Status:     status,
		Text:       text,
		Highlights: hl,
		Entries:    entries,
	})
	return true
}

func (sc *SearchContext) finish(r *run, res *runResult) {
	res.summary.Outcome = res.outcome
	status := TerminalStatus(res.summary, res.failure)

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cur != r {
		sc.log.Debug("superseded search finished", "search_id", r.id, "outcome", res.outcome)
		return
	}
	sc.running = false
	sum := res.summary
	sc.summary = sum

	final := sum
	final.Errors = append([]model.FileError(nil), sum.Errors...)
	sc.queue.push(model.Notification{
		Kind:     model.KindProgress,
		SearchID: r.id,
		Status:   status,
		Final:    true,
		Outcome:  res.outcome,
		Summary:  &final,
	})
	sc.queue.push(model.Notification{
		Kind:     model.KindState,
		SearchID: r.id,
		Running:  false,
		Status:   status,
		Outcome:  res.outcome,
	})
	sc.log.Info("search finished", "search_id", r.id, "outcome", res.outcome, "files", sum.FilesSearched, "hits", sum.Hits, "errors", sum.ErrorCount(), "elapsed", sum.Elapsed)
}

// TerminalStatus renders the last status line of a run.
func TerminalStatus(s model.Summary, failure string) string {
	var b strings.Builder
	switch s.Outcome {
	case model.OutcomeFailed:
		b.WriteString("Failed")
		if failure != "" {
			b.WriteString(": " + failure)
		}
		b.WriteString(". ")
	case model.OutcomeStopped:
		b.WriteString("Stopped. ")
	default:
		b.WriteString("Done. ")
	}
	fmt.Fprintf(&b, "%d hits on %d lines in %d of %d files (%d dirs)",
		s.Hits, s.LinesWithHits, s.FilesWithHits, s.FilesSearched, s.DirsSearched)
	if s.FilesReplaced > 0 || s.ReplaceFailures > 0 {
		fmt.Fprintf(&b, ", %d replacements in %d files", s.Replacements, s.FilesReplaced)
	}
	if s.FilesSkipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.FilesSkipped)
	}
	if n := s.ErrorCount(); n > 0 {
		fmt.Fprintf(&b, ", %d errors", n)
	}
	return b.String()
}

func replaceError(path string, err error) model.FileError {
	fe := model.FileError{Path: path, Reason: model.SkipWriteFailed, Err: err.Error()}
	var rfe *replace.FileError
	if errors.As(err, &rfe) {
		fe.Reason = rfe.Reason
		if rfe.Err != nil {
			fe.Err = rfe.Err.Error()
		}
	}
	return fe
}
