package frisk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frisk/internal/core/match"
	"frisk/internal/model"
)

func TestFinder_NextAndWrap(t *testing.T) {
	m, err := FindQuery{Text: "abc"}.Compile()
	require.NoError(t, err)

	var f Finder
	text := "abc ABC"

	sp, ok := f.Next(text, m, 0)
	require.True(t, ok)
	assert.Equal(t, match.Span{Start: 0, Length: 3}, sp)

	sp, ok = f.Next(text, m, sp.End())
	require.True(t, ok)
	assert.Equal(t, match.Span{Start: 4, Length: 3}, sp)

	// Nothing after the last hit: the first attempt fails, asking again wraps.
	_, ok = f.Next(text, m, sp.End())
	assert.False(t, ok)
	sp, ok = f.Next(text, m, sp.End())
	require.True(t, ok)
	assert.Equal(t, 0, sp.Start)

	// A start past the end restarts at the top.
	sp, ok = f.Next(text, m, 100)
	require.True(t, ok)
	assert.Equal(t, 0, sp.Start)
}

func TestFinder_CaseAndWholeWord(t *testing.T) {
	text := "Cat concatenate cat"

	m, err := FindQuery{Text: "cat", CaseSensitive: true, WholeWord: true}.Compile()
	require.NoError(t, err)
	var f Finder
	sp, ok := f.Next(text, m, 0)
	require.True(t, ok)
	assert.Equal(t, 16, sp.Start)

	_, err = FindQuery{Text: "(", Regex: true}.Compile()
	assert.True(t, match.IsConfigError(err))
}

func TestSearchContext_FindNext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "one needle\n", "b.txt": "two needle\n"})
	sc, _ := newContext(t, Options{})
	_, err := sc.Start(model.SearchParams{Paths: []string{root}, Match: "needle", Flags: model.FlagTrimFilenames})
	require.NoError(t, err)
	finish(sc)

	m, err := FindQuery{Text: "two"}.Compile()
	require.NoError(t, err)
	var f Finder
	sp, ok := sc.FindNext(&f, m, 0)
	require.True(t, ok)

	e, ok := sc.EntryAt(sp.Start)
	require.True(t, ok)
	assert.Equal(t, "two needle", e.Text)
}
