package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "data", "sent_articles.json"), nil)
	store, err := repo.Load()
	require.NoError(t, err)
	require.NotNil(t, store)

	assert.Equal(t, SchemaVersion, store.Version)
	assert.Nil(t, store.LastUpdated)
	assert.Empty(t, store.Articles)
}

func TestLoadDegradesToEmptyStore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		wantErr error
	}{
		{"malformed json", `{"version": 1, "articles": [`, ErrCorrupt},
		{"empty file", ``, ErrCorrupt},
		{"not an object", `[1, 2, 3]`, ErrCorrupt},
		{"articles missing", `{"version": 1, "last_updated": null}`, ErrCorrupt},
		{"articles not a list", `{"version": 1, "articles": {"url": "x"}}`, ErrCorrupt},
		{"record field wrong type", `{"version": 1, "articles": [{"title": 42}]}`, ErrCorrupt},
		{"trailing content", `{"version": 1, "articles": []} {}`, ErrCorrupt},
		{"version mismatch", `{"version": 2, "articles": []}`, ErrSchemaVersion},
		{"version missing", `{"articles": []}`, ErrSchemaVersion},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "history.json")
			writeFile(t, path, tc.content)

			store, err := NewFileRepository(path, nil).Load()
			require.ErrorIs(t, err, tc.wantErr)
			require.NotNil(t, store)
			assert.Equal(t, SchemaVersion, store.Version)
			assert.Empty(t, store.Articles)
		})
	}
}

func TestLoadAcceptsLegacyDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	writeFile(t, path, `{
  "version": 1,
  "last_updated": "2026-01-18T09:30:00.123456",
  "articles": [
    {"url": "https://example.com/a", "url_normalized": "https://example.com/a", "title": "AI 新闻", "category_id": "ai", "sent_date": "2026-01-18"},
    {"url": "https://example.com/b", "title": "No date", "category_id": "ai"}
  ]
}`)

	store, err := NewFileRepository(path, nil).Load()
	require.NoError(t, err)
	require.Len(t, store.Articles, 2)
	assert.Equal(t, "AI 新闻", store.Articles[0].Title)
	assert.Empty(t, store.Articles[1].SentDate)
	assert.Empty(t, store.Articles[1].URLNormalized)

	_, ok := store.Updated()
	assert.False(t, ok, "legacy timestamp without zone is not reported as a save time")
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.json")
	repo := NewFileRepository(path, nil, WithClock(fixedClock(now)))

	store := NewStore()
	store.Articles = append(store.Articles,
		Record{URL: "https://example.com/1", URLNormalized: "https://example.com/1", Title: "First", CategoryID: "ai", SentDate: "2026-02-28"},
		Record{URL: "https://example.com/2?utm_source=x", URLNormalized: "https://example.com/2", Title: "Second <b>", CategoryID: "ml", SentDate: "2026-03-01"},
	)

	result, err := repo.Save(store)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Kept: 2, Pruned: 0}, result)

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, store.Articles, loaded.Articles)

	updated, ok := loaded.Updated()
	require.True(t, ok)
	assert.True(t, updated.Equal(now))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"version\": 1")
	assert.Contains(t, string(raw), "Second <b>")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSavePrunesExpiredRecords(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "history.json")
	repo := NewFileRepository(path, nil, WithClock(fixedClock(now)))

	store := NewStore()
	store.Articles = []Record{
		{Title: "boundary", SentDate: "2026-07-17"},
		{Title: "expired", SentDate: "2026-07-16"},
		{Title: "missing"},
		{Title: "garbage", SentDate: "not-a-date"},
		{Title: "fresh", SentDate: "2026-10-15"},
	}

	result, err := repo.Save(store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pruned)
	assert.Equal(t, 4, result.Kept)

	loaded, err := repo.Load()
	require.NoError(t, err)

	titles := make([]string, 0, len(loaded.Articles))
	for _, rec := range loaded.Articles {
		titles = append(titles, rec.Title)
	}
	assert.Equal(t, []string{"boundary", "missing", "garbage", "fresh"}, titles)
}

func TestSaveFailureLeavesPreviousFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "i am a file")

	repo := NewFileRepository(filepath.Join(blocker, "history.json"), nil)
	store := NewStore()
	store.Articles = append(store.Articles, Record{Title: "kept in memory", SentDate: time.Now().Format(DateLayout)})

	_, err := repo.Save(store)
	require.Error(t, err)
	assert.Len(t, store.Articles, 1)
	assert.NotNil(t, store.LastUpdated)
}

func TestPruneBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.January, 31, 23, 59, 0, 0, time.Local)
	cutoff := Cutoff(now)
	assert.Equal(t, "2025-11-02", cutoff.Format(DateLayout))

	store := &Store{Articles: []Record{
		{Title: "at cutoff", SentDate: cutoff.Format(DateLayout)},
		{Title: "day before", SentDate: cutoff.AddDate(0, 0, -1).Format(DateLayout)},
		{Title: "no date"},
	}}

	assert.Equal(t, 1, Prune(store, now))
	require.Len(t, store.Articles, 2)
	assert.Equal(t, "at cutoff", store.Articles[0].Title)
	assert.Equal(t, "no date", store.Articles[1].Title)

	assert.Zero(t, Prune(nil, now))
}
