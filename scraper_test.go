// scraper_test.go
package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestScraper(t *testing.T, hc *fakeHelpCenter) (*Scraper, *Store, string) {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t).Sugar()
	store := NewStore(dir, log)
	scraper := NewScraper(hc.client(), NewConverter(), store, dir, 2, 4, log)
	return scraper, store, dir
}

func seedHelpCenter(hc *fakeHelpCenter) {
	hc.sections[1] = []Section{
		{ID: 10, Name: "Install", CategoryID: 1},
		{ID: 11, Name: "Billing", CategoryID: 1},
	}
	hc.sections[2] = []Section{
		{ID: 20, Name: "API", CategoryID: 2},
	}
	hc.articles[10] = []RemoteArticle{
		{ID: 42, Title: "Getting started", Body: "<p>Hello</p>", SectionID: 10, EditedAt: "2024-01-01", UpdatedAt: "2024-01-01"},
	}
	hc.articles[11] = []RemoteArticle{
		{ID: 43, Title: "Invoices", Body: "<p>Money</p>", SectionID: 11, EditedAt: "2024-01-05", UpdatedAt: "2024-01-06"},
	}
	hc.articles[20] = []RemoteArticle{
		{ID: 44, Title: "Auth", Body: "<p>Tokens</p>", SectionID: 20, EditedAt: "2024-02-01", UpdatedAt: "2024-02-01"},
	}
}

func TestScraperRun(t *testing.T) {
	hc := newFakeHelpCenter(t)
	seedHelpCenter(hc)
	scraper, store, dir := newTestScraper(t, hc)

	summary, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Sections)
	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, 3, summary.Written)
	assert.Equal(t, 0, summary.Unchanged)
	assert.Equal(t, 0, summary.Failed)

	state, err := store.Load()
	require.NoError(t, err)
	require.Len(t, state, 3)

	rec := state["42"]
	require.NotNil(t, rec)
	assert.Equal(t, "Getting started", rec.Title)
	assert.Equal(t, int64(10), rec.SectionID)
	assert.Equal(t, "2024-01-01", rec.EditedAt)
	assert.Equal(t, UploadPending, rec.UploadStatus)
	assert.Equal(t, AttachPending, rec.IndexStatus)
	assert.Empty(t, rec.LastUploadedVersion)
	assert.NotEmpty(t, rec.LastScraped)

	for _, id := range []string{"42", "43", "44"} {
		_, err := os.Stat(filepath.Join(dir, id+".md"))
		assert.NoError(t, err, "artifact %s.md should exist", id)
	}
}

func TestScraperSkipsUnchangedContent(t *testing.T) {
	hc := newFakeHelpCenter(t)
	seedHelpCenter(hc)
	scraper, store, dir := newTestScraper(t, hc)

	_, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	// Remove one artifact: if the second run left it missing, the item was
	// genuinely skipped rather than rewritten.
	require.NoError(t, os.Remove(filepath.Join(dir, "42.md")))
	before, err := os.Stat(store.Path())
	require.NoError(t, err)

	summary, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Written)
	assert.Equal(t, 3, summary.Unchanged)
	_, statErr := os.Stat(filepath.Join(dir, "42.md"))
	assert.True(t, os.IsNotExist(statErr))

	// Nothing changed, so the store was not written back.
	after, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestScraperRewritesChangedContent(t *testing.T) {
	hc := newFakeHelpCenter(t)
	seedHelpCenter(hc)
	scraper, store, _ := newTestScraper(t, hc)

	_, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	hc.mu.Lock()
	hc.articles[10] = []RemoteArticle{
		{ID: 42, Title: "Getting started v2", Body: "<p>Hello again</p>", SectionID: 10, EditedAt: "2024-03-01", UpdatedAt: "2024-03-01"},
	}
	hc.mu.Unlock()

	summary, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 2, summary.Unchanged)

	state, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "Getting started v2", state["42"].Title)
	assert.Equal(t, "2024-03-01", state["42"].EditedAt)
}

func TestScraperPreservesDownstreamState(t *testing.T) {
	hc := newFakeHelpCenter(t)
	seedHelpCenter(hc)
	scraper, store, _ := newTestScraper(t, hc)

	// Simulate a record that was fetched, uploaded and attached earlier,
	// whose content has since changed remotely.
	require.NoError(t, store.Save(map[string]*Article{
		"42": {
			ID:                  "42",
			Title:               "Getting started",
			MarkdownFile:        "42.md",
			EditedAt:            "2023-12-01",
			UpdatedAt:           "2023-12-01",
			UploadStatus:        UploadDone,
			FileID:              "file-old",
			LastUploadedVersion: "2023-12-01",
			IndexStatus:         AttachDone,
			AttachedFileID:      "file-old",
			IndexID:             "vs-1",
			SkipFromIndex:       true,
		},
	}))

	_, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	state, err := store.Load()
	require.NoError(t, err)
	rec := state["42"]

	// Fields the fetch stage owns are refreshed.
	assert.Equal(t, "2024-01-01", rec.EditedAt)
	assert.Equal(t, "2024-01-01", rec.UpdatedAt)

	// Fields owned by the downstream stages are untouched.
	assert.Equal(t, UploadDone, rec.UploadStatus)
	assert.Equal(t, "file-old", rec.FileID)
	assert.Equal(t, "2023-12-01", rec.LastUploadedVersion)
	assert.Equal(t, AttachDone, rec.IndexStatus)
	assert.Equal(t, "file-old", rec.AttachedFileID)
	assert.True(t, rec.SkipFromIndex)
}

func TestScraperFaultIsolation(t *testing.T) {
	hc := newFakeHelpCenter(t)
	seedHelpCenter(hc)
	hc.failCategories[2] = true
	hc.failSections[11] = true
	scraper, store, _ := newTestScraper(t, hc)

	summary, err := scraper.Run(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	// Category 2 and section 11 failed; section 10's article still landed.
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Written)

	state, err := store.Load()
	require.NoError(t, err)
	assert.Contains(t, state, "42")
	assert.NotContains(t, state, "43")
	assert.NotContains(t, state, "44")
}
