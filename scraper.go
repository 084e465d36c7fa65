// scraper.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scraper is the fetch coordinator: it enumerates categories, sections and
// articles with bounded fan-out, writes markdown artifacts for changed
// content, and refreshes the metadata store. Enumeration failures are
// per-collection: a failing category or section yields zero items and the
// run continues.
type Scraper struct {
	client *HelpCenterClient
	conv   *Converter
	store  *Store
	log    *zap.SugaredLogger

	dataDir string
	// Fan-out caps for the two enumeration depths. The category cap is
	// kept below the section cap: article listing fans out much wider and
	// the remote rate limit is shared.
	categoryWorkers int
	sectionWorkers  int
}

// NewScraper creates a fetch coordinator.
func NewScraper(client *HelpCenterClient, conv *Converter, store *Store, dataDir string, categoryWorkers, sectionWorkers int, log *zap.SugaredLogger) *Scraper {
	if categoryWorkers < 1 {
		categoryWorkers = 1
	}
	if sectionWorkers < 1 {
		sectionWorkers = 1
	}
	return &Scraper{
		client:          client,
		conv:            conv,
		store:           store,
		log:             log,
		dataDir:         dataDir,
		categoryWorkers: categoryWorkers,
		sectionWorkers:  sectionWorkers,
	}
}

// Run enumerates everything under the given category IDs and reconciles the
// local mirror. Results are collected in input order of the category IDs so
// reporting is reproducible regardless of completion order.
func (s *Scraper) Run(ctx context.Context, categoryIDs []int64) (*ScrapeSummary, error) {
	summary := &ScrapeSummary{Categories: len(categoryIDs)}

	s.log.Infow("fetching sections", "categories", len(categoryIDs))
	sections := s.collectSections(ctx, categoryIDs, summary)
	summary.Sections = len(sections)
	s.log.Infow("sections found", "count", len(sections))

	s.log.Infow("fetching articles", "sections", len(sections))
	articles := s.collectArticles(ctx, sections, summary)
	summary.Articles = len(articles)
	s.log.Infow("articles found", "count", len(articles))

	state, err := s.store.Load()
	if err != nil {
		return summary, err
	}

	dirty := false
	for i := range articles {
		wrote, err := s.reconcileArticle(state, &articles[i])
		if err != nil {
			s.log.Warnw("article not saved", "id", articles[i].ID, "title", articles[i].Title, "error", err)
			summary.Failed++
			continue
		}
		if wrote {
			summary.Written++
			dirty = true
		} else {
			summary.Unchanged++
		}
	}

	if dirty {
		if err := s.store.Save(state); err != nil {
			return summary, fmt.Errorf("persisting metadata: %w", err)
		}
	}

	s.log.Infow("scrape complete",
		"sections", summary.Sections,
		"articles", summary.Articles,
		"written", summary.Written,
		"unchanged", summary.Unchanged,
		"failed", summary.Failed,
	)
	return summary, nil
}

// collectSections lists sections for every category with bounded
// concurrency, then flattens the results in input order of the category IDs.
func (s *Scraper) collectSections(ctx context.Context, categoryIDs []int64, summary *ScrapeSummary) []Section {
	results := make(map[int64][]Section, len(categoryIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan int64, len(categoryIDs))
	for _, id := range categoryIDs {
		work <- id
	}
	close(work)

	for i := 0; i < s.categoryWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for categoryID := range work {
				sections, err := s.client.ListSections(ctx, categoryID)
				if err != nil {
					s.log.Warnw("category enumeration failed", "category_id", categoryID, "error", err)
					mu.Lock()
					summary.Failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				results[categoryID] = sections
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var all []Section
	for _, categoryID := range categoryIDs {
		all = append(all, results[categoryID]...)
	}
	return all
}

// collectArticles lists articles for every section with bounded concurrency,
// flattened in the order the sections were collected.
func (s *Scraper) collectArticles(ctx context.Context, sections []Section, summary *ScrapeSummary) []RemoteArticle {
	results := make(map[int64][]RemoteArticle, len(sections))
	var mu sync.Mutex
	var wg sync.WaitGroup

	work := make(chan Section, len(sections))
	for _, sec := range sections {
		work <- sec
	}
	close(work)

	for i := 0; i < s.sectionWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sec := range work {
				articles, err := s.client.ListArticles(ctx, sec.ID)
				if err != nil {
					s.log.Warnw("section enumeration failed", "section_id", sec.ID, "section", sec.Name, "error", err)
					mu.Lock()
					summary.Failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				results[sec.ID] = articles
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var all []RemoteArticle
	seen := make(map[int64]bool)
	for _, sec := range sections {
		for _, a := range results[sec.ID] {
			// Articles can surface under more than one section.
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			all = append(all, a)
		}
	}
	return all
}

// reconcileArticle compares the remote edit timestamp against the stored one
// and rewrites the artifact only when they differ. The comparison is a whole
// string equality check; two edits with an identical timestamp collapse into
// "unchanged" and that is accepted. For existing records only the fields the
// fetch stage owns are refreshed; upload and attach state is preserved.
// Reports whether the artifact was (re)written.
func (s *Scraper) reconcileArticle(state map[string]*Article, remote *RemoteArticle) (bool, error) {
	id := strconv.FormatInt(remote.ID, 10)

	rec, exists := state[id]
	if exists && rec.EditedAt == remote.EditedAt {
		return false, nil
	}

	content, err := s.conv.Render(remote)
	if err != nil {
		return false, err
	}

	filename := id + ".md"
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return false, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, filename), []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("writing artifact: %w", err)
	}

	if !exists {
		rec = &Article{
			ID:           id,
			UploadStatus: UploadPending,
			IndexStatus:  AttachPending,
		}
		state[id] = rec
	}

	rec.Title = remote.Title
	rec.SectionID = remote.SectionID
	rec.HTMLURL = remote.HTMLURL
	rec.CreatedAt = remote.CreatedAt
	rec.UpdatedAt = remote.UpdatedAt
	rec.EditedAt = remote.EditedAt
	rec.MarkdownFile = filename
	rec.LastScraped = time.Now().Format(time.RFC3339)

	return true, nil
}
