// helpcenter.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPError represents a non-2xx response from a remote service. The body is
// kept because the index service reports duplicate attachments only in the
// error text.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Section is one grouping of articles inside a category.
type Section struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
}

// RemoteArticle is an article as the help center reports it, body included.
type RemoteArticle struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	SectionID int64  `json:"section_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	EditedAt  string `json:"edited_at"`
}

// HelpCenterClient is a read-only client for the help-center enumeration API.
type HelpCenterClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHelpCenterClient creates a client for the given help-center base URL,
// e.g. "https://support.example.com/api/v2/help_center/en-us".
func NewHelpCenterClient(baseURL string) *HelpCenterClient {
	return &HelpCenterClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// enumerationQuery asks for the server's maximum page size. Responses are
// paginated server-side; a single page is requested and further pages are
// not followed. Known limitation, kept deliberately.
const enumerationQuery = "sort_by=position&sort_order=desc&per_page=100"

// ListSections fetches all sections under a category.
func (c *HelpCenterClient) ListSections(ctx context.Context, categoryID int64) ([]Section, error) {
	u := fmt.Sprintf("%s/categories/%d/sections?%s", c.baseURL, categoryID, enumerationQuery)

	var result struct {
		Sections []Section `json:"sections"`
	}
	if err := c.doGet(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("listing sections for category %d: %w", categoryID, err)
	}

	// The payload does not always echo the category; stamp it so callers
	// can report section provenance.
	for i := range result.Sections {
		if result.Sections[i].CategoryID == 0 {
			result.Sections[i].CategoryID = categoryID
		}
	}
	return result.Sections, nil
}

// ListArticles fetches all articles under a section, bodies included.
func (c *HelpCenterClient) ListArticles(ctx context.Context, sectionID int64) ([]RemoteArticle, error) {
	u := fmt.Sprintf("%s/sections/%d/articles?%s", c.baseURL, sectionID, enumerationQuery)

	var result struct {
		Articles []RemoteArticle `json:"articles"`
	}
	if err := c.doGet(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("listing articles for section %d: %w", sectionID, err)
	}
	return result.Articles, nil
}

// doGet performs a GET request and decodes the JSON response into result.
func (c *HelpCenterClient) doGet(ctx context.Context, rawURL string, result interface{}) error {
	if _, err := url.Parse(rawURL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Body: truncate(string(body), 200)}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
