// openai.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultAPIBaseURL = "https://api.openai.com/v1"

// UploadClient talks to the file-upload and vector-store APIs. One instance
// is constructed in main and passed into the stages that need it; there is
// no process-wide client.
type UploadClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewUploadClient creates a client with the production base URL.
func NewUploadClient(apiKey string) *UploadClient {
	return &UploadClient{
		baseURL: defaultAPIBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// VectorStore describes an index store as the service reports it.
type VectorStore struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	FileCounts struct {
		Total int `json:"total"`
	} `json:"file_counts"`
}

// UploadFile streams a local file to the file service with the given purpose
// tag and returns the opaque file handle.
func (c *UploadClient) UploadFile(ctx context.Context, path, purpose string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", purpose); err != nil {
		return "", fmt.Errorf("writing purpose field: %w", err)
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copying file contents: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart body: %w", err)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/files", w.FormDataContentType(), &buf, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("file service returned no id")
	}
	return result.ID, nil
}

// EnsureVectorStore returns the vector store with the given name, creating
// it when it does not exist yet.
func (c *UploadClient) EnsureVectorStore(ctx context.Context, name string) (*VectorStore, error) {
	var listing struct {
		Data []VectorStore `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/vector_stores", nil, &listing); err != nil {
		return nil, fmt.Errorf("listing vector stores: %w", err)
	}
	for i := range listing.Data {
		if listing.Data[i].Name == name {
			return &listing.Data[i], nil
		}
	}

	var created VectorStore
	if err := c.doJSON(ctx, http.MethodPost, "/vector_stores", map[string]string{"name": name}, &created); err != nil {
		return nil, fmt.Errorf("creating vector store %q: %w", name, err)
	}
	return &created, nil
}

// GetVectorStore fetches current store details, file counts included.
func (c *UploadClient) GetVectorStore(ctx context.Context, storeID string) (*VectorStore, error) {
	var store VectorStore
	if err := c.doJSON(ctx, http.MethodGet, "/vector_stores/"+storeID, nil, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// AttachFile attaches an uploaded file to a vector store.
func (c *UploadClient) AttachFile(ctx context.Context, storeID, fileID string) error {
	return c.doJSON(ctx, http.MethodPost, "/vector_stores/"+storeID+"/files", map[string]string{"file_id": fileID}, nil)
}

// DetachFile removes a file from a vector store.
func (c *UploadClient) DetachFile(ctx context.Context, storeID, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/vector_stores/"+storeID+"/files/"+fileID, nil, nil)
}

// isDuplicateAttach reports whether an attach error really means the file is
// already in the store. The service signals this only in the error text, so
// duplicate attachments are folded into success here.
func isDuplicateAttach(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already") || strings.Contains(msg, "duplicate")
}

// doJSON marshals body (when present) and performs a JSON request.
func (c *UploadClient) doJSON(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, "application/json", reader, result)
}

// do performs a request against the service and decodes the JSON response
// into result when it is non-nil. Non-2xx responses surface as HTTPError
// with the body text preserved.
func (c *UploadClient) do(ctx context.Context, method, path, contentType string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, URL: c.baseURL + path, Body: truncate(string(respBody), 300)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
