// fakes_test.go
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeHelpCenter serves the enumeration API from in-memory fixtures.
type fakeHelpCenter struct {
	mu sync.Mutex

	sections map[int64][]Section       // keyed by category ID
	articles map[int64][]RemoteArticle // keyed by section ID

	failCategories map[int64]bool
	failSections   map[int64]bool

	sectionCalls int
	articleCalls int

	srv *httptest.Server
}

func newFakeHelpCenter(t *testing.T) *fakeHelpCenter {
	t.Helper()
	f := &fakeHelpCenter{
		sections:       map[int64][]Section{},
		articles:       map[int64][]RemoteArticle{},
		failCategories: map[int64]bool{},
		failSections:   map[int64]bool{},
	}

	r := chi.NewRouter()
	r.Get("/categories/{categoryID}/sections", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "categoryID"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sectionCalls++
		if f.failCategories[id] {
			http.Error(w, `{"error":"upstream unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]interface{}{"sections": f.sections[id]})
	})
	r.Get("/sections/{sectionID}/articles", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "sectionID"), 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.articleCalls++
		if f.failSections[id] {
			http.Error(w, `{"error":"upstream unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]interface{}{"articles": f.articles[id]})
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeHelpCenter) client() *HelpCenterClient {
	return &HelpCenterClient{baseURL: f.srv.URL, httpClient: f.srv.Client()}
}

// fakeFileService serves the upload and vector-store APIs from memory.
type fakeFileService struct {
	mu sync.Mutex

	uploads    int
	nextFileID int
	stores     []VectorStore
	attached   map[string]bool
	detached   []string

	failUpload bool
	failAttach bool
	failDetach bool

	srv *httptest.Server
}

func newFakeFileService(t *testing.T) *fakeFileService {
	t.Helper()
	f := &fakeFileService{attached: map[string]bool{}}

	r := chi.NewRouter()
	r.Post("/files", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.FormValue("purpose") == "" {
			http.Error(w, `{"error":"purpose is required"}`, http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failUpload {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		f.uploads++
		f.nextFileID++
		writeJSON(w, map[string]string{"id": fmt.Sprintf("file-%d", f.nextFileID)})
	})

	r.Get("/vector_stores", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"data": f.stores})
	})
	r.Post("/vector_stores", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		vs := VectorStore{ID: fmt.Sprintf("vs-%d", len(f.stores)+1), Name: body.Name}
		f.stores = append(f.stores, vs)
		writeJSON(w, vs)
	})
	r.Get("/vector_stores/{storeID}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, vs := range f.stores {
			if vs.ID == chi.URLParam(req, "storeID") {
				vs.FileCounts.Total = len(f.attached)
				writeJSON(w, vs)
				return
			}
		}
		http.Error(w, `{"error":"no such store"}`, http.StatusNotFound)
	})
	r.Post("/vector_stores/{storeID}/files", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			FileID string `json:"file_id"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAttach {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if f.attached[body.FileID] {
			http.Error(w, `{"error":"file is already attached to this vector store"}`, http.StatusBadRequest)
			return
		}
		f.attached[body.FileID] = true
		writeJSON(w, map[string]string{"id": body.FileID, "status": "completed"})
	})
	r.Delete("/vector_stores/{storeID}/files/{fileID}", func(w http.ResponseWriter, req *http.Request) {
		fileID := chi.URLParam(req, "fileID")
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failDetach {
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		delete(f.attached, fileID)
		f.detached = append(f.detached, fileID)
		writeJSON(w, map[string]bool{"deleted": true})
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeFileService) client() *UploadClient {
	return &UploadClient{baseURL: f.srv.URL, apiKey: "test-key", httpClient: f.srv.Client()}
}

func (f *fakeFileService) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func (f *fakeFileService) isAttached(fileID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached[fileID]
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
