// Command logserver exposes the pipeline's log directory over HTTP: a JSON
// listing at / and the raw files under /logs/.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	var (
		addr   = flag.String("addr", ":8080", "listen address")
		logDir = flag.String("dir", "logs", "log directory to serve")
	)
	flag.Parse()

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/", listHandler(*logDir))
	r.Handle("/logs/*", http.StripPrefix("/logs/", http.FileServer(http.Dir(*logDir))))

	log.Printf("Serving %s on %s", *logDir, *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}

// listHandler returns the available log files so operators do not have to
// guess filenames.
func listHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var files []string
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, e.Name())
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message":         "Log File Server",
			"description":     "Access log files at /logs/{filename}",
			"available_files": files,
			"example":         "/logs/scraper.log",
		})
	}
}
