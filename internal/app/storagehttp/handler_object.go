package storagehttp

import (
	"net/http"
	"net/url"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/sir_venger/chunkload/pkg/httperrors"
)

// fetchObject отдаёт собранный объект, поддерживая Range-запросы.
func (a *Server) fetchObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		key = unescaped
	}

	p, err := objectPath(a.objectsDir(), key)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	f, err := os.Open(p)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if mt, err := mimetype.DetectFile(p); err == nil {
		w.Header().Set("Content-Type", mt.String())
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
