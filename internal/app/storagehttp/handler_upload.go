package storagehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/httperrors"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// createUpload заводит каталог под загрузку. Повтор с теми же параметрами не ошибка.
func (a *Server) createUpload(w http.ResponseWriter, r *http.Request) {
	req, err := newUploadRequest(a.uploadsDir(), chi.URLParam(r, "uploadID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var in storageproto.CreateUploadRequest
	if err = json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if in.TotalParts < 1 {
		httperrors.Write(w, fmt.Errorf("%w: %d", models.ErrInvalidPartCount, in.TotalParts))
		return
	}
	if _, err = objectPath(a.objectsDir(), in.Key); err != nil {
		httperrors.Write(w, err)
		return
	}

	if existing, err := readMeta(req.meta); err == nil {
		if existing.Key != in.Key || existing.TotalParts != in.TotalParts {
			http.Error(w, "upload exists with different parameters", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err = os.MkdirAll(req.dir, 0o755); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	err = writeMeta(req.meta, &uploadMeta{
		UploadID:    req.uploadID,
		Key:         in.Key,
		ContentType: in.ContentType,
		TotalParts:  in.TotalParts,
		CreatedAt:   a.now().UTC(),
		Parts:       map[int]partMeta{},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.logger.Info("upload created", "upload_id", req.uploadID, "key", in.Key, "parts", in.TotalParts)
	w.WriteHeader(http.StatusCreated)
}

// abortUpload удаляет загрузку вместе с уже принятыми частями.
func (a *Server) abortUpload(w http.ResponseWriter, r *http.Request) {
	req, err := newUploadRequest(a.uploadsDir(), chi.URLParam(r, "uploadID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if _, err = os.Stat(req.dir); errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}

	if err = os.RemoveAll(req.dir); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.logger.Info("upload aborted", "upload_id", req.uploadID)
	w.WriteHeader(http.StatusNoContent)
}
