package storagehttp

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/httperrors"
)

var uploadIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// uploadRequest содержит пути до каталога загрузки и её meta.json.
type uploadRequest struct {
	uploadID string
	dir      string
	meta     string
}

// partRequest дополняет uploadRequest номером части и путём до её файла.
type partRequest struct {
	uploadRequest
	number int
	part   string
}

// requireUpload валидирует uploadID и убеждается, что загрузка заведена на узле.
func (a *Server) requireUpload(w http.ResponseWriter, r *http.Request) (*uploadRequest, *uploadMeta, bool) {
	req, err := newUploadRequest(a.uploadsDir(), chi.URLParam(r, "uploadID"))
	if err != nil {
		http.NotFound(w, r)
		return nil, nil, false
	}

	um, err := readMeta(req.meta)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", models.ErrNotFound, req.uploadID)
		}
		httperrors.Write(w, err)
		return nil, nil, false
	}

	return req, um, true
}

// requirePartRequest валидирует path-параметры части и сверяет номер с числом частей загрузки.
func (a *Server) requirePartRequest(w http.ResponseWriter, r *http.Request) (*partRequest, *uploadMeta, bool) {
	up, um, ok := a.requireUpload(w, r)
	if !ok {
		return nil, nil, false
	}

	// Номер части приходит в десятичном виде и нумеруется с 1.
	number, err := strconv.Atoi(chi.URLParam(r, "partNumber"))
	if err != nil || number < 1 || number > um.TotalParts {
		http.NotFound(w, r)
		return nil, nil, false
	}

	return &partRequest{
		uploadRequest: *up,
		number:        number,
		part:          filepath.Join(up.dir, fmt.Sprintf(partFilenameFormat, number)),
	}, um, true
}

func newUploadRequest(root, uploadID string) (*uploadRequest, error) {
	if !uploadIDPattern.MatchString(uploadID) || uploadID == "." || uploadID == ".." {
		return nil, fmt.Errorf("invalid upload id %q", uploadID)
	}

	dir := filepath.Join(root, uploadID)
	return &uploadRequest{
		uploadID: uploadID,
		dir:      dir,
		meta:     filepath.Join(dir, metaFileName),
	}, nil
}
