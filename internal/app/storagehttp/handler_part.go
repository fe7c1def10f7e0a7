package storagehttp

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sir_venger/chunkload/pkg/httperrors"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// insertPart принимает PUT одной части по подписанному URL и отвечает её ETag.
func (a *Server) insertPart(w http.ResponseWriter, r *http.Request) {
	if a.secret != "" {
		err := storageproto.VerifyPartSignature(a.secret, r.Method, r.URL.EscapedPath(), r.URL.Query(), a.now())
		if err != nil {
			httperrors.Write(w, err)
			return
		}
	}

	req, _, ok := a.requirePartRequest(w, r)
	if !ok {
		return
	}

	tmp, n, sum, err := stagePartFile(filepath.Dir(req.part), r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if r.ContentLength >= 0 && n != r.ContentLength {
		_ = os.Remove(tmp)
		http.Error(w, "size mismatch", http.StatusBadRequest)
		return
	}
	if exp := r.Header.Get(storageproto.HeaderChecksum); exp != "" && exp != sum {
		_ = os.Remove(tmp)
		http.Error(w, "sha256 mismatch", http.StatusConflict)
		return
	}

	if err = a.commitPart(req.meta, tmp, req.part, partMeta{Number: req.number, Size: n, Sha256: sum}); err != nil {
		_ = os.Remove(tmp)
		httperrors.Write(w, err)
		return
	}

	a.logger.Debug("part stored", "upload_id", req.uploadID, "part", req.number, "size", n)
	w.Header().Set(storageproto.HeaderETag, storageproto.QuoteETag(sum))
	w.WriteHeader(http.StatusOK)
}

// stagePartFile пишет тело в собственный временный файл рядом с частью. Параллельные
// PUT одной части не делят файл, а на место встаёт только проверенная копия.
func stagePartFile(dir string, body io.Reader) (string, int64, string, error) {
	f, err := os.CreateTemp(dir, "part-*.tmp")
	if err != nil {
		return "", 0, "", err
	}
	tmp := f.Name()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	return tmp, n, hex.EncodeToString(h.Sum(nil)), nil
}

// fetchPart обслуживает GET-запросы, возвращая содержимое части.
func (a *Server) fetchPart(w http.ResponseWriter, r *http.Request) {
	req, _, ok := a.requirePartRequest(w, r)
	if !ok {
		return
	}

	f, err := os.Open(req.part)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	size := info.Size()
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set(storageproto.HeaderPartSize, strconv.FormatInt(size, 10))
	w.Header().Set("Content-Type", "application/octet-stream")

	_, _ = io.Copy(w, f)
}

// inspectPart отвечает на HEAD-запросы метаданными по части.
func (a *Server) inspectPart(w http.ResponseWriter, r *http.Request) {
	req, um, ok := a.requirePartRequest(w, r)
	if !ok {
		return
	}

	part, ok := um.Parts[req.number]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set(storageproto.HeaderPartSize, strconv.FormatInt(part.Size, 10))
	w.Header().Set(storageproto.HeaderChecksum, part.Sha256)
	w.Header().Set(storageproto.HeaderETag, storageproto.QuoteETag(part.Sha256))
	w.WriteHeader(http.StatusOK)
}
