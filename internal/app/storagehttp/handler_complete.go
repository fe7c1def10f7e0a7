package storagehttp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/httperrors"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// completeUpload сверяет ETag частей с тем, что узел принял, и склеивает их по PartNumber.
// Повтор complete после потерянного ответа получает тот же ответ из записи о сборке.
func (a *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	req, err := newUploadRequest(a.uploadsDir(), chi.URLParam(r, "uploadID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var in storageproto.CompleteRequest
	if err = json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	um, err := readMeta(req.meta)
	if errors.Is(err, fs.ErrNotExist) {
		a.replayCompletion(w, req.uploadID, in.Key)
		return
	}
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if in.Key != um.Key {
		httperrors.Write(w, fmt.Errorf("%w: key does not match upload %s", models.ErrInvalidKey, req.uploadID))
		return
	}

	receipts := make([]models.PartReceipt, len(in.Parts))
	for i, p := range in.Parts {
		receipts[i] = models.PartReceipt{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	parts, err := models.ValidateReceipts(receipts, um.TotalParts)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	for _, p := range parts {
		stored, ok := um.Parts[p.PartNumber]
		if !ok {
			httperrors.Write(w, fmt.Errorf("%w: part %d was never received", models.ErrReceiptsIncomplete, p.PartNumber))
			return
		}
		if stored.Sha256 != p.ETag {
			httperrors.Write(w, fmt.Errorf("%w: part %d", models.ErrETagMismatch, p.PartNumber))
			return
		}
	}

	dst, err := objectPath(a.objectsDir(), um.Key)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	size, err := assemble(dst, req, parts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := storageproto.CompleteResponse{
		Key:  um.Key,
		Size: size,
		ETag: compositeETag(parts),
	}

	// Без записи о сборке каталог загрузки остаётся: повтор соберёт объект заново, а GC уберёт хвосты.
	if err = a.saveCompletion(req.uploadID, out); err != nil {
		a.logger.Warn("save completion record", "upload_id", req.uploadID, "err", err)
	} else if err = os.RemoveAll(req.dir); err != nil {
		a.logger.Warn("remove upload dir", "upload_id", req.uploadID, "err", err)
	}

	a.logger.Info("object assembled", "upload_id", req.uploadID, "key", um.Key, "size", size, "parts", len(parts))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// replayCompletion отвечает на complete уже собранной загрузки.
func (a *Server) replayCompletion(w http.ResponseWriter, uploadID, key string) {
	out, err := readCompletion(a.completionPath(uploadID))
	if errors.Is(err, fs.ErrNotExist) {
		httperrors.Write(w, fmt.Errorf("%w: %s", models.ErrNotFound, uploadID))
		return
	}
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	if out.Key != key {
		httperrors.Write(w, fmt.Errorf("%w: key does not match upload %s", models.ErrInvalidKey, uploadID))
		return
	}

	a.logger.Info("complete replayed", "upload_id", uploadID, "key", key)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// assemble склеивает части во временный файл рядом с объектом и переименовывает его.
func assemble(dst string, req *uploadRequest, parts []models.PartReceipt) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	tmp := dst + ".tmp-" + req.uploadID
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, p := range parts {
		n, err := appendPart(out, filepath.Join(req.dir, fmt.Sprintf(partFilenameFormat, p.PartNumber)))
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return 0, fmt.Errorf("append part %d: %w", p.PartNumber, err)
		}
		total += n
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err = os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}

	return total, nil
}

func appendPart(out io.Writer, partPath string) (int64, error) {
	f, err := os.Open(partPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(out, f)
}

// compositeETag считается по ETag частей в порядке сборки, с суффиксом числа частей.
func compositeETag(parts []models.PartReceipt) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p.ETag))
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(h.Sum(nil)), len(parts))
}

// objectPath переводит ключ объекта в путь внутри root, не выпуская его за пределы каталога.
func objectPath(root, key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidKey, key)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
