package storagehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// partMeta описывает одну часть, сохранённую storage-сервером.
type partMeta struct {
	Number int    `json:"number"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
}

// uploadMeta хранится на диске рядом с частями и описывает загрузку целиком.
type uploadMeta struct {
	UploadID    string           `json:"upload_id"`
	Key         string           `json:"key"`
	ContentType string           `json:"content_type,omitempty"`
	TotalParts  int              `json:"total_parts"`
	CreatedAt   time.Time        `json:"created_at"`
	Parts       map[int]partMeta `json:"parts"`
}

// commitPart ставит проверенный временный файл на место части и записывает её в meta.json.
// Оба шага идут под одной блокировкой, так что при параллельных PUT одной части
// файл и запись в meta.json всегда от одного и того же запроса.
func (a *Server) commitPart(metaPath, tmp, partPath string, part partMeta) error {
	a.metaMu.Lock()
	defer a.metaMu.Unlock()

	um, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: upload removed while part was written", models.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err = os.Rename(tmp, partPath); err != nil {
		return err
	}
	if um.Parts == nil {
		um.Parts = map[int]partMeta{}
	}
	um.Parts[part.Number] = part

	return writeMeta(metaPath, um)
}

// writeMeta атомарно заменяет meta.json через временный файл.
func writeMeta(path string, um *uploadMeta) error {
	return writeJSONFile(path, um)
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// readMeta читает метаданные загрузки с диска.
func readMeta(path string) (*uploadMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var um uploadMeta
	if err := json.Unmarshal(b, &um); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &um, nil
}

func (a *Server) completionPath(uploadID string) string {
	return filepath.Join(a.completedDir(), uploadID+".json")
}

// saveCompletion запоминает ответ complete, пока GC не сочтёт запись устаревшей.
func (a *Server) saveCompletion(uploadID string, out storageproto.CompleteResponse) error {
	if err := os.MkdirAll(a.completedDir(), 0o755); err != nil {
		return err
	}
	return writeJSONFile(a.completionPath(uploadID), out)
}

func readCompletion(path string) (storageproto.CompleteResponse, error) {
	var out storageproto.CompleteResponse
	b, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err = json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}
