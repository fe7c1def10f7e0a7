package uploadsvc

import (
	"fmt"

	"github.com/sir_venger/chunkload/internal/models"
)

// DefaultMaxParts совпадает с лимитом S3 на число частей.
const DefaultMaxParts = 10000

// Split режет файл размером size на части по partSize байт, нумеруя их с 1.
// Последняя часть может быть короче; хвостовая пустая часть не создаётся,
// кроме случая пустого файла: тогда возвращается одна часть нулевой длины.
// Если частей получается больше maxParts, память под них не выделяется.
func Split(size, partSize int64, maxParts int) ([]models.FilePart, error) {
	if partSize <= 0 {
		return nil, models.ErrInvalidPartSize
	}
	if size < 0 {
		return nil, fmt.Errorf("file size must be >= 0, got %d", size)
	}
	if maxParts <= 0 {
		maxParts = DefaultMaxParts
	}
	if size == 0 {
		return []models.FilePart{{Number: 1}}, nil
	}

	total := PartCount(size, partSize)
	if total > int64(maxParts) {
		return nil, fmt.Errorf("%w: %d parts of %d bytes exceed limit %d", models.ErrInvalidPartCount, total, partSize, maxParts)
	}

	parts := make([]models.FilePart, total)
	for i := range parts {
		offset := int64(i) * partSize
		parts[i] = models.FilePart{
			Number: i + 1,
			Offset: offset,
			Size:   min(partSize, size-offset),
		}
	}

	return parts, nil
}

// PartCount возвращает ceil(size/partSize), но не меньше 1. Не переполняется
// при size около math.MaxInt64.
func PartCount(size, partSize int64) int64 {
	if size <= 0 || partSize <= 0 {
		return 1
	}
	n := size / partSize
	if size%partSize != 0 {
		n++
	}
	return n
}
