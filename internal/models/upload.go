package models

import (
	"fmt"
	"io"
	"sort"
)

// FilePart описывает диапазон байт [Offset, Offset+Size) исходного файла. Номера частей начинаются с 1.
type FilePart struct {
	Number int   `json:"part_number"`
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

// End возвращает конец диапазона (не включительно).
func (p FilePart) End() int64 {
	return p.Offset + p.Size
}

// Section отдаёт ленивое окно на исходник, байты читаются только при передаче.
func (p FilePart) Section(src io.ReaderAt) *io.SectionReader {
	return io.NewSectionReader(src, p.Offset, p.Size)
}

// UploadSession выдаётся бэкендом один раз на попытку загрузки и дальше не меняется.
// URLs[i] предназначен для части с номером i+1.
type UploadSession struct {
	ID        string   `json:"upload_id"`
	Key       string   `json:"key"`
	URLs      []string `json:"urls"`
	PartCount int      `json:"part_count"`
}

// Destination возвращает адрес, выданный под часть partNumber.
func (s UploadSession) Destination(partNumber int) (string, error) {
	if partNumber < 1 || partNumber > len(s.URLs) {
		return "", fmt.Errorf("part %d out of range 1..%d", partNumber, len(s.URLs))
	}
	return s.URLs[partNumber-1], nil
}

// PartReceipt подтверждает, что часть PartNumber принята и получила ETag.
type PartReceipt struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// ValidateReceipts проверяет, что квитанций ровно partCount, номера 1..partCount без
// дублей и пропусков, и возвращает копию, отсортированную по номеру части.
func ValidateReceipts(receipts []PartReceipt, partCount int) ([]PartReceipt, error) {
	if partCount < 1 {
		return nil, ErrInvalidPartCount
	}
	if len(receipts) != partCount {
		return nil, fmt.Errorf("%w: got %d receipts for %d parts", ErrReceiptsIncomplete, len(receipts), partCount)
	}

	out := append([]PartReceipt(nil), receipts...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].PartNumber < out[j].PartNumber
	})

	for i, r := range out {
		if r.PartNumber != i+1 {
			return nil, fmt.Errorf("%w: missing part %d", ErrReceiptsIncomplete, i+1)
		}
		if r.ETag == "" {
			return nil, fmt.Errorf("%w: part %d", ErrMissingETag, r.PartNumber)
		}
	}

	return out, nil
}

// UploadResult возвращается после успешной загрузки и содержит ключевые метаданные.
type UploadResult struct {
	Key   string
	Size  int64
	Parts int
}
