// Package storageproto описывает протокол HTTP-взаимодействия загрузчика, бэкенда и узлов хранения.
package storageproto

// Пути и заголовки протокола узлов хранения.
const (
	UploadPathFormat   = "%s/uploads/%s"
	PartPathFormat     = "%s/uploads/%s/parts/%d"
	CompletePathFormat = "%s/uploads/%s/complete"
	ObjectPathFormat   = "%s/objects/%s"

	HeaderChecksum = "X-Checksum-Sha256"
	HeaderPartSize = "X-Size"
	HeaderETag     = "ETag"

	QueryExpires   = "X-Expires"
	QuerySignature = "X-Signature"
)

// Пути API бэкенда, которым пользуется загрузчик.
const (
	APIInitiatePath = "/uploads/multipart/initiate"
	APICompletePath = "/uploads/multipart/complete"
	APIAbortPath    = "/uploads/multipart/abort"
	APIObjectPrefix = "/objects/"
)

// InitiateRequest просит бэкенд выделить PartCount адресов под части.
type InitiateRequest struct {
	PartCount   int    `json:"part_count"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// InitiateResponse: URLs[i] принимает часть i+1.
type InitiateResponse struct {
	UploadID string   `json:"upload_id"`
	Key      string   `json:"key"`
	URLs     []string `json:"urls"`
}

type CompletedPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// CompleteRequest сообщает, какие части куда легли; порядок сборки задаёт PartNumber.
type CompleteRequest struct {
	UploadID string          `json:"upload_id"`
	Key      string          `json:"key"`
	Parts    []CompletedPart `json:"parts"`
}

type CompleteResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size,omitempty"`
	ETag string `json:"etag,omitempty"`
}

type AbortRequest struct {
	UploadID string `json:"upload_id"`
	Key      string `json:"key"`
}

// CreateUploadRequest регистрирует загрузку на узле хранения до выдачи подписанных URL.
type CreateUploadRequest struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type,omitempty"`
	TotalParts  int    `json:"total_parts"`
}
