package models

import "errors"

var (
	ErrNotFound     = errors.New("upload not found")
	ErrNoStorage    = errors.New("no storage ready")
	ErrUnauthorized = errors.New("unauthorized")

	// Ошибки фаз оркестратора; каждая терминальная ошибка Upload оборачивает одну из них.
	ErrInitiate = errors.New("upload initiation failed")
	ErrTransfer = errors.New("part transfer failed")
	ErrFinalize = errors.New("upload finalization failed")

	ErrInvalidPartCount   = errors.New("invalid part count")
	ErrInvalidPartSize    = errors.New("part size must be > 0")
	ErrReceiptsIncomplete = errors.New("receipts incomplete")
	ErrMissingETag        = errors.New("missing or malformed etag")
	ErrSessionClosed      = errors.New("upload session is not pending")
	ErrBadSignature       = errors.New("bad or expired signature")
	ErrETagMismatch       = errors.New("etag mismatch")
	ErrInvalidKey         = errors.New("invalid storage key")
)
