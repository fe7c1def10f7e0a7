package models

import "time"

// SessionStatus: состояние multipart-сессии на стороне бэкенда.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionAborted   SessionStatus = "aborted"
)

// Session хранит то, что бэкенд знает об одной загрузке: куда уходят части и как их собрать.
type Session struct {
	ID          string        `json:"upload_id"`
	Key         string        `json:"key"`
	FileName    string        `json:"file_name,omitempty"`
	ContentType string        `json:"content_type,omitempty"`
	Backend     string        `json:"backend"`
	Location    string        `json:"location"`
	PartCount   int           `json:"part_count"`
	Size        int64         `json:"size"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Clone возвращает копию, чтобы не делиться указателями между вызывающими.
func (s Session) Clone() Session {
	out := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
