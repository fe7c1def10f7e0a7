package resthttp

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/sir_venger/chunkload/internal/models"
	"github.com/sir_venger/chunkload/internal/usecase/sessionsvc"
	"github.com/sir_venger/chunkload/pkg/httperrors"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// initiate выделяет сессию и по URL на каждую часть.
func (s *Server) initiate(w http.ResponseWriter, r *http.Request) {
	var in storageproto.InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	up, err := s.Sessions.Initiate(r.Context(), sessionsvc.InitiateInput{
		PartCount:   in.PartCount,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
	})
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storageproto.InitiateResponse{
		UploadID: up.ID,
		Key:      up.Key,
		URLs:     up.URLs,
	})
}

// complete собирает объект из частей по квитанциям клиента.
func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	var in storageproto.CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	sess, err := s.Sessions.Complete(r.Context(), sessionsvc.CompleteInput{
		UploadID: in.UploadID,
		Key:      in.Key,
		Parts: lo.Map(in.Parts, func(p storageproto.CompletedPart, _ int) models.PartReceipt {
			return models.PartReceipt{PartNumber: p.PartNumber, ETag: p.ETag}
		}),
	})
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storageproto.CompleteResponse{Key: sess.Key, Size: sess.Size})
}

func (s *Server) abort(w http.ResponseWriter, r *http.Request) {
	var in storageproto.AbortRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.Sessions.Abort(r.Context(), in.UploadID, in.Key); err != nil {
		httperrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getObject стримит собранный объект клиенту.
func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	rc, sess, err := s.Sessions.Open(r.Context(), key)
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	defer rc.Close()

	if sess.ContentType != "" {
		w.Header().Set("Content-Type", sess.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if sess.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(sess.Size, 10))
	}
	if sess.FileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": sess.FileName}))
	}

	if _, err = io.Copy(w, rc); err != nil {
		s.Logger.Warn("object stream interrupted", "key", key, "err", err)
	}
}
