package storageproto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sir_venger/chunkload/internal/models"
)

// SignPartURL собирает pre-signed URL для PUT одной части на узел хранения.
func SignPartURL(baseURL, secret, uploadID string, partNumber int, expires time.Time) (string, error) {
	raw := fmt.Sprintf(PartPathFormat, baseURL, url.PathEscape(uploadID), partNumber)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse part url: %w", err)
	}

	exp := strconv.FormatInt(expires.Unix(), 10)
	q := u.Query()
	q.Set(QueryExpires, exp)
	q.Set(QuerySignature, signature(secret, http.MethodPut, u.EscapedPath(), exp))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// VerifyPartSignature проверяет подпись и срок действия URL, на который пришёл запрос.
func VerifyPartSignature(secret, method, escapedPath string, query url.Values, now time.Time) error {
	exp := query.Get(QueryExpires)
	sig := query.Get(QuerySignature)
	if exp == "" || sig == "" {
		return models.ErrBadSignature
	}

	unix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return models.ErrBadSignature
	}
	if now.Unix() > unix {
		return fmt.Errorf("%w: expired at %s", models.ErrBadSignature, time.Unix(unix, 0).UTC().Format(time.RFC3339))
	}

	want := signature(secret, method, escapedPath, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return models.ErrBadSignature
	}

	return nil
}

func signature(secret, method, path, expires string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + "\n" + path + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
