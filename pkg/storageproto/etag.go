package storageproto

import (
	"strings"

	"github.com/sir_venger/chunkload/internal/models"
)

const weakPrefix = "W/"

// QuoteETag оборачивает значение в кавычки, как того требует RFC 9110.
func QuoteETag(v string) string {
	return `"` + v + `"`
}

// UnquoteETag снимает кавычки и слабый префикс W/ с заголовка ETag.
// Пустое значение или кавычки внутри считаются битым токеном.
func UnquoteETag(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, weakPrefix)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}

	if v == "" || strings.Contains(v, `"`) {
		return "", models.ErrMissingETag
	}

	return v, nil
}
