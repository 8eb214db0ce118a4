package ingestion

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-matcher/internal/fetch"
)

// Media types accepted by ExtractText.
const (
	MediaTypePlain    = "text/plain"
	MediaTypeMarkdown = "text/markdown"
	MediaTypeHTML     = "text/html"
)

// UnsupportedMediaTypeError is returned for documents that cannot be turned into text.
type UnsupportedMediaTypeError struct {
	MediaType string
}

func (e *UnsupportedMediaTypeError) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.MediaType)
}

// ExtractText converts a raw document into cleaned plain text. When mediaType is empty
// it is sniffed from the content.
func ExtractText(content []byte, mediaType string) (string, error) {
	mt := normalizeMediaType(mediaType)
	if mt == "" {
		mt = normalizeMediaType(http.DetectContentType(content))
	}

	switch mt {
	case MediaTypeHTML:
		text, err := fetch.ExtractMainText(string(content))
		if err != nil {
			return "", err
		}
		return CleanText(text), nil
	case MediaTypePlain, MediaTypeMarkdown:
		if !utf8.Valid(content) {
			content = bytes.ToValidUTF8(content, []byte(" "))
		}
		return CleanText(string(content)), nil
	default:
		return "", &UnsupportedMediaTypeError{MediaType: mt}
	}
}

func normalizeMediaType(raw string) string {
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mt = strings.TrimSpace(strings.ToLower(raw))
	}
	switch mt {
	case "text/x-markdown":
		return MediaTypeMarkdown
	case "application/xhtml+xml":
		return MediaTypeHTML
	}
	return mt
}
