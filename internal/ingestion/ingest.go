package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is an ingested document ready for entity extraction.
type Document struct {
	Source    string
	MediaType string
	Hash      string
	Text      string
	Lines     []string
	Sections  Sections
}

// Ingest extracts, cleans and segments raw document content.
func Ingest(content []byte, mediaType, source string) (*Document, error) {
	text, err := ExtractText(content, mediaType)
	if err != nil {
		return nil, err
	}
	lines := SplitLines(text)
	sum := sha256.Sum256(content)

	return &Document{
		Source:    source,
		MediaType: mediaType,
		Hash:      hex.EncodeToString(sum[:]),
		Text:      text,
		Lines:     lines,
		Sections:  Segment(lines),
	}, nil
}

// IngestFromFile reads a document from disk and ingests it. The media type is
// inferred from the file extension.
func IngestFromFile(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return Ingest(content, MediaTypeForPath(path), path)
}

// MediaTypeForPath maps a file extension to a supported media type. Unknown
// extensions return an empty string so the type is sniffed from content.
func MediaTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return MediaTypePlain
	case ".md", ".markdown":
		return MediaTypeMarkdown
	case ".html", ".htm":
		return MediaTypeHTML
	default:
		return ""
	}
}
