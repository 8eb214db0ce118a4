package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_Plain(t *testing.T) {
	text, err := ExtractText([]byte("Jane   Doe\r\n\r\n\r\n\r\nEngineer"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nEngineer", text)
}

func TestExtractText_HTML(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
		<h1>Jane Doe</h1>
		<script>alert(1)</script>
		<h2>Skills</h2>
		<p>Go, Kubernetes</p>
	</body></html>`

	text, err := ExtractText([]byte(html), MediaTypeHTML)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSkills\nGo, Kubernetes", text)
	assert.NotContains(t, text, "alert")
}

func TestExtractText_SniffsWhenMediaTypeEmpty(t *testing.T) {
	text, err := ExtractText([]byte("<!DOCTYPE html><html><body><p>Hello</p></body></html>"), "")
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	text, err = ExtractText([]byte("plain words"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain words", text)
}

func TestExtractText_Unsupported(t *testing.T) {
	_, err := ExtractText([]byte("%PDF-1.4"), "application/pdf")
	require.Error(t, err)

	var unsupported *UnsupportedMediaTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "application/pdf", unsupported.MediaType)
}

func TestExtractText_InvalidUTF8(t *testing.T) {
	text, err := ExtractText([]byte{'a', 0xff, 'b'}, MediaTypePlain)
	require.NoError(t, err)
	assert.Equal(t, "a b", text)
}
