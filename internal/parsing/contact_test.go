package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContact(t *testing.T) {
	text := `Jane Doe
jane.doe@example.com | (555) 123-4567
linkedin.com/in/janedoe/ | https://github.com/janedoe
other@example.org`

	contact := ExtractContact(text)

	assert.Equal(t, "jane.doe@example.com", contact.Email)
	assert.Equal(t, "(555) 123-4567", contact.Phone)
	assert.Equal(t, "https://linkedin.com/in/janedoe", contact.LinkedIn)
	assert.Equal(t, "https://github.com/janedoe", contact.GitHub)
	assert.False(t, contact.IsEmpty())
}

func TestExtractContact_PhoneFormats(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"call 555-123-4567", "555-123-4567"},
		{"+1 555.123.4567", "+1 555.123.4567"},
		{"5551234567", "5551234567"},
		{"worked 2019 - 2021", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractContact(tt.input).Phone)
		})
	}
}

func TestExtractContact_NothingFound(t *testing.T) {
	contact := ExtractContact("Experienced engineer")
	assert.True(t, contact.IsEmpty())
}
