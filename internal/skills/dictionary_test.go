package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDictionary_Lookup(t *testing.T) {
	d := DefaultDictionary()

	tests := []struct {
		name     string
		category string
		found    bool
	}{
		{"python", CategoryProgramming, true},
		{"Python", CategoryProgramming, true},
		{"  SQL ", CategoryDatabase, true},
		{"machine learning", CategoryData, true},
		{"basket weaving", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := d.Lookup(tt.name)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestDictionary_AddTracksMaxWords(t *testing.T) {
	d := NewDictionary(map[string]string{"go": CategoryProgramming})
	assert.Equal(t, 1, d.MaxWords())

	d.Add("Google Cloud Platform", CategoryCloud)
	assert.Equal(t, 3, d.MaxWords())

	category, ok := d.Lookup("google cloud platform")
	assert.True(t, ok)
	assert.Equal(t, CategoryCloud, category)
}

func TestDictionary_AddIgnoresBlank(t *testing.T) {
	d := NewDictionary(nil)
	d.Add("   ", CategoryTools)
	assert.Equal(t, 0, d.Len())
}

func TestDictionary_NamesSorted(t *testing.T) {
	d := NewDictionary(map[string]string{"sql": CategoryDatabase, "go": CategoryProgramming, "aws": CategoryCloud})
	assert.Equal(t, []string{"aws", "go", "sql"}, d.Names())
}
