package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRegistry(t *testing.T) {
	expected := []string{TypeDocumentProcessing, TypeMatchGeneration, TypeNotification, TypeAnalytics}

	for _, name := range expected {
		def, ok := TaskRegistry[name]
		require.True(t, ok, "task type %s should be in registry", name)
		assert.Equal(t, name, def.Name)
		assert.NotEmpty(t, def.Category)
	}
	assert.Len(t, TaskRegistry, len(expected))
}

func TestGraph_Validates(t *testing.T) {
	g := Graph()
	require.NoError(t, g.Validate())

	assert.True(t, g.Allowed(TypeDocumentProcessing, TypeMatchGeneration))
	assert.True(t, g.Allowed(TypeMatchGeneration, TypeNotification))
	assert.False(t, g.Allowed(TypeNotification, TypeDocumentProcessing))
	assert.False(t, g.Allowed(TypeAnalytics, TypeNotification))
}
