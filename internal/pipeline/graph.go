// Package pipeline wires the document-intake and matching stages into task
// handlers and serves match queries.
package pipeline

import "github.com/jonathan/resume-matcher/internal/queue"

// Task types
const (
	TypeDocumentProcessing = "document-processing"
	TypeMatchGeneration    = "match-generation"
	TypeNotification       = "notification"
	TypeAnalytics          = "analytics"
)

// Task categories
const (
	CategoryIngestion   = "ingestion"
	CategoryMatching    = "matching"
	CategoryDelivery    = "delivery"
	CategoryMaintenance = "maintenance"
)

// TaskRegistry declares every task type and the continuations it may enqueue on success.
var TaskRegistry = map[string]queue.TypeDefinition{
	TypeDocumentProcessing: {
		Name:          TypeDocumentProcessing,
		Category:      CategoryIngestion,
		Continuations: []string{TypeMatchGeneration},
	},
	TypeMatchGeneration: {
		Name:          TypeMatchGeneration,
		Category:      CategoryMatching,
		Continuations: []string{TypeNotification},
	},
	TypeNotification: {
		Name:     TypeNotification,
		Category: CategoryDelivery,
	},
	TypeAnalytics: {
		Name:     TypeAnalytics,
		Category: CategoryMaintenance,
	},
}

// Graph builds the task-type graph from TaskRegistry.
func Graph() *queue.Graph {
	g := queue.NewGraph()
	for _, def := range TaskRegistry {
		g.Add(def)
	}
	return g
}
