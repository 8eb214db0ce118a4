// Package schemas embeds the JSON Schemas for task payloads.
package schemas

import "embed"

// FS holds every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Files maps task types to their schema file names.
var Files = map[string]string{
	"document-processing": "document_processing.schema.json",
	"match-generation":    "match_generation.schema.json",
	"notification":        "notification.schema.json",
	"analytics":           "analytics.schema.json",
}
