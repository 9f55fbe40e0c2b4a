package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the full-text query to run against indexed document chunks"`
}

// ListDocumentsInput defines the input schema for the list_documents tool
// (no parameters).
type ListDocumentsInput struct{}
