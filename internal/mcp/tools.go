package mcp

// ToolDefinitions returns the MCP tools exposed over the cache server.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: "cache_ingest",
			Description: "Offer a text fragment to the cache. Exact duplicates are rejected, near duplicates " +
				"are merged into the existing entry and low-quality fragments are dropped.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"content":   {Type: "string", Description: "Fragment text"},
					"sourceUrl": {Type: "string", Description: "Where the fragment came from"},
				},
				Required: []string{"content"},
			},
		},
		{
			Name:        "cache_get",
			Description: "Fetch one entry by id. Counts as an access and reinforces the entry.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id": {Type: "string", Description: "Entry id"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "cache_query_tags",
			Description: "Find entries whose category tags overlap the given tags.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"tags": {Type: "array", Description: "Category tags to match",
						Items: &Items{Type: "string"}},
					"minOverlap": {Type: "number", Description: "Minimum overlap ratio 0.0-1.0 (default 0.5)",
						Default: 0.5},
				},
				Required: []string{"tags"},
			},
		},
		{
			Name:        "cache_query_text",
			Description: "Find the entries most similar to a piece of text.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text": {Type: "string", Description: "Query text"},
					"topK": {Type: "number", Description: "Maximum results to return (default 5)",
						Default: 5},
				},
				Required: []string{"text"},
			},
		},
		{
			Name:        "cache_sample",
			Description: "Draw random entries, favouring those with a higher cognitive weight.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"count": {Type: "number", Description: "Number of draws (default 3)",
						Default: 3},
				},
			},
		},
		{
			Name:        "cache_stats",
			Description: "Aggregate cache statistics: size, average weight, diversity and emergent clusters.",
			InputSchema: InputSchema{Type: "object"},
		},
	}
}
