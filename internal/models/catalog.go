package models

// ToolDefinition describes an MCP tool and the REST endpoint backing it,
// served by GET /api/mcp/tools so HTTP clients can discover the tool
// surface without speaking MCP.
type ToolDefinition struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Params      []ParamDefinition `json:"params,omitempty"`
}

// ParamDefinition describes a single tool parameter and where it travels
// on the REST mapping (path or query).
type ParamDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	In          string `json:"in"`
	Required    bool   `json:"required,omitempty"`
}
