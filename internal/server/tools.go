package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// stageInputProperties describes the stage input descriptor shared by every tool.
func stageInputProperties() map[string]interface{} {
	return map[string]interface{}{
		"data_dir": map[string]interface{}{
			"type":        "string",
			"description": "Directory holding the source PNG images, the input metadata table (*.csv) and its schema (*.schema.md)",
		},
		"tools_dir": map[string]interface{}{
			"type":        "string",
			"description": "Directory with auxiliary tools. Accepted for compatibility and unused.",
		},
		"script_config": map[string]interface{}{
			"type":        "string",
			"description": "Path of the JSON stage config",
		},
		"result_dir": map[string]interface{}{
			"type":        "string",
			"description": "Directory receiving generated images and the AP_Metadata outputs",
		},
	}
}

func withSeed(props map[string]interface{}) map[string]interface{} {
	props["seed"] = map[string]interface{}{
		"type":        "integer",
		"description": "Optional random seed. Overrides the Seed config key.",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	required := []string{"data_dir", "script_config", "result_dir"}

	aggregateProps := stageInputProperties()
	aggregateProps["rows"] = map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type":                 "object",
			"additionalProperties": map[string]interface{}{"type": "string"},
		},
		"description": "Pre-populated rows to write. Omit to write a header-only table.",
	}

	return []Tool{
		{
			Name:        "dataset_prepare",
			Description: "Sample source images, composite each onto random solid backgrounds, propagate their metadata rows with train/validation/test labels, and write the output table and extended schema under result_dir/AP_Metadata.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withSeed(stageInputProperties()),
				"required":   required,
			},
		},
		{
			Name:        "dataset_aggregate",
			Description: "Write the given rows as the output table over the input table's columns, copying the input schema unchanged.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": aggregateProps,
				"required":   required,
			},
		},
		{
			Name:        "dataset_sample",
			Description: "Dry run of dataset_prepare: resolve the input table, schema and run id, and return the sampled image paths without writing anything.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": withSeed(stageInputProperties()),
				"required":   required,
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
