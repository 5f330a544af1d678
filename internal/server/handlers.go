package server

import (
	"encoding/json"
	"fmt"

	"github.com/ironsheep/dataset-augment/internal/config"
	"github.com/ironsheep/dataset-augment/internal/metadata"
	"github.com/ironsheep/dataset-augment/internal/pipeline"
	"github.com/ironsheep/dataset-augment/internal/sampling"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_prepare").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "dataset_prepare":
		return s.handleDatasetPrepare(args)
	case "dataset_aggregate":
		return s.handleDatasetAggregate(args)
	case "dataset_sample":
		return s.handleDatasetSample(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type stageArgs struct {
	config.StageInput
	Seed *uint64 `json:"seed"`
}

func (a stageArgs) options() pipeline.Options {
	var opts pipeline.Options
	if a.Seed != nil {
		opts.Rand = sampling.NewRand(a.Seed)
	}
	return opts
}

func (s *Server) handleDatasetPrepare(args json.RawMessage) (interface{}, error) {
	var a stageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return pipeline.Prepare(s.ctx, a.StageInput, a.options())
}

type aggregateArgs struct {
	config.StageInput
	Rows []metadata.Row `json:"rows"`
}

func (s *Server) handleDatasetAggregate(args json.RawMessage) (interface{}, error) {
	var a aggregateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return pipeline.Aggregate(s.ctx, a.StageInput, a.Rows)
}

func (s *Server) handleDatasetSample(args json.RawMessage) (interface{}, error) {
	var a stageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return pipeline.Sample(a.StageInput, a.options())
}
