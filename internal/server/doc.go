// Package server implements the MCP (Model Context Protocol) server that hosts
// the dataset stages for a job orchestrator.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Every tool takes the stage input descriptor (data_dir, tools_dir,
// script_config, result_dir):
//   - dataset_prepare: composite sampled images and write the augmented table
//   - dataset_aggregate: write caller-supplied rows with the input schema
//   - dataset_sample: dry run returning the run id and sampled images
//
// dataset_prepare and dataset_sample accept an optional seed.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New()
//	if err := srv.Run(); err != nil {
//	    klog.Fatal(err)
//	}
package server
