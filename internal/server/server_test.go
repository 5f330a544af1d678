package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/dataset-augment/internal/pipeline"
)

func TestNew(t *testing.T) {
	s := New()
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.ctx == nil {
		t.Fatal("New() did not initialize context")
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != 1 {
		t.Errorf("ID: got %v, want 1", resp.ID)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      "ping-1",
		Method:  "ping",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if resp.ID != "ping-1" {
		t.Errorf("ID: got %v, want ping-1", resp.ID)
	}
}

func TestHandleRequest_ToolsList(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/list",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	tools, ok := result["tools"]
	if !ok {
		t.Fatal("Result should contain 'tools' key")
	}

	toolsList, ok := tools.([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}

	if len(toolsList) != 3 {
		t.Errorf("Expected 3 tools, got %d", len(toolsList))
	}
}

func TestHandleRequest_NotificationsInitialized(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}

	resp := s.handleRequest(req)

	// Notifications don't get responses
	if resp != nil {
		t.Error("notifications/initialized should return nil response")
	}
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "nonexistent/method",
	}

	resp := s.handleRequest(req)

	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error == nil {
		t.Fatal("Expected error for unknown method")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("Error code: got %d, want -32601", resp.Error.Code)
	}
}

func TestHandleInitialize(t *testing.T) {
	s := New()
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      "init-1",
	}

	resp := s.handleInitialize(req)

	if resp.ID != "init-1" {
		t.Errorf("ID: got %v, want init-1", resp.ID)
	}
	if resp.JSONRPC != "2.0" {
		t.Errorf("JSONRPC: got %s, want 2.0", resp.JSONRPC)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}

	serverInfo, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo should be a map")
	}

	if serverInfo["name"] != "dataset-augment" {
		t.Errorf("serverInfo.name: got %v", serverInfo["name"])
	}
	if serverInfo["version"] != Version {
		t.Errorf("serverInfo.version: got %v", serverInfo["version"])
	}
}

func TestServe(t *testing.T) {
	s := New()
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var ids []interface{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp MCPResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response %q: %v", scanner.Text(), err)
		}
		if resp.Error != nil {
			t.Errorf("Unexpected error: %v", resp.Error)
		}
		ids = append(ids, resp.ID)
	}

	// One response per request; notifications and malformed lines get none
	if len(ids) != 2 || ids[0] != float64(1) || ids[1] != float64(2) {
		t.Errorf("response ids: got %v, want [1 2]", ids)
	}
}

// toolResponse is a tools/call response as a client decodes it off the wire.
type toolResponse struct {
	ID     interface{} `json:"id"`
	Result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *MCPError `json:"error"`
}

// serveToolCalls sends one tools/call line per call through Serve and returns
// the decoded responses in order.
func serveToolCalls(t *testing.T, calls ...map[string]interface{}) []toolResponse {
	t.Helper()

	var in bytes.Buffer
	for i, call := range calls {
		line, err := json.Marshal(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      i + 1,
			"method":  "tools/call",
			"params":  call,
		})
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		in.Write(line)
		in.WriteByte('\n')
	}

	var out bytes.Buffer
	if err := New().Serve(&in, &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var responses []toolResponse
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp toolResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to unmarshal response %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	if len(responses) != len(calls) {
		t.Fatalf("responses: got %d, want %d", len(responses), len(calls))
	}
	return responses
}

// stageResult decodes the pipeline.Result carried in a successful response.
func stageResult(t *testing.T, resp toolResponse) pipeline.Result {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v (%v)", resp.Error.Message, resp.Error.Data)
	}
	if len(resp.Result.Content) != 1 || resp.Result.Content[0].Type != "text" {
		t.Fatalf("content: got %+v", resp.Result.Content)
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(resp.Result.Content[0].Text), &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return res
}

func TestServe_StageRoundTrip(t *testing.T) {
	prepareArgs := createTestDataset(t)
	prepareArgs["seed"] = 1234

	aggregateArgs := map[string]interface{}{
		"data_dir":      prepareArgs["data_dir"],
		"script_config": prepareArgs["script_config"],
		"result_dir":    filepath.Join(t.TempDir(), "aggregate"),
		"rows":          []map[string]string{{"name": "face", "label": "smile"}},
	}

	responses := serveToolCalls(t,
		map[string]interface{}{"name": "dataset_prepare", "arguments": prepareArgs},
		map[string]interface{}{"name": "dataset_aggregate", "arguments": aggregateArgs},
	)

	if responses[0].ID != float64(1) || responses[1].ID != float64(2) {
		t.Errorf("response ids: got %v, %v", responses[0].ID, responses[1].ID)
	}

	prepared := stageResult(t, responses[0])
	if prepared.RunID != "run42" {
		t.Errorf("RunID: got %s, want run42", prepared.RunID)
	}
	if prepared.Rows != 6 || prepared.Images != 3 {
		t.Errorf("prepare: got %d rows for %d images, want 6 for 3", prepared.Rows, prepared.Images)
	}
	if len(prepared.Variants) != 6 {
		t.Fatalf("Variants: got %d, want 6", len(prepared.Variants))
	}
	for _, v := range prepared.Variants {
		if len(v.ColorHex) != 7 || v.ColorHex[0] != '#' {
			t.Errorf("ColorHex: got %q", v.ColorHex)
		}
		if _, err := os.Stat(v.Path); err != nil {
			t.Errorf("variant image missing: %v", err)
		}
	}
	if !strings.HasPrefix(prepared.TablePath, prepareArgs["result_dir"].(string)) {
		t.Errorf("TablePath: got %s", prepared.TablePath)
	}

	aggregated := stageResult(t, responses[1])
	if aggregated.Rows != 1 {
		t.Errorf("aggregate Rows: got %d, want 1", aggregated.Rows)
	}
	if len(aggregated.Variants) != 0 {
		t.Errorf("aggregate Variants: got %d, want none", len(aggregated.Variants))
	}
	data, err := os.ReadFile(aggregated.TablePath)
	if err != nil {
		t.Fatalf("failed to read table: %v", err)
	}
	if got := string(data); got != "name,label\nface,smile\n" {
		t.Errorf("aggregate table: got %q", got)
	}
	if _, err := os.Stat(aggregated.SchemaPath); err != nil {
		t.Errorf("aggregate schema missing: %v", err)
	}
}

func TestServe_StageError(t *testing.T) {
	args := createTestDataset(t)
	args["script_config"] = filepath.Join(t.TempDir(), "missing.json")

	responses := serveToolCalls(t, map[string]interface{}{"name": "dataset_prepare", "arguments": args})

	if responses[0].Error == nil {
		t.Fatal("Expected error for missing config")
	}
	if responses[0].Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", responses[0].Error.Code)
	}
}
