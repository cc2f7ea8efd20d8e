// Package mcp serves the program database over the Model Context Protocol
// (JSON-RPC 2.0, one message per line on stdin/stdout).
package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zheng/rdecomp/internal/decomp"
	"github.com/zheng/rdecomp/internal/display"
	"github.com/zheng/rdecomp/internal/log"
	"github.com/zheng/rdecomp/internal/program"
	"github.com/zheng/rdecomp/internal/storage"
)

const defaultLimit = 50

// Server implements the MCP protocol for rdecomp
type Server struct {
	db     *storage.DB
	opts   decomp.Options
	logger log.Logger
	input  io.Reader
	output io.Writer
}

// NewServer creates a new MCP server. Logs must not go to stdout, which
// carries the protocol.
func NewServer(db *storage.DB, opts decomp.Options, logger log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	return &Server{
		db:     db,
		opts:   opts,
		logger: logger,
		input:  os.Stdin,
		output: os.Stdout,
	}
}

// JSON-RPC types
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run serves requests until the input is exhausted
func (s *Server) Run() error {
	scanner := bufio.NewScanner(s.input)
	// Increase buffer size for large messages
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.sendError(nil, -32700, "Parse error")
			continue
		}

		s.handleRequest(&req)
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) {
	switch req.Method {
	case "initialize":
		s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
	case "tools/list":
		s.sendResult(req.ID, map[string]interface{}{"tools": toolList()})
	case "tools/call":
		s.handleToolsCall(req)
	default:
		s.sendError(req.ID, -32601, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) {
	s.sendResult(req.ID, InitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo: ServerInfo{
			Name:    "rdecomp",
			Version: "1.0.0",
		},
		Capabilities: Capabilities{
			Tools: &ToolsCapability{},
		},
	})
}

func functionProperty() Property {
	return Property{Type: "string", Description: "function name or hex entry address"}
}

func seedsProperty() Property {
	return Property{Type: "string", Description: "seed functions, separated by newlines or commas"}
}

func toolList() []Tool {
	return []Tool{
		{
			Name:        "search",
			Description: "Search functions by name. Exact and prefix matches come first.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"pattern": {Type: "string", Description: "part of the function name"},
					"limit":   {Type: "number", Description: "maximum number of functions, default 50", Default: defaultLimit},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        "callers",
			Description: "List the functions that call a function directly",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"function": functionProperty()},
				Required:   []string{"function"},
			},
		},
		{
			Name:        "callees",
			Description: "List every function reachable from a function, with its call depth",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"function": functionProperty(),
					"depth":    {Type: "number", Description: "maximum call depth, 0 for unlimited"},
				},
				Required: []string{"function"},
			},
		},
		{
			Name:        "closure",
			Description: "Show the functions, structs and enums a decompile of the seeds would contain",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"seeds": seedsProperty()},
				Required:   []string{"seeds"},
			},
		},
		{
			Name:        "decompile",
			Description: "Produce the C source for the seeds and everything they reach",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"seeds": seedsProperty()},
				Required:   []string{"seeds"},
			},
		},
	}
}

func (s *Server) handleToolsCall(req *Request) {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, -32602, "Invalid params")
		return
	}

	var result string
	var err error

	switch params.Name {
	case "search":
		result, err = s.toolSearch(params.Arguments)
	case "callers":
		result, err = s.toolCallers(params.Arguments)
	case "callees":
		result, err = s.toolCallees(params.Arguments)
	case "closure":
		result, err = s.toolClosure(params.Arguments)
	case "decompile":
		result, err = s.toolDecompile(params.Arguments)
	default:
		err = fmt.Errorf("unknown tool: %s", params.Name)
	}

	if err != nil {
		s.logger.Debug("tool call failed", "tool", params.Name, "error", err)
		s.sendResult(req.ID, ToolCallResult{
			Content: []ContentItem{{Type: "text", Text: "error: " + err.Error()}},
			IsError: true,
		})
		return
	}
	s.sendResult(req.ID, ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: result}},
	})
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return strings.TrimSpace(v), nil
}

// numbers arrive as float64 from encoding/json
func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok && v >= 0 {
		return int(v)
	}
	return def
}

func seedArg(args map[string]interface{}) ([]string, error) {
	raw, err := stringArg(args, "seeds")
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, ref := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' }) {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (s *Server) toolSearch(args map[string]interface{}) (string, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return "", err
	}
	limit := intArg(args, "limit", defaultLimit)

	funcs, err := s.db.FindFunctionsByPattern(pattern)
	if err != nil {
		return "", err
	}
	if len(funcs) == 0 {
		return fmt.Sprintf("No functions matching %q", pattern), nil
	}

	total := len(funcs)
	if limit > 0 && total > limit {
		funcs = funcs[:limit]
	}
	out := display.FormatFunctionTable(funcs)
	if len(funcs) < total {
		out += fmt.Sprintf("... %d more\n", total-len(funcs))
	}
	return out, nil
}

func (s *Server) toolCallers(args map[string]interface{}) (string, error) {
	ref, err := stringArg(args, "function")
	if err != nil {
		return "", err
	}
	id, err := s.db.ResolveFunction(ref)
	if err != nil {
		return "", err
	}
	callers, err := s.db.GetDirectCallers(id)
	if err != nil {
		return "", err
	}
	if len(callers) == 0 {
		return fmt.Sprintf("%s has no callers", ref), nil
	}
	return display.FormatFunctionTable(callers), nil
}

func (s *Server) toolCallees(args map[string]interface{}) (string, error) {
	ref, err := stringArg(args, "function")
	if err != nil {
		return "", err
	}
	id, err := s.db.ResolveFunction(ref)
	if err != nil {
		return "", err
	}
	callees, err := s.db.GetDownstreamCallees(id, intArg(args, "depth", 0))
	if err != nil {
		return "", err
	}
	name, err := s.db.FunctionName(id)
	if err != nil {
		return "", err
	}
	return display.FormatReach(fmt.Sprintf("%s  %s", id, name), callees), nil
}

func (s *Server) toolClosure(args map[string]interface{}) (string, error) {
	refs, err := seedArg(args)
	if err != nil {
		return "", err
	}
	res, _, err := decomp.Closure(s.db, refs, s.logger)
	if err != nil {
		return "", err
	}
	return display.FormatClosure(res, func(id program.FunctionID) string {
		name, err := s.db.FunctionName(id)
		if err != nil {
			return "?"
		}
		return name
	}), nil
}

func (s *Server) toolDecompile(args map[string]interface{}) (string, error) {
	refs, err := seedArg(args)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := decomp.Run(s.db, refs, &buf, s.opts, s.logger); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) sendResult(id interface{}, result interface{}) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

func (s *Server) sendError(id interface{}, code int, message string) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}

func (s *Server) send(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to encode response", "error", err)
		return
	}
	fmt.Fprintf(s.output, "%s\n", data)
}
