// Package tools provides the MCP tool handlers for manifest.
//
// Each tool handler follows the same pattern:
//   - A struct with its dependencies (store.Store) injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Handlers never return a Go error for domain failures; they return a tool
// result flagged as an error whose text starts with a stable code such as
// [not_found] or [not_leaf], so agents can branch on it.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/store"
)

// errorCodes maps store sentinels to the codes exposed to clients. Order
// matters: the first match wins.
var errorCodes = []struct {
	err  error
	code string
}{
	{store.ErrNotFound, "not_found"},
	{store.ErrInvalidParent, "invalid_parent"},
	{store.ErrNotLeaf, "not_leaf"},
	{store.ErrSessionAlreadyActive, "session_already_active"},
	{store.ErrSessionNotActive, "session_not_active"},
	{store.ErrInvalidTransition, "invalid_transition"},
	{store.ErrInvalidInput, "invalid_input"},
	{store.ErrStorage, "storage_failure"},
}

// ErrorCode returns the client-facing code for err.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// errorResult builds a tool error result for a failed store call.
func errorResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] failed to %s: %v", ErrorCode(err), action, err))
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// bindArgs decodes the request arguments into dst through JSON so nested
// arrays and objects land in typed fields.
func bindArgs(req mcp.CallToolRequest, dst any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("[invalid_input] malformed arguments: %w", err)
	}
	return nil
}

// optString returns a pointer to the argument when it is present, even when
// empty, so callers can distinguish "clear" from "leave unchanged".
func optString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// intArg extracts an integer argument from a tool request, returning nil if
// the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string) *int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringSlice extracts an array of strings, skipping non-string items.
func stringSlice(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// requireString returns the argument or a tool error naming it.
func requireString(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v := req.GetString(key, "")
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("[invalid_input] '%s' is required", key))
	}
	return v, nil
}

var stringItems = mcp.Items(map[string]any{"type": "string"})

// optID is optString for identifiers: an empty value counts as absent.
func optID(req mcp.CallToolRequest, key string) *string {
	v := req.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}
