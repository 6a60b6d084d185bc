package handlers

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// getArguments extracts the argument map from the request and validates its presence.
func getArguments(req mcp.CallToolRequest) (map[string]interface{}, *mcp.CallToolResult) {
	args, ok := any(req.Params.Arguments).(map[string]interface{})
	if !ok || args == nil {
		return nil, mcp.NewToolResultError("Invalid arguments format")
	}
	return args, nil
}

// getRequiredString extracts a required string parameter from the argument map.
func getRequiredString(args map[string]interface{}, key string) (string, *mcp.CallToolResult) {
	if val, ok := args[key].(string); ok && val != "" {
		return val, nil
	}
	return "", mcp.NewToolResultError(fmt.Sprintf("%s parameter is required", key))
}

// getOptionalString extracts an optional string parameter with default value.
func getOptionalString(args map[string]interface{}, key, defaultVal string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultVal
}

// getRequiredStringSlice extracts a required string slice from the argument map.
func getRequiredStringSlice(args map[string]interface{}, key string) ([]string, *mcp.CallToolResult) {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("%s parameter is required", key))
	}
	result := make([]string, 0, len(raw))
	for i := 0; i < len(raw) && i < maxPatterns; i++ {
		if s, ok := raw[i].(string); ok && s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil, mcp.NewToolResultError(fmt.Sprintf("%s parameter is required", key))
	}
	return result, nil
}

// getOptionalBool extracts an optional bool parameter with default value.
func getOptionalBool(args map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
