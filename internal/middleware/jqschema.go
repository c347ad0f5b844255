// Package middleware wraps MCP tool handlers of xroci serve. Large results
// are saved to disk and replaced by a preview and a jq-inferred schema so
// that a client can decide what to query next with inspect_layout.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/itchyny/gojq"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/metaformsystems/xregistry-oci/internal/logger"
)

var logMiddleware = logger.New("middleware:jqschema")

// PreviewLimit is the number of payload bytes kept in a summarized result
const PreviewLimit = 500

// DefaultThreshold is the payload size above which results are summarized
const DefaultThreshold = 4096

// ToolHandler is the handler signature registered with sdk.AddTool
type ToolHandler = func(context.Context, *sdk.CallToolRequest, interface{}) (*sdk.CallToolResult, interface{}, error)

// jqSchemaFilter replaces every leaf with its type name and keeps the first
// element of each array
const jqSchemaFilter = `
def walk(f):
  . as $in |
  if type == "object" then
    reduce keys[] as $k ({}; . + {($k): ($in[$k] | walk(f))})
  elif type == "array" then
    if length == 0 then [] else [.[0] | walk(f)] end
  else
    type
  end;
walk(.)
`

var schemaCode, schemaCodeErr = compileSchemaFilter()

func compileSchemaFilter() (*gojq.Code, error) {
	query, err := gojq.Parse(jqSchemaFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq schema filter: %w", err)
	}
	return gojq.Compile(query)
}

// Options controls when and where results are summarized
type Options struct {
	// PayloadDir receives one directory per summarized call
	PayloadDir string
	// Threshold is the payload size in bytes above which a result is
	// summarized; zero means DefaultThreshold
	Threshold int
}

// DefaultPayloadDir returns the directory used when Options.PayloadDir is empty
func DefaultPayloadDir() string {
	return filepath.Join(os.TempDir(), "xroci", "tool-calls")
}

// generateRandomID generates a random ID for payload storage
func generateRandomID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("fallback-%d-%d", os.Getpid(), time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// applyJqSchema infers the shape of jsonData
func applyJqSchema(ctx context.Context, jsonData interface{}) (interface{}, error) {
	if schemaCodeErr != nil {
		return nil, schemaCodeErr
	}

	iter := schemaCode.RunWithContext(ctx, jsonData)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq schema filter returned no results")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq schema filter error: %w", err)
	}
	return v, nil
}

// savePayload saves the payload to dir/queryID/payload.json
func savePayload(dir, queryID string, payload []byte) (string, error) {
	dir = filepath.Join(dir, queryID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create payload directory: %w", err)
	}

	filePath := filepath.Join(dir, "payload.json")
	if err := os.WriteFile(filePath, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write payload file: %w", err)
	}
	return filePath, nil
}

// WrapToolHandler wraps a tool handler so that results larger than the
// threshold are saved under the payload directory and replaced by the first
// PreviewLimit bytes and the jq-inferred schema of the full result
func WrapToolHandler(handler ToolHandler, toolName string, opts Options) ToolHandler {
	if opts.PayloadDir == "" {
		opts.PayloadDir = DefaultPayloadDir()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	return func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
		result, data, err := handler(ctx, req, args)
		if err != nil {
			logMiddleware.Printf("Tool call failed: tool=%s, error=%v", toolName, err)
			return result, data, err
		}
		if (result != nil && result.IsError) || data == nil {
			return result, data, nil
		}

		payloadJSON, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			logMiddleware.Printf("Failed to marshal response: tool=%s, error=%v", toolName, marshalErr)
			return result, data, nil
		}
		if len(payloadJSON) <= opts.Threshold {
			return result, data, nil
		}

		queryID := generateRandomID()
		logMiddleware.Printf("Summarizing tool result: tool=%s, queryID=%s, size=%d", toolName, queryID, len(payloadJSON))

		var jsonData interface{}
		if err := json.Unmarshal(payloadJSON, &jsonData); err != nil {
			return result, data, nil
		}
		schema, schemaErr := applyJqSchema(ctx, jsonData)
		if schemaErr != nil {
			logMiddleware.Printf("Failed to apply jq schema: tool=%s, queryID=%s, error=%v", toolName, queryID, schemaErr)
			return result, data, nil
		}

		filePath, saveErr := savePayload(opts.PayloadDir, queryID, payloadJSON)
		if saveErr != nil {
			// The preview is still useful without the saved copy
			logger.LogWarn("middleware", "Failed to save payload of %s: %v", toolName, saveErr)
		}

		return result, map[string]interface{}{
			"queryID":      queryID,
			"payloadPath":  filePath,
			"preview":      preview(payloadJSON),
			"schema":       schema,
			"originalSize": len(payloadJSON),
			"truncated":    true,
		}, nil
	}
}

// preview returns the start of payload, marked with "..." when cut
func preview(payload []byte) string {
	if len(payload) <= PreviewLimit {
		return string(payload)
	}
	return string(payload[:PreviewLimit]) + "..."
}
