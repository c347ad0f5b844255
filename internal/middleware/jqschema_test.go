package middleware

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomID(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRandomID()
		assert.Len(t, id, 32)
		assert.False(t, ids[id], "ID should be unique")
		ids[id] = true
	}
}

func TestApplyJqSchema(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{
			name:     "simple object",
			input:    map[string]interface{}{"name": "test", "count": 42},
			expected: `{"count":"number","name":"string"}`,
		},
		{
			name: "layout document",
			input: map[string]interface{}{
				"manifest": map[string]interface{}{
					"schemaVersion": 2,
					"layers": []interface{}{
						map[string]interface{}{"digest": "sha256:abc", "size": 10},
						map[string]interface{}{"digest": "sha256:def", "size": 20},
					},
				},
			},
			expected: `{"manifest":{"layers":[{"digest":"string","size":"number"}],"schemaVersion":"number"}}`,
		},
		{
			name:     "empty array",
			input:    map[string]interface{}{"items": []interface{}{}},
			expected: `{"items":[]}`,
		},
		{
			name:     "null value",
			input:    map[string]interface{}{"value": nil, "ok": true},
			expected: `{"ok":"boolean","value":"null"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := applyJqSchema(context.Background(), tt.input)
			require.NoError(t, err)
			out, err := json.Marshal(schema)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(out))
		})
	}
}

func TestSavePayload(t *testing.T) {
	dir := t.TempDir()
	payload := []byte(`{"test": "data"}`)

	filePath, err := savePayload(dir, "query-123", payload)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "query-123", "payload.json"), filePath)
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func largeResult() map[string]interface{} {
	items := make([]interface{}, 0, 100)
	for i := 0; i < 100; i++ {
		items = append(items, map[string]interface{}{
			"path":    strings.Repeat("p", 40),
			"version": "1.0.0",
		})
	}
	return map[string]interface{}{"count": len(items), "artifacts": items}
}

func TestWrapToolHandler_SummarizesLargeResult(t *testing.T) {
	dir := t.TempDir()
	handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
		return nil, largeResult(), nil
	}

	wrapped := WrapToolHandler(handler, "list_artifacts", Options{PayloadDir: dir})
	result, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, map[string]interface{}{})
	require.NoError(t, err)
	assert.Nil(t, result)

	summary, ok := data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, summary["truncated"])

	preview := summary["preview"].(string)
	assert.Len(t, preview, PreviewLimit+3)
	assert.True(t, strings.HasSuffix(preview, "..."))

	path := summary["payloadPath"].(string)
	assert.True(t, strings.HasPrefix(path, dir))
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(saved), summary["originalSize"])

	schema, err := json.Marshal(summary["schema"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"artifacts":[{"path":"string","version":"string"}],"count":"number"}`, string(schema))
}

func TestWrapToolHandler_PayloadShorterThanPreview(t *testing.T) {
	payload := map[string]interface{}{"count": 2, "names": []string{"acme.access", "acme.order"}}
	handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
		return nil, payload, nil
	}

	wrapped := WrapToolHandler(handler, "list_artifacts", Options{PayloadDir: t.TempDir(), Threshold: 16})
	_, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, nil)
	require.NoError(t, err)

	summary, ok := data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, summary["truncated"])

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	require.Less(t, len(encoded), PreviewLimit)
	assert.Equal(t, string(encoded), summary["preview"])
	assert.Equal(t, len(encoded), summary["originalSize"])
}

func TestWrapToolHandler_SmallResultUnchanged(t *testing.T) {
	dir := t.TempDir()
	small := map[string]interface{}{"valid": true}
	handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
		return nil, small, nil
	}

	wrapped := WrapToolHandler(handler, "parse_filename", Options{PayloadDir: dir})
	_, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, small, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should be saved for small results")
}

func TestWrapToolHandler_ErrorHandling(t *testing.T) {
	t.Run("handler returns error", func(t *testing.T) {
		handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
			return &sdk.CallToolResult{IsError: true}, nil, assert.AnError
		}

		wrapped := WrapToolHandler(handler, "build_package", Options{PayloadDir: t.TempDir()})
		result, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, nil)

		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, data)
		assert.True(t, result.IsError)
	})

	t.Run("error result is passed through", func(t *testing.T) {
		handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
			return &sdk.CallToolResult{IsError: true}, largeResult(), nil
		}

		wrapped := WrapToolHandler(handler, "build_package", Options{PayloadDir: t.TempDir(), Threshold: 10})
		_, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, nil)

		assert.NoError(t, err)
		assert.NotContains(t, data, "queryID")
	})

	t.Run("nil data", func(t *testing.T) {
		handler := func(ctx context.Context, req *sdk.CallToolRequest, args interface{}) (*sdk.CallToolResult, interface{}, error) {
			return nil, nil, nil
		}

		wrapped := WrapToolHandler(handler, "build_package", Options{PayloadDir: t.TempDir()})
		_, data, err := wrapped(context.Background(), &sdk.CallToolRequest{}, nil)

		assert.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestDefaultPayloadDir(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "xroci", "tool-calls"), DefaultPayloadDir())
}
