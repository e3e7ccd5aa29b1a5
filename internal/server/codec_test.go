package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/abaplab/adt-mcp/internal/adt"
)

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.Len(t, result.Content, 1, "envelope holds exactly one text block")

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestEncodeResultPlain(t *testing.T) {
	result := encodeResult(map[string]any{"status": "healthy"})
	require.False(t, result.IsError)
	require.JSONEq(t, `{"status":"healthy"}`, textOf(t, result))
}

func TestEncodeResultBigIntegers(t *testing.T) {
	result := encodeResult(map[string]any{
		"timestamp": int64(1725105600000000123),
		"small":     int64(42),
		"nested": []any{
			map[string]any{"id": uint64(18446744073709551615)},
		},
		"negative": int64(-9007199254740993),
	})
	require.False(t, result.IsError)

	text := textOf(t, result)
	require.Contains(t, text, `"timestamp":"1725105600000000123"`, "unsafe integers become quoted decimals")
	require.Contains(t, text, `"id":"18446744073709551615"`)
	require.Contains(t, text, `"negative":"-9007199254740993"`)
	require.Contains(t, text, `"small":42`, "safe integers stay numeric")

	// The payload must still be valid JSON.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
}

func TestEncodeResultFloatsUntouched(t *testing.T) {
	result := encodeResult(map[string]any{"ratio": 0.25, "big": 1e300})
	text := textOf(t, result)
	require.Contains(t, text, `"ratio":0.25`)
	require.False(t, result.IsError)
}

func TestEncodeResultUnserializable(t *testing.T) {
	// Function values cannot be marshaled. The codec must produce an
	// internal-error envelope instead of failing outward.
	result := encodeResult(map[string]any{"fn": func() {}})
	require.True(t, result.IsError)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &env))
	require.Equal(t, "internal server error", env.Message)
	require.Equal(t, adt.CodeInternal, env.Code)
}

func TestNormalizeErrorStructured(t *testing.T) {
	result := normalizeError(adt.NewMethodNotFound("notARealOperation"))
	require.True(t, result.IsError)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &env))
	require.Equal(t, adt.CodeMethodNotFound, env.Code)
	require.Contains(t, env.Message, "notARealOperation")
}

func TestNormalizeErrorWrappedStructured(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", adt.NewInvalidParams("objectUrl is required"))
	result := normalizeError(wrapped)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &env))
	require.Equal(t, adt.CodeInvalidParams, env.Code)
	require.Equal(t, "objectUrl is required", env.Message)
}

func TestNormalizeErrorSessionError(t *testing.T) {
	sessErr := &adt.SessionError{StatusCode: 403, Reason: "CSRF token validation failed"}
	result := normalizeError(sessErr)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &env))
	require.Equal(t, sessErr.Error(), env.Message, "the original failure's message is preserved")
	require.Equal(t, adt.CodeInternal, env.Code)
}

func TestNormalizeErrorGenericFlattened(t *testing.T) {
	result := normalizeError(errors.New("panic at /internal/provider/locking.go:42: nil pointer"))

	var env errorEnvelope
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &env))
	require.Equal(t, "internal server error", env.Message, "internal detail must not leak")
	require.Equal(t, adt.CodeInternal, env.Code)
}

func TestCoerceError(t *testing.T) {
	base := errors.New("boom")
	require.Same(t, base, coerceError(base))
	require.EqualError(t, coerceError("string panic"), "string panic")
	require.EqualError(t, coerceError(42), "42")
}
