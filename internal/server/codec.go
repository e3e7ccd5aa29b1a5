package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/abaplab/adt-mcp/internal/adt"
)

// maxSafeInteger is the largest integer a consumer decoding JSON numbers
// into IEEE-754 doubles can represent exactly (2^53 - 1).
const maxSafeInteger = 1<<53 - 1

// encodeResult serializes a tool result into the response envelope: one
// text block holding the JSON payload. Integer values beyond the safe range
// are rewritten to decimal strings first; naive encoding would silently
// corrupt them on the consumer side. A result that cannot be serialized at
// all yields an internal-error envelope, never a propagated failure.
func encodeResult(result any) *mcp.CallToolResult {
	data, err := json.Marshal(result)
	if err != nil {
		return normalizeError(fmt.Errorf("serialize result: %w", err))
	}

	data, err = stringifyBigInts(data)
	if err != nil {
		return normalizeError(fmt.Errorf("serialize result: %w", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// stringifyBigInts re-encodes a JSON document with every integer outside
// the safe range replaced by its decimal string form. Operating on the
// decoded value tree applies the transform uniformly, whatever shape a
// provider returned.
func stringifyBigInts(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return json.Marshal(transformNumbers(v))
}

func transformNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		return transformNumber(x)

	case map[string]any:
		for k, e := range x {
			x[k] = transformNumbers(e)
		}

		return x

	case []any:
		for i, e := range x {
			x[i] = transformNumbers(e)
		}

		return x

	default:
		return v
	}
}

func transformNumber(n json.Number) any {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return n
	}

	i, err := n.Int64()
	if err != nil {
		// Integral but does not fit int64 (e.g. a large uint64): certainly
		// beyond safe range.
		return s
	}

	if i > maxSafeInteger || i < -maxSafeInteger {
		return strconv.FormatInt(i, 10)
	}

	return n
}

// errorEnvelope is the uniform error payload: a message and a numeric code.
type errorEnvelope struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// normalizeError converts any failure into an error envelope. A structured
// *adt.Error passes its message and code through unchanged; everything else
// flattens to a generic internal error so provider internals never leak
// across the boundary.
func normalizeError(err error) *mcp.CallToolResult {
	env := errorEnvelope{Message: "internal server error", Code: adt.CodeInternal}

	var adtErr *adt.Error

	var sessErr *adt.SessionError

	switch {
	case errors.As(err, &adtErr):
		env.Message = adtErr.Message
		env.Code = adtErr.Code
	case errors.As(err, &sessErr):
		env.Message = sessErr.Error()
	}

	data, merr := json.Marshal(env)
	if merr != nil {
		data = []byte(`{"message":"internal server error","code":-32603}`)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}

// coerceError turns a recovered panic value into an error, preserving its
// string form as the message.
func coerceError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}

	return fmt.Errorf("%v", v)
}
