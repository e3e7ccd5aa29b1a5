package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/abaplab/adt-mcp/internal/adt"
	"github.com/abaplab/adt-mcp/internal/provider"
	"github.com/abaplab/adt-mcp/internal/registry"
)

// flakyProvider fails lock with a session-expiry error until a reconnect
// happened, mimicking a backend that invalidated the CSRF token.
type flakyProvider struct {
	sess  *fakeSession
	calls int
}

func (p *flakyProvider) Tools() []provider.Descriptor {
	return []provider.Descriptor{
		{Name: "lock", Description: "lock", InputSchema: provider.EmptySchema()},
		{Name: "panics", Description: "panics", InputSchema: provider.EmptySchema()},
	}
}

func (p *flakyProvider) Execute(_ context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "lock":
		p.calls++

		p.sess.mu.Lock()
		loggedInAgain := p.sess.logins > 0
		p.sess.mu.Unlock()

		if !loggedInAgain {
			return nil, &adt.SessionError{StatusCode: 403, Reason: "CSRF token validation failed"}
		}

		return map[string]any{"lockHandle": "H1", "arg": args["objectUrl"]}, nil

	case "panics":
		panic("provider bug")

	default:
		return nil, adt.NewMethodNotFound(name)
	}
}

func newTestServer(t *testing.T) (*Server, *flakyProvider, *fakeSession) {
	t.Helper()

	sess := &fakeSession{}
	p := &flakyProvider{sess: sess}

	reg, err := registry.New(p)
	require.NoError(t, err)

	return New(reg, sess, nil), p, sess
}

func callReq(name string, args map[string]any) *mcp.CallToolRequest {
	var raw json.RawMessage
	if args != nil {
		raw, _ = json.Marshal(args)
	}

	return &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: raw},
	}
}

func envelopeOf(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &m))

	return m
}

func TestHandleUnknownTool(t *testing.T) {
	s, p, sess := newTestServer(t)

	res, err := s.handle(context.Background(), callReq("notARealOperation", nil))
	require.NoError(t, err, "failures never escape the handler")
	require.True(t, res.IsError)

	env := envelopeOf(t, res)
	require.EqualValues(t, adt.CodeMethodNotFound, env["code"])
	require.Zero(t, p.calls, "no provider invoked for unknown names")
	require.Zero(t, sess.logins, "no network activity for unknown names")
}

func TestHandleExpiredSessionRetriedTransparently(t *testing.T) {
	s, p, sess := newTestServer(t)

	res, err := s.handle(context.Background(), callReq("lock", map[string]any{"objectUrl": "/x"}))
	require.NoError(t, err)
	require.False(t, res.IsError, "the retry is invisible to the caller")

	payload := envelopeOf(t, res)
	require.Equal(t, "H1", payload["lockHandle"])
	require.Equal(t, "/x", payload["arg"], "retry reuses the same arguments")
	require.Equal(t, 2, p.calls, "exactly one retry")
	require.Equal(t, 1, sess.logins, "exactly one reconnect")
}

func TestHandlePanicBecomesInternalError(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handle(context.Background(), callReq("panics", nil))
	require.NoError(t, err)
	require.True(t, res.IsError)

	env := envelopeOf(t, res)
	require.Equal(t, "internal server error", env["message"], "panic detail must not leak")
	require.EqualValues(t, adt.CodeInternal, env["code"])
}

func TestHandleHealthcheck(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handle(context.Background(), callReq(registry.HealthcheckName, nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	payload := envelopeOf(t, res)
	require.Equal(t, "healthy", payload["status"])
	require.NotEmpty(t, payload["timestamp"])
}

func TestHandleBadArguments(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: "lock", Arguments: json.RawMessage(`["not", "an", "object"]`)},
	}

	res, err := s.handle(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.IsError)

	env := envelopeOf(t, res)
	require.EqualValues(t, adt.CodeInvalidParams, env["code"])
}
