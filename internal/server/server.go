// Package server wires the tool registry onto the MCP protocol: one shared
// handler funnels every tool call through the resilience controller and the
// dispatcher, then encodes the outcome into a well-formed response envelope.
// Nothing escapes the boundary as an unhandled failure.
package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	"github.com/abaplab/adt-mcp/internal/adt"
	"github.com/abaplab/adt-mcp/internal/registry"
)

// Name and Version identify the server in the MCP initialize handshake.
const (
	Name    = "adt-mcp"
	Version = "1.2.0"
)

// Server serves the tool catalog over an MCP transport.
type Server struct {
	log  *slog.Logger
	reg  *registry.Registry
	ctrl *resilience
	mcp  *mcp.Server
}

// New builds the server from an assembled registry and the shared session.
// A nil logger disables logging.
func New(reg *registry.Registry, session sessionControl, log *slog.Logger) *Server {
	if log == nil {
		log = NopLogger()
	}

	s := &Server{
		log:  log.With("component", "server"),
		reg:  reg,
		ctrl: newResilience(log, session, reg),
	}

	impl := &mcp.Implementation{Name: Name, Version: Version}
	s.mcp = mcp.NewServer(impl, nil)

	for _, d := range reg.Tools() {
		s.mcp.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		}, s.handle)
	}

	return s
}

// Run serves requests over stdio until ctx is cancelled or the transport
// closes.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Serving", "name", Name, "version", Version, "tools", len(s.reg.Tools()))

	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// handle is the single entry point for every tool call. It always returns
// a well-formed result: failures, including panics in providers, become
// error envelopes rather than protocol errors.
func (s *Server) handle(ctx context.Context, req *mcp.CallToolRequest) (res *mcp.CallToolResult, err error) {
	name := req.Params.Name
	log := s.log.With("call", ulid.Make().String(), "tool", name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Tool call panicked", "panic", r)

			res, err = normalizeError(coerceError(r)), nil
		}
	}()

	args, perr := parseArguments(req)
	if perr != nil {
		log.Debug("Bad arguments", "error", perr)

		return normalizeError(adt.NewInvalidParams(perr.Error())), nil
	}

	result, callErr := s.ctrl.Call(ctx, name, args)
	if callErr != nil {
		log.Debug("Tool call failed", "error", callErr)

		return normalizeError(callErr), nil
	}

	return encodeResult(result), nil
}

// parseArguments unmarshals the raw call arguments into a map.
func parseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, err
	}

	return args, nil
}
