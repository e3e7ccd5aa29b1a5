package provider

import (
	"context"
)

// TransportAPI is the change-and-transport surface of the ADT client.
type TransportAPI interface {
	TransportInfo(ctx context.Context, objectURL, devClass string) (any, error)
	CreateTransport(ctx context.Context, objectURL, description, devClass string) (any, error)
	TransportsOfUser(ctx context.Context, user string) (any, error)
	ReleaseTransport(ctx context.Context, transport string) (any, error)
}

// Transport owns the CTS transport-request tools.
type Transport struct {
	api TransportAPI
}

// NewTransport creates the transport-management provider.
func NewTransport(api TransportAPI) *Transport {
	return &Transport{api: api}
}

func (p *Transport) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "transportInfo",
			Description: "Check which transport options apply to an object",
			InputSchema: Schema(map[string]string{
				"objSourceUrl": "string",
				"devClass":     "string",
			}, "objSourceUrl"),
		},
		{
			Name:        "createTransport",
			Description: "Create a workbench transport request",
			InputSchema: Schema(map[string]string{
				"objSourceUrl": "string",
				"requestText":  "string",
				"devClass":     "string",
			}, "objSourceUrl", "requestText"),
		},
		{
			Name:        "transportsOfUser",
			Description: "List the transport requests owned by a user",
			InputSchema: Schema(map[string]string{
				"user": "string",
			}, "user"),
		},
		{
			Name:        "releaseTransport",
			Description: "Release a transport request",
			InputSchema: Schema(map[string]string{
				"transport": "string",
			}, "transport"),
		},
	}
}

func (p *Transport) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "transportInfo":
		objectURL, err := stringArg(args, "objSourceUrl")
		if err != nil {
			return nil, err
		}

		return p.api.TransportInfo(ctx, objectURL, optStringArg(args, "devClass"))

	case "createTransport":
		objectURL, err := stringArg(args, "objSourceUrl")
		if err != nil {
			return nil, err
		}

		text, err := stringArg(args, "requestText")
		if err != nil {
			return nil, err
		}

		return p.api.CreateTransport(ctx, objectURL, text, optStringArg(args, "devClass"))

	case "transportsOfUser":
		user, err := stringArg(args, "user")
		if err != nil {
			return nil, err
		}

		return p.api.TransportsOfUser(ctx, user)

	case "releaseTransport":
		transport, err := stringArg(args, "transport")
		if err != nil {
			return nil, err
		}

		return p.api.ReleaseTransport(ctx, transport)

	default:
		return nil, unknownTool("transport", name)
	}
}
