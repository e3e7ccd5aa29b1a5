package provider

import (
	"context"
)

// CheckAPI is the syntax-check and activation surface of the ADT client.
type CheckAPI interface {
	SyntaxCheck(ctx context.Context, objectURL, source string) (any, error)
	Activate(ctx context.Context, objectName, objectURL string) (any, error)
	InactiveObjects(ctx context.Context) (any, error)
}

// Check owns the syntax-check and activation tools.
type Check struct {
	api CheckAPI
}

// NewCheck creates the check-and-activation provider.
func NewCheck(api CheckAPI) *Check {
	return &Check{api: api}
}

func (p *Check) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "syntaxCheck",
			Description: "Run the ABAP syntax checker against a source state",
			InputSchema: Schema(map[string]string{
				"objectUrl": "string",
				"source":    "string",
			}, "objectUrl", "source"),
		},
		{
			Name:        "activate",
			Description: "Activate an inactive repository object",
			InputSchema: Schema(map[string]string{
				"objectName": "string",
				"objectUrl":  "string",
			}, "objectName", "objectUrl"),
		},
		{
			Name:        "inactiveObjects",
			Description: "List the caller's inactive objects",
			InputSchema: EmptySchema(),
		},
	}
}

func (p *Check) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "syntaxCheck":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		source, err := stringArg(args, "source")
		if err != nil {
			return nil, err
		}

		return p.api.SyntaxCheck(ctx, objectURL, source)

	case "activate":
		objectName, err := stringArg(args, "objectName")
		if err != nil {
			return nil, err
		}

		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		return p.api.Activate(ctx, objectName, objectURL)

	case "inactiveObjects":
		return p.api.InactiveObjects(ctx)

	default:
		return nil, unknownTool("check", name)
	}
}
