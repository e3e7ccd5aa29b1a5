package provider

import (
	"context"
)

// AtcAPI is the ABAP Test Cockpit surface of the ADT client.
type AtcAPI interface {
	AtcCustomizing(ctx context.Context) (any, error)
	CreateAtcRun(ctx context.Context, variant, objectURL string, maxResults int) (any, error)
	AtcWorklists(ctx context.Context, worklistID string) (any, error)
}

// Atc owns the ATC check tools.
type Atc struct {
	api AtcAPI
}

// NewAtc creates the ATC provider.
func NewAtc(api AtcAPI) *Atc {
	return &Atc{api: api}
}

func (p *Atc) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "atcCustomizing",
			Description: "Get the ATC customizing settings",
			InputSchema: EmptySchema(),
		},
		{
			Name:        "createAtcRun",
			Description: "Start an ATC run for an object and return the worklist",
			InputSchema: Schema(map[string]string{
				"variant":    "string",
				"mainUrl":    "string",
				"maxResults": "int",
			}, "variant", "mainUrl"),
		},
		{
			Name:        "atcWorklists",
			Description: "Get the findings of an ATC worklist",
			InputSchema: Schema(map[string]string{
				"worklistId": "string",
			}, "worklistId"),
		},
	}
}

func (p *Atc) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "atcCustomizing":
		return p.api.AtcCustomizing(ctx)

	case "createAtcRun":
		variant, err := stringArg(args, "variant")
		if err != nil {
			return nil, err
		}

		mainURL, err := stringArg(args, "mainUrl")
		if err != nil {
			return nil, err
		}

		return p.api.CreateAtcRun(ctx, variant, mainURL, intArg(args, "maxResults", 100))

	case "atcWorklists":
		worklistID, err := stringArg(args, "worklistId")
		if err != nil {
			return nil, err
		}

		return p.api.AtcWorklists(ctx, worklistID)

	default:
		return nil, unknownTool("atc", name)
	}
}
