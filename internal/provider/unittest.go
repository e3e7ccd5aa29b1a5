package provider

import (
	"context"
)

// UnitTestAPI is the ABAP Unit surface of the ADT client.
type UnitTestAPI interface {
	UnitTestRun(ctx context.Context, objectURL string) (any, error)
}

// UnitTest owns the ABAP Unit tool.
type UnitTest struct {
	api UnitTestAPI
}

// NewUnitTest creates the ABAP Unit provider.
func NewUnitTest(api UnitTestAPI) *UnitTest {
	return &UnitTest{api: api}
}

func (p *UnitTest) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "unitTestRun",
			Description: "Run the ABAP Unit tests of an object and return the results",
			InputSchema: Schema(map[string]string{
				"objectUrl": "string",
			}, "objectUrl"),
		},
	}
}

func (p *UnitTest) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "unitTestRun":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		return p.api.UnitTestRun(ctx, objectURL)

	default:
		return nil, unknownTool("unittest", name)
	}
}
