package provider

import (
	"context"
)

// RepositoryAPI is the object-management surface of the ADT client.
type RepositoryAPI interface {
	SearchObject(ctx context.Context, query string, maxResults int) (any, error)
	ObjectStructure(ctx context.Context, objectURL string) (any, error)
	GetObjectSource(ctx context.Context, sourceURL string) (string, error)
	SetObjectSource(ctx context.Context, sourceURL, source, lockHandle, transport string) (any, error)
	CreateObject(ctx context.Context, objType, name, parentName, description, transport string) (any, error)
	DeleteObject(ctx context.Context, objectURL, lockHandle, transport string) (any, error)
}

// Repository owns the object CRUD and search tools.
type Repository struct {
	api RepositoryAPI
}

// NewRepository creates the object-management provider.
func NewRepository(api RepositoryAPI) *Repository {
	return &Repository{api: api}
}

func (p *Repository) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "searchObject",
			Description: "Quick search for repository objects by name pattern",
			InputSchema: Schema(map[string]string{
				"query": "string",
				"max":   "int",
			}, "query"),
		},
		{
			Name:        "objectStructure",
			Description: "Get the structure metadata of a repository object",
			InputSchema: Schema(map[string]string{
				"objectUrl": "string",
			}, "objectUrl"),
		},
		{
			Name:        "getObjectSource",
			Description: "Read the source code of an object include",
			InputSchema: Schema(map[string]string{
				"objectSourceUrl": "string",
			}, "objectSourceUrl"),
		},
		{
			Name:        "setObjectSource",
			Description: "Write the source code of an object include (requires a lock handle)",
			InputSchema: Schema(map[string]string{
				"objectSourceUrl": "string",
				"source":          "string",
				"lockHandle":      "string",
				"transport":       "string",
			}, "objectSourceUrl", "source", "lockHandle"),
		},
		{
			Name:        "createObject",
			Description: "Create a repository object (program, class, interface, ...)",
			InputSchema: Schema(map[string]string{
				"objtype":     "string",
				"name":        "string",
				"parentName":  "string",
				"description": "string",
				"transport":   "string",
			}, "objtype", "name"),
		},
		{
			Name:        "deleteObject",
			Description: "Delete a repository object (requires a lock handle)",
			InputSchema: Schema(map[string]string{
				"objectUrl":  "string",
				"lockHandle": "string",
				"transport":  "string",
			}, "objectUrl", "lockHandle"),
		},
	}
}

func (p *Repository) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "searchObject":
		query, err := stringArg(args, "query")
		if err != nil {
			return nil, err
		}

		return p.api.SearchObject(ctx, query, intArg(args, "max", 100))

	case "objectStructure":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		return p.api.ObjectStructure(ctx, objectURL)

	case "getObjectSource":
		sourceURL, err := stringArg(args, "objectSourceUrl")
		if err != nil {
			return nil, err
		}

		return p.api.GetObjectSource(ctx, sourceURL)

	case "setObjectSource":
		sourceURL, err := stringArg(args, "objectSourceUrl")
		if err != nil {
			return nil, err
		}

		source, err := stringArg(args, "source")
		if err != nil {
			return nil, err
		}

		lockHandle, err := stringArg(args, "lockHandle")
		if err != nil {
			return nil, err
		}

		return p.api.SetObjectSource(ctx, sourceURL, source, lockHandle, optStringArg(args, "transport"))

	case "createObject":
		objType, err := stringArg(args, "objtype")
		if err != nil {
			return nil, err
		}

		objName, err := stringArg(args, "name")
		if err != nil {
			return nil, err
		}

		return p.api.CreateObject(ctx, objType, objName,
			optStringArg(args, "parentName"),
			optStringArg(args, "description"),
			optStringArg(args, "transport"))

	case "deleteObject":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		lockHandle, err := stringArg(args, "lockHandle")
		if err != nil {
			return nil, err
		}

		return p.api.DeleteObject(ctx, objectURL, lockHandle, optStringArg(args, "transport"))

	default:
		return nil, unknownTool("repository", name)
	}
}
