package provider

import (
	"context"
)

// GitAPI is the abapGit surface of the ADT client.
type GitAPI interface {
	GitRepos(ctx context.Context) (any, error)
	GitCreateRepo(ctx context.Context, packageName, repoURL, branch string) (any, error)
	GitPullRepo(ctx context.Context, repoKey, branch string) (any, error)
}

// Git owns the abapGit integration tools.
type Git struct {
	api GitAPI
}

// NewGit creates the abapGit provider.
func NewGit(api GitAPI) *Git {
	return &Git{api: api}
}

func (p *Git) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "gitRepos",
			Description: "List the abapGit repositories linked on the system",
			InputSchema: EmptySchema(),
		},
		{
			Name:        "gitCreateRepo",
			Description: "Link a remote git repository to a package and clone it",
			InputSchema: Schema(map[string]string{
				"packageName": "string",
				"repourl":     "string",
				"branch":      "string",
			}, "packageName", "repourl"),
		},
		{
			Name:        "gitPullRepo",
			Description: "Pull a linked abapGit repository",
			InputSchema: Schema(map[string]string{
				"repoId": "string",
				"branch": "string",
			}, "repoId"),
		},
	}
}

func (p *Git) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "gitRepos":
		return p.api.GitRepos(ctx)

	case "gitCreateRepo":
		packageName, err := stringArg(args, "packageName")
		if err != nil {
			return nil, err
		}

		repoURL, err := stringArg(args, "repourl")
		if err != nil {
			return nil, err
		}

		return p.api.GitCreateRepo(ctx, packageName, repoURL, optStringArg(args, "branch"))

	case "gitPullRepo":
		repoKey, err := stringArg(args, "repoId")
		if err != nil {
			return nil, err
		}

		return p.api.GitPullRepo(ctx, repoKey, optStringArg(args, "branch"))

	default:
		return nil, unknownTool("git", name)
	}
}
