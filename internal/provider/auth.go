package provider

import (
	"context"
)

// SessionAPI is the session-lifecycle surface the auth provider needs.
type SessionAPI interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	DropSession(ctx context.Context) error
	Stateful() bool
}

// Auth owns the session-management tools. These manage the session's
// lifecycle themselves and are dispatched outside the resilience layer.
type Auth struct {
	session SessionAPI
}

// NewAuth creates the session-management provider.
func NewAuth(session SessionAPI) *Auth {
	return &Auth{session: session}
}

func (p *Auth) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "login",
			Description: "Authenticate against the SAP system and obtain a CSRF token",
			InputSchema: EmptySchema(),
		},
		{
			Name:        "logout",
			Description: "Terminate the backend session and clear all local session state",
			InputSchema: EmptySchema(),
		},
		{
			Name:        "dropSession",
			Description: "Release the server-side stateful session without logging out",
			InputSchema: EmptySchema(),
		},
	}
}

func (p *Auth) Execute(ctx context.Context, name string, _ map[string]any) (any, error) {
	switch name {
	case "login":
		if err := p.session.Login(ctx); err != nil {
			return nil, err
		}

		return map[string]any{"loggedIn": true, "stateful": p.session.Stateful()}, nil

	case "logout":
		if err := p.session.Logout(ctx); err != nil {
			return nil, err
		}

		return map[string]any{"loggedOut": true}, nil

	case "dropSession":
		if err := p.session.DropSession(ctx); err != nil {
			return nil, err
		}

		return map[string]any{"dropped": true}, nil

	default:
		return nil, unknownTool("auth", name)
	}
}
