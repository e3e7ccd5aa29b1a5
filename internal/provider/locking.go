package provider

import (
	"context"

	"github.com/abaplab/adt-mcp/internal/adt"
)

// LockingAPI is the lock-management surface of the ADT client.
type LockingAPI interface {
	Lock(ctx context.Context, objectURL string) (*adt.LockResult, error)
	Unlock(ctx context.Context, objectURL, lockHandle string) (any, error)
}

// Locking owns the lock and unlock tools. Both depend on the stateful
// session: the backend drops held locks when the session ends, which is why
// a transparent reconnect matters most here.
type Locking struct {
	api LockingAPI
}

// NewLocking creates the lock-management provider.
func NewLocking(api LockingAPI) *Locking {
	return &Locking{api: api}
}

func (p *Locking) Tools() []Descriptor {
	return []Descriptor{
		{
			Name:        "lock",
			Description: "Take a write lock on an object and return the lock handle",
			InputSchema: Schema(map[string]string{
				"objectUrl": "string",
			}, "objectUrl"),
		},
		{
			Name:        "unlock",
			Description: "Release a write lock previously taken with lock",
			InputSchema: Schema(map[string]string{
				"objectUrl":  "string",
				"lockHandle": "string",
			}, "objectUrl", "lockHandle"),
		},
	}
}

func (p *Locking) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "lock":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		return p.api.Lock(ctx, objectURL)

	case "unlock":
		objectURL, err := stringArg(args, "objectUrl")
		if err != nil {
			return nil, err
		}

		lockHandle, err := stringArg(args, "lockHandle")
		if err != nil {
			return nil, err
		}

		return p.api.Unlock(ctx, objectURL, lockHandle)

	default:
		return nil, unknownTool("locking", name)
	}
}
