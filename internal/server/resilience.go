package server

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/abaplab/adt-mcp/internal/adt"
)

// sessionControl is the slice of the session the controller needs to
// re-establish a connection.
type sessionControl interface {
	Login(ctx context.Context) error
	DropSession(ctx context.Context) error
	SetStateful(stateful bool)
}

// dispatcher routes a tool call to its owning provider.
type dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (any, error)
}

// sessionManaged names the tools that manage the session lifecycle
// themselves. They bypass the resilience controller: retrying them under
// the expiry predicate would be circular.
var sessionManaged = map[string]bool{
	"login":       true,
	"logout":      true,
	"dropSession": true,
}

// resilience wraps dispatch with the reconnect-and-retry protocol. A call
// gets at most two attempts: when the first fails with a session-expiry
// classified error, the session is re-established once and the call is
// re-dispatched with the same arguments. Every other failure propagates
// untouched. Expiry is a one-shot recoverable condition, so there is no
// retry loop and no backoff.
type resilience struct {
	log      *slog.Logger
	session  sessionControl
	dispatch dispatcher

	// reconnects collapses concurrent reconnect attempts into one flight;
	// callers that detect expiry while a reconnect is in progress share
	// its outcome instead of dropping the session a second time.
	reconnects singleflight.Group
}

func newResilience(log *slog.Logger, session sessionControl, dispatch dispatcher) *resilience {
	return &resilience{
		log:      log.With("component", "resilience"),
		session:  session,
		dispatch: dispatch,
	}
}

// Call dispatches a tool call under the retry protocol.
func (c *resilience) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	if sessionManaged[name] {
		return c.dispatch.Dispatch(ctx, name, args)
	}

	result, err := c.dispatch.Dispatch(ctx, name, args)
	if err == nil || !adt.IsSessionExpired(err) {
		return result, err
	}

	c.log.Info("Session expired, reconnecting", "tool", name, "error", err)

	if _, rerr, _ := c.reconnects.Do("reconnect", func() (any, error) {
		return nil, c.reconnect(ctx)
	}); rerr != nil {
		// The original failure is the actionable diagnostic; the reconnect
		// failure is for operators only.
		c.log.Error("Reconnect failed", "tool", name, "error", rerr)

		return nil, err
	}

	return c.dispatch.Dispatch(ctx, name, args)
}

// reconnect re-establishes the session: best-effort drop of the old one,
// reset to stateful mode, fresh login.
func (c *resilience) reconnect(ctx context.Context) error {
	if err := c.session.DropSession(ctx); err != nil {
		c.log.Debug("Drop before reconnect failed", "error", err)
	}

	c.session.SetStateful(true)

	if err := c.session.Login(ctx); err != nil {
		return err
	}

	c.log.Info("Session re-established")

	return nil
}
