package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abaplab/adt-mcp/internal/adt"
)

var errExpired = &adt.SessionError{StatusCode: 403, Reason: "CSRF token validation failed"}

// fakeDispatcher fails the first failures-many dispatches of each name with
// err, then succeeds.
type fakeDispatcher struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, _ map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, name)

	if f.failures > 0 {
		f.failures--

		return nil, f.err
	}

	return "result:" + name, nil
}

type fakeSession struct {
	mu         sync.Mutex
	drops      int
	logins     int
	stateful   []bool
	dropErr    error
	loginErr   error
	loginBlock chan struct{}
}

func (f *fakeSession) Login(_ context.Context) error {
	if f.loginBlock != nil {
		<-f.loginBlock
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++

	return f.loginErr
}

func (f *fakeSession) DropSession(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops++

	return f.dropErr
}

func (f *fakeSession) SetStateful(stateful bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateful = append(f.stateful, stateful)
}

func TestCallHealthySession(t *testing.T) {
	d := &fakeDispatcher{}
	sess := &fakeSession{}
	c := newResilience(NopLogger(), sess, d)

	result, err := c.Call(context.Background(), "lock", map[string]any{"objectUrl": "/x"})
	require.NoError(t, err)
	require.Equal(t, "result:lock", result)
	require.Equal(t, []string{"lock"}, d.calls, "exactly one dispatch")
	require.Zero(t, sess.logins, "zero reconnects")
	require.Zero(t, sess.drops)
}

func TestCallReconnectsOnceOnExpiry(t *testing.T) {
	d := &fakeDispatcher{failures: 1, err: errExpired}
	sess := &fakeSession{}
	c := newResilience(NopLogger(), sess, d)

	result, err := c.Call(context.Background(), "lock", map[string]any{"objectUrl": "/x"})
	require.NoError(t, err)
	require.Equal(t, "result:lock", result)
	require.Equal(t, []string{"lock", "lock"}, d.calls, "one retry with the same operation")
	require.Equal(t, 1, sess.drops)
	require.Equal(t, 1, sess.logins)
	require.Equal(t, []bool{true}, sess.stateful, "session reset to stateful before login")
}

func TestCallRetryFailurePropagatesAsIs(t *testing.T) {
	d := &fakeDispatcher{failures: 2, err: errExpired}
	sess := &fakeSession{}
	c := newResilience(NopLogger(), sess, d)

	// The retry fails too, still classified as expiry, but both attempts
	// are used up: its outcome is returned as-is with no further
	// reconnect.
	_, err := c.Call(context.Background(), "lock", nil)
	require.Error(t, err)
	require.Len(t, d.calls, 2)
	require.Equal(t, 1, sess.logins, "attempts are bounded at two")
}

func TestCallNonExpiryErrorNotRetried(t *testing.T) {
	bizErr := errors.New("object DEMO does not exist")
	d := &fakeDispatcher{failures: 1, err: bizErr}
	sess := &fakeSession{}
	c := newResilience(NopLogger(), sess, d)

	_, err := c.Call(context.Background(), "objectStructure", nil)
	require.ErrorIs(t, err, bizErr)
	require.Len(t, d.calls, 1)
	require.Zero(t, sess.logins, "business errors must not trigger session churn")
}

func TestCallReconnectFailureReturnsOriginalError(t *testing.T) {
	loginErr := errors.New("login rejected")
	d := &fakeDispatcher{failures: 99, err: errExpired}
	sess := &fakeSession{loginErr: loginErr}
	c := newResilience(NopLogger(), sess, d)

	_, err := c.Call(context.Background(), "lock", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, loginErr, "reconnect failure is logged, not surfaced")

	var sessErr *adt.SessionError
	require.ErrorAs(t, err, &sessErr, "the original expiry failure is the diagnostic")
	require.Len(t, d.calls, 1, "no retry after a failed reconnect")
}

func TestCallDropFailureSwallowed(t *testing.T) {
	d := &fakeDispatcher{failures: 1, err: errExpired}
	sess := &fakeSession{dropErr: errors.New("drop failed")}
	c := newResilience(NopLogger(), sess, d)

	result, err := c.Call(context.Background(), "lock", nil)
	require.NoError(t, err, "drop failures are best-effort")
	require.Equal(t, "result:lock", result)
	require.Equal(t, 1, sess.logins)
}

func TestSessionManagedToolsBypassController(t *testing.T) {
	for _, name := range []string{"login", "logout", "dropSession"} {
		d := &fakeDispatcher{failures: 1, err: errExpired}
		sess := &fakeSession{}
		c := newResilience(NopLogger(), sess, d)

		_, err := c.Call(context.Background(), name, nil)
		require.Error(t, err, "tool %q", name)
		require.Len(t, d.calls, 1, "tool %q must not be retried", name)
		require.Zero(t, sess.logins, "tool %q must not trigger a reconnect", name)
	}
}

func TestConcurrentExpirySharesOneReconnect(t *testing.T) {
	const callers = 8

	d := &fakeDispatcher{failures: callers, err: errExpired}
	sess := &fakeSession{loginBlock: make(chan struct{})}
	c := newResilience(NopLogger(), sess, d)

	var wg sync.WaitGroup
	results := make([]error, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, results[i] = c.Call(context.Background(), "lock", nil)
		}()
	}

	// Hold the leader's login open until every caller has failed its first
	// dispatch and had time to join the in-flight reconnect.
	for {
		d.mu.Lock()
		n := len(d.calls)
		d.mu.Unlock()

		if n >= callers {
			break
		}

		time.Sleep(time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	close(sess.loginBlock)
	wg.Wait()

	for i, err := range results {
		require.NoError(t, err, "caller %d", i)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	require.Equal(t, 1, sess.logins, "concurrent expiry must share a single reconnect")
	require.Equal(t, 1, sess.drops)
}
