package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abaplab/adt-mcp/internal/adt"
	"github.com/abaplab/adt-mcp/internal/provider"
)

type fakeProvider struct {
	names    []string
	executed []string
}

func (f *fakeProvider) Tools() []provider.Descriptor {
	out := make([]provider.Descriptor, 0, len(f.names))
	for _, n := range f.names {
		out = append(out, provider.Descriptor{
			Name:        n,
			Description: n,
			InputSchema: provider.EmptySchema(),
		})
	}

	return out
}

func (f *fakeProvider) Execute(_ context.Context, name string, _ map[string]any) (any, error) {
	f.executed = append(f.executed, name)

	return "ok:" + name, nil
}

func TestNewAppendsHealthcheck(t *testing.T) {
	a := &fakeProvider{names: []string{"alpha", "beta"}}
	b := &fakeProvider{names: []string{"gamma"}}

	r, err := New(a, b)
	require.NoError(t, err)

	tools := r.Tools()
	require.Len(t, tools, 4)

	// Provider order is preserved, healthcheck comes last.
	require.Equal(t, "alpha", tools[0].Name)
	require.Equal(t, "beta", tools[1].Name)
	require.Equal(t, "gamma", tools[2].Name)
	require.Equal(t, HealthcheckName, tools[3].Name)
}

func TestNewRejectsDuplicateNames(t *testing.T) {
	a := &fakeProvider{names: []string{"alpha"}}
	b := &fakeProvider{names: []string{"alpha"}}

	_, err := New(a, b)
	require.Error(t, err)
	require.Contains(t, err.Error(), "alpha")
}

func TestDispatchRoutesToOwningProvider(t *testing.T) {
	a := &fakeProvider{names: []string{"alpha"}}
	b := &fakeProvider{names: []string{"beta"}}

	r, err := New(a, b)
	require.NoError(t, err)

	result, err := r.Dispatch(context.Background(), "beta", nil)
	require.NoError(t, err)
	require.Equal(t, "ok:beta", result)
	require.Empty(t, a.executed, "non-owning provider must not be invoked")
	require.Equal(t, []string{"beta"}, b.executed)
}

func TestDispatchUnknownName(t *testing.T) {
	a := &fakeProvider{names: []string{"alpha"}}

	r, err := New(a)
	require.NoError(t, err)

	_, err = r.Dispatch(context.Background(), "notARealOperation", nil)
	require.Error(t, err)

	var adtErr *adt.Error
	require.ErrorAs(t, err, &adtErr)
	require.Equal(t, adt.CodeMethodNotFound, adtErr.Code)
	require.Contains(t, adtErr.Message, "notARealOperation")
	require.Empty(t, a.executed, "no provider may be invoked for unknown names")
}

func TestHealthcheckAlwaysHealthy(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	result, err := r.Dispatch(context.Background(), HealthcheckName, nil)
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "healthy", m["status"])

	ts, ok := m["timestamp"].(string)
	require.True(t, ok)

	_, err = time.Parse(time.RFC3339, ts)
	require.NoError(t, err, "timestamp must be RFC3339")
}
