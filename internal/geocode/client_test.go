package geocode_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-tracker/internal/domain"
	"github.com/pkordes/mileage-tracker/internal/geocode"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *geocode.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := geocode.NewClient(srv.URL, "test-key", time.Second)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := geocode.NewClient("", "", time.Second)
	assert.Error(t, err)
}

func TestClient_Resolve_OK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "51.5007,-0.1246", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Westminster, London SW1A 0AA, UK"},{"formatted_address":"London, UK"}]}`))
	})

	got, err := c.Resolve(context.Background(), 51.5007, -0.1246)

	require.NoError(t, err)
	assert.Equal(t, "Westminster, London SW1A 0AA, UK", got)
}

func TestClient_Resolve_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	got, err := c.Resolve(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Equal(t, geocode.NoAddressFound, got)
}

func TestClient_Resolve_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	})

	_, err := c.Resolve(context.Background(), 1, 1)

	assert.ErrorIs(t, err, domain.ErrAddressResolution)
	assert.ErrorContains(t, err, "REQUEST_DENIED")
}

func TestClient_Resolve_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Resolve(context.Background(), 1, 1)

	assert.ErrorIs(t, err, domain.ErrAddressResolution)
}

type resolverFunc func(ctx context.Context, lat, lng float64) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}

func TestLoader_NotReadyBeforeLoad(t *testing.T) {
	l := geocode.NewLoader(func(context.Context) (geocode.Resolver, error) {
		return resolverFunc(func(context.Context, float64, float64) (string, error) { return "x", nil }), nil
	})

	assert.False(t, l.Ready())
	_, err := l.Resolve(context.Background(), 0, 0)
	assert.ErrorIs(t, err, domain.ErrResolverUnavailable)
}

func TestLoader_InitializesOnce(t *testing.T) {
	calls := 0
	l := geocode.NewLoader(func(context.Context) (geocode.Resolver, error) {
		calls++
		return resolverFunc(func(context.Context, float64, float64) (string, error) { return "Somewhere", nil }), nil
	})

	require.NoError(t, l.Load(context.Background()))
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, 1, calls)
	assert.True(t, l.Ready())
	got, err := l.Resolve(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", got)
}

func TestLoader_FailedInitStaysUnavailable(t *testing.T) {
	initErr := errors.New("no key")
	l := geocode.NewLoader(func(context.Context) (geocode.Resolver, error) { return nil, initErr })

	assert.ErrorIs(t, l.Load(context.Background()), initErr)
	assert.False(t, l.Ready())
	_, err := l.Resolve(context.Background(), 0, 0)
	assert.ErrorIs(t, err, domain.ErrResolverUnavailable)
}

func TestLoader_LoadRespectsCallerContext(t *testing.T) {
	release := make(chan struct{})
	l := geocode.NewLoader(func(context.Context) (geocode.Resolver, error) {
		<-release
		return resolverFunc(func(context.Context, float64, float64) (string, error) { return "", nil }), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Load(ctx), context.DeadlineExceeded)
	assert.False(t, l.Ready())

	close(release)
	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Ready())
}
