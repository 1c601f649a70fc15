package chaos

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, tr *Transport, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return (&http.Client{Transport: tr}).Do(req)
}

func TestUnaffectedRequestsPassThrough(t *testing.T) {
	srv := newUpstream(t)
	tr := NewTransport(nil, Faults{BlastRadius: 0.5})
	tr.roll = func() float64 { return 0.9 }

	resp, err := get(t, tr, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, tr.Injected())
}

func TestInjectedStatus(t *testing.T) {
	srv := newUpstream(t)
	tr := NewTransport(nil, Faults{BlastRadius: 1, StatusCode: http.StatusServiceUnavailable})

	resp, err := get(t, tr, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"message":"chaos: injected 503"}`, string(body))
	assert.Equal(t, 1, tr.Injected())
}

func TestInjectedFailure(t *testing.T) {
	srv := newUpstream(t)
	tr := NewTransport(nil, Faults{BlastRadius: 1})

	_, err := get(t, tr, srv.URL)
	assert.ErrorIs(t, err, ErrInjected)
}

func TestInjectedLatencyHonoursContext(t *testing.T) {
	srv := newUpstream(t)
	tr := NewTransport(nil, Faults{BlastRadius: 1, Latency: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = (&http.Client{Transport: tr}).Do(req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFaultsEnabled(t *testing.T) {
	assert.False(t, Faults{Latency: time.Second}.Enabled())
	assert.True(t, Faults{BlastRadius: 0.1}.Enabled())
}
