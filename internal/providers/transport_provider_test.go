package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"pixeld/internal/structures"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportConfig() *structures.Config {
	return &structures.Config{
		Resolver: structures.ResolverConfig{Timeout: 2 * time.Second},
	}
}

func TestTriggerPixel_HitsEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	tp.TriggerPixel(srv.URL + "/p?duid=x")

	assert.Eventually(t, func() bool {
		return hits.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTriggerPixel_ErrorIsSwallowed(t *testing.T) {
	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		tp.TriggerPixel("http://127.0.0.1:1/unreachable")
		time.Sleep(50 * time.Millisecond)
	})
}

func TestAjax_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unifiedId":"abc"}`))
	}))
	defer srv.Close()

	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	body, err := tp.Ajax(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, `{"unifiedId":"abc"}`, string(body))
}

func TestAjax_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	_, err = tp.Ajax(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestAjax_KeepsCookiesAcrossCalls(t *testing.T) {
	var sawCookie atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sync"); err == nil && c.Value == "1" {
			sawCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: "sync", Value: "1"})
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	_, err = tp.Ajax(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = tp.Ajax(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, sawCookie.Load(), "second call should carry the cookie back")
}

func TestAjax_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	tp, err := NewTransportProvider(transportConfig(), &testLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = tp.Ajax(ctx, srv.URL)
	assert.Error(t, err)
}
