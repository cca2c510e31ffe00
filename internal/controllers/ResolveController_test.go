package controllers

import (
	"net/http"
	"net/http/httptest"
	"pixeld/internal/services"
	"pixeld/internal/structures"
	"pixeld/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveControllerFixture struct {
	controller *ResolveController
	service    services.SessionServiceInterface
	archive    *testArchive
	transport  *testutil.MockTransport
	cache      *testutil.MockCache
	metrics    *testutil.MockMetrics
}

func newResolveControllerFixture() *resolveControllerFixture {
	conf := &structures.Config{
		Resolver: structures.ResolverConfig{URL: "https://idx.example.net"},
	}
	service := services.NewSessionService()
	archive := newTestArchive()
	transport := &testutil.MockTransport{}
	cache := testutil.NewMockCache()
	metrics := testutil.NewMockMetrics()
	return &resolveControllerFixture{
		controller: NewResolveController(conf, &testutil.MockLogger{}, service, archive, transport, cache, metrics),
		service:    service,
		archive:    archive,
		transport:  transport,
		cache:      cache,
		metrics:    metrics,
	}
}

func (f *resolveControllerFixture) resolve(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	f.controller.Resolve(rr, req)
	return rr
}

func TestResolve_MissingSession(t *testing.T) {
	f := newResolveControllerFixture()
	rr := f.resolve("/v1/resolve?pid=pub-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestResolve_MissingPid(t *testing.T) {
	f := newResolveControllerFixture()
	rr := f.resolve("/v1/resolve?session=dev-1")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, f.transport.AjaxCalls)
	assert.Equal(t, 1, f.metrics.ResolverRequests["precondition_failed"])
}

func TestResolve_Success(t *testing.T) {
	f := newResolveControllerFixture()
	f.transport.AjaxResponse = []byte(`{"unifiedId":"abc"}`)

	rr := f.resolve("/v1/resolve?session=dev-1&pid=pub-1")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"liuid":"abc"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Len(t, f.transport.AjaxCalls, 1)
	assert.Contains(t, f.transport.AjaxCalls[0], "https://idx.example.net/idex/pixeld/pub-1")
	assert.Equal(t, 1, f.metrics.ResolverRequests["resolved"])
}

func TestResolve_SecondCallServedFromCache(t *testing.T) {
	f := newResolveControllerFixture()
	f.transport.AjaxResponse = []byte(`{"unifiedId":"abc"}`)

	first := f.resolve("/v1/resolve?session=dev-1&pid=pub-1")
	require.Equal(t, http.StatusOK, first.Code)

	second := f.resolve("/v1/resolve?session=dev-1&pid=pub-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"liuid":"abc"}`, second.Body.String())

	assert.Len(t, f.transport.AjaxCalls, 1, "cache hit must not reach the network")
	assert.Equal(t, 1, f.metrics.ResolverRequests["cache_hit"])
}

func TestResolve_NoResult(t *testing.T) {
	f := newResolveControllerFixture()
	f.transport.AjaxResponse = []byte(`{"other":"x"}`)

	rr := f.resolve("/v1/resolve?session=dev-1&pid=pub-1")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, 1, f.metrics.ResolverRequests["no_result"])
	assert.Empty(t, f.cache.Data, "non-results are not cached")
}

func TestResolve_EmptyBodyIsNoResult(t *testing.T) {
	f := newResolveControllerFixture()

	rr := f.resolve("/v1/resolve?session=dev-1&pid=pub-1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestResolve_ForwardsStoredIdentifiers(t *testing.T) {
	f := newResolveControllerFixture()
	f.transport.AjaxResponse = []byte(`{"unifiedId":"abc"}`)

	rr := f.resolve("/v1/resolve?session=dev-1&pid=pub-1&ids=_ga,tluid",
		&http.Cookie{Name: "_ga", Value: "GA1.2.3"},
		&http.Cookie{Name: "_px_duid", Value: "duid-7"})

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.transport.AjaxCalls, 1)
	assert.Contains(t, f.transport.AjaxCalls[0], "_ga=GA1.2.3")
	assert.Contains(t, f.transport.AjaxCalls[0], "duid=duid-7")
	assert.NotContains(t, f.transport.AjaxCalls[0], "tluid", "absent identifiers stay off the wire")
}

func TestResolve_ReadsRestoredSessionEntries(t *testing.T) {
	f := newResolveControllerFixture()
	f.transport.AjaxResponse = []byte(`{"unifiedId":"abc"}`)
	f.service.Store("dev-1").SetItem("tluid", "t9")

	rr := f.resolve("/v1/resolve?session=dev-1&pid=pub-1&ids=tluid")

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.transport.AjaxCalls, 1)
	assert.Contains(t, f.transport.AjaxCalls[0], "tluid=t9")
}
