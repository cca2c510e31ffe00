package internal

import (
	"net/http"
	"net/http/httptest"
	"pixeld/internal/controllers"
	"pixeld/internal/models"
	"pixeld/internal/services"
	"pixeld/internal/structures"
	"pixeld/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- minimal archive mock for routes test ---

type routeTestArchive struct{}

func (a *routeTestArchive) Evict(_ string, _ *models.SessionData)       {}
func (a *routeTestArchive) Restore(_ string) (*models.SessionData, bool) { return nil, false }
func (a *routeTestArchive) Flush() error                                 { return nil }
func (a *routeTestArchive) RestoreIndex() error                          { return nil }
func (a *routeTestArchive) Close()                                       {}

func routeTestControllers() (*controllers.TrackController, *controllers.ResolveController) {
	conf := &structures.Config{
		Tracking: structures.TrackingConfig{BeaconURL: "https://px.pixsync.net/p"},
		Resolver: structures.ResolverConfig{URL: "https://idx.pixsync.net"},
	}
	logger := &testutil.MockLogger{}
	service := services.NewSessionService()
	archive := &routeTestArchive{}
	transport := &testutil.MockTransport{}
	metrics := testutil.NewMockMetrics()

	tc := controllers.NewTrackController(conf, logger, service, archive, transport, metrics)
	rc := controllers.NewResolveController(conf, logger, service, archive, transport, testutil.NewMockCache(), metrics)
	return tc, rc
}

func TestInitRoutes_RegistersThreeRoutes(t *testing.T) {
	tc, rc := routeTestControllers()

	router := InitRoutes(tc, rc)
	routes := router.GetRoutes()

	require.Len(t, routes, 3)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/v1/track")
	assert.Contains(t, urls, "/v1/track/reset")
	assert.Contains(t, urls, "/v1/resolve")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	tc, rc := routeTestControllers()

	router := InitRoutes(tc, rc)
	routes := router.GetRoutes()

	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.Url, r.Handler)
	}

	// POST /v1/track with GET should fail
	req := httptest.NewRequest(http.MethodGet, "/v1/track", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// GET /v1/resolve with POST should fail
	req = httptest.NewRequest(http.MethodPost, "/v1/resolve", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
