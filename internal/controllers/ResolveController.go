package controllers

import (
	"net/http"
	"pixeld/internal/identity"
	"pixeld/internal/persistence/interfaces"
	"pixeld/internal/providers"
	"pixeld/internal/services"
	"pixeld/internal/structures"
	"strings"

	json "github.com/goccy/go-json"
)

type ResolveController struct {
	conf      *structures.Config
	logger    providers.Logger
	service   services.SessionServiceInterface
	archive   interfaces.ArchiveInterface
	transport providers.TransportProviderInterface
	cache     providers.CacheProviderInterface
	metrics   providers.MetricsProviderInterface
}

func NewResolveController(conf *structures.Config, logger providers.Logger, service services.SessionServiceInterface, archive interfaces.ArchiveInterface, transport providers.TransportProviderInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface) *ResolveController {
	return &ResolveController{
		conf:      conf,
		logger:    logger,
		service:   service,
		archive:   archive,
		transport: transport,
		cache:     cache,
		metrics:   metrics,
	}
}

// Resolve exchanges the session's stored identifiers for a normalized
// identifier via the remote endpoint. The response is the decoded public
// mapping; "nothing resolved" is a 204, never an error.
func (rc *ResolveController) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	session := q.Get("session")
	if session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	pid := q.Get("pid")

	restoreSession(rc.service, rc.archive, session)

	jar := newRequestJar(w, r, true)
	acc := identity.NewAccessor(jar, rc.service.Store(session), r.Host, rc.logger)
	acc.OnError = func(op string) { rc.metrics.IncStorageErrors(op) }

	var identifiers []string
	if ids := q.Get("ids"); ids != "" {
		identifiers = strings.Split(ids, ",")
	}

	resolver := identity.NewResolver(identity.ResolverConfig{
		PublisherID: pid,
		URL:         rc.conf.Resolver.URL,
		Identifiers: identifiers,
	}, acc, rc.transport, rc.logger)

	if pid != "" {
		if cached, ok := rc.cache.Get(resolver.RequestURL()); ok {
			rc.metrics.IncResolverRequests("cache_hit")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	value, ok := <-resolver.Resolve(r.Context())
	if !ok {
		// Closed without a delivery: the publisher-ID precondition failed
		// and no network call was made.
		rc.metrics.IncResolverRequests("precondition_failed")
		http.Error(w, "pid is required", http.StatusBadRequest)
		return
	}

	decoded := identity.DecodeResolved(value)
	if decoded == nil {
		rc.metrics.IncResolverRequests("no_result")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	gson, err := json.Marshal(decoded)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	rc.cache.Set(resolver.RequestURL(), gson)
	rc.metrics.IncResolverRequests("resolved")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}
