package controllers

import (
	"net/http"
	"net/url"
	"pixeld/internal/identity"
	"pixeld/internal/persistence/interfaces"
	"pixeld/internal/providers"
	"pixeld/internal/services"
	"pixeld/internal/structures"
	"strconv"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type TrackController struct {
	conf      *structures.Config
	logger    providers.Logger
	service   services.SessionServiceInterface
	archive   interfaces.ArchiveInterface
	transport providers.TransportProviderInterface
	metrics   providers.MetricsProviderInterface
}

func NewTrackController(conf *structures.Config, logger providers.Logger, service services.SessionServiceInterface, archive interfaces.ArchiveInterface, transport providers.TransportProviderInterface, metrics providers.MetricsProviderInterface) *TrackController {
	return &TrackController{
		conf:      conf,
		logger:    logger,
		service:   service,
		archive:   archive,
		transport: transport,
		metrics:   metrics,
	}
}

type pagePayload struct {
	URL      string `json:"url"`
	Referrer string `json:"referrer"`
	InFrame  bool   `json:"in_frame"`
}

type consentPayload struct {
	GDPRApplies   bool            `json:"gdpr_applies"`
	ConsentString string          `json:"consent_string"`
	Purposes      map[string]bool `json:"purposes"`
}

type trackPayload struct {
	Session        string          `json:"session"`
	Config         any             `json:"config"`
	Page           pagePayload     `json:"page"`
	Consent        *consentPayload `json:"consent"`
	CookiesEnabled *bool           `json:"cookies_enabled"`
}

type trackResponse struct {
	Outcome   string `json:"outcome"`
	Duid      string `json:"duid,omitempty"`
	Generated bool   `json:"generated,omitempty"`
	URL       string `json:"url,omitempty"`
}

func outcomeString(o identity.Outcome) string {
	switch o {
	case identity.OutcomeFired:
		return "fired"
	case identity.OutcomeConsentDenied:
		return "consent_denied"
	default:
		return "already_fired"
	}
}

func toConsentData(p *consentPayload) *identity.ConsentData {
	if p == nil {
		return nil
	}
	purposes := make(map[int]bool, len(p.Purposes))
	for k, v := range p.Purposes {
		if n, err := strconv.Atoi(k); err == nil {
			purposes[n] = v
		}
	}
	return &identity.ConsentData{
		GDPRApplies:   p.GDPRApplies,
		ConsentString: p.ConsentString,
		Purposes:      purposes,
	}
}

// restoreSession brings an archived session back before it is touched, so a
// returning device keeps its durable identifier instead of minting a new one.
func restoreSession(service services.SessionServiceInterface, archive interfaces.ArchiveInterface, id string) {
	if service.Has(id) {
		return
	}
	if data, ok := archive.Restore(id); ok {
		service.Restore(id, data)
	}
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Track runs one page-load invocation through the hook chain: consent
// normalization, the beacon controller, then dispatch. The beacon hook is
// registered between the other two, which is the ordering contract the
// firing gate relies on.
func (tc *TrackController) Track(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload trackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if payload.Session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	restoreSession(tc.service, tc.archive, payload.Session)

	cookiesEnabled := payload.CookiesEnabled == nil || *payload.CookiesEnabled
	jar := newRequestJar(w, r, cookiesEnabled)

	page := identity.PageContext{
		URL:      payload.Page.URL,
		Referrer: payload.Page.Referrer,
		InFrame:  payload.Page.InFrame,
	}

	acc := identity.NewAccessor(jar, tc.service.Store(payload.Session), hostnameOf(page.Resolve()), tc.logger)
	acc.OnError = func(op string) { tc.metrics.IncStorageErrors(op) }

	cfg := identity.ValidateConfig(payload.Config)
	ctrl := identity.NewController(cfg, tc.conf.Tracking.BeaconURL, nil, tc.transport, tc.logger)

	registry := identity.NewRegistry()
	registry.Register(identity.PriorityConsent, func(inv *identity.Invocation) {
		inv.Consent = toConsentData(payload.Consent)
	})
	registry.Register(identity.PriorityTracker, func(inv *identity.Invocation) {
		res := ctrl.Fire(inv.State, inv.Acc, inv.Page, inv.Consent)
		inv.Track = &res
	})
	registry.Register(identity.PriorityDispatch, func(inv *identity.Invocation) {
		tc.logger.Debugf(providers.TypeTrack, "dispatching session %s", payload.Session)
	})

	inv := &identity.Invocation{
		Page:  page,
		State: tc.service.State(payload.Session),
		Acc:   acc,
	}
	registry.Run(inv)

	res := inv.Track
	switch res.Outcome {
	case identity.OutcomeFired:
		tc.metrics.IncPixelsFired()
		if res.Generated {
			tc.metrics.IncDuidsGenerated()
		}
		tc.logger.Infof(providers.TypeTrack, "beacon fired for session %s (duid=%s)", payload.Session, res.DUID)
	case identity.OutcomeConsentDenied:
		tc.metrics.IncConsentDenied()
	}

	resp := trackResponse{
		Outcome:   outcomeString(res.Outcome),
		Duid:      res.DUID,
		Generated: res.Generated,
		URL:       res.URL,
	}
	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// Reset reopens a session's firing gate. Test support: lets an integration
// harness simulate a fresh page lifetime without restarting the daemon.
func (tc *TrackController) Reset(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	if !tc.service.ResetState(id) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
