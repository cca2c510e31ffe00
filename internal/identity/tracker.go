package identity

import (
	"context"
	"net/url"
	"pixeld/internal/providers"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// TrackerVersion is the tag reported on every beacon (the tna parameter).
const TrackerVersion = "pixeld-1.4.2"

const (
	durableParam      = "duid"
	versionParam      = "tna"
	pageParam         = "pu"
	providedParam     = "pfpi"
	providedNameParam = "fpn"
	scrapedPrefix     = "ext_"
)

// Transport is what the identity core needs from the outbound HTTP layer:
// a fire-and-forget pixel and a credentialed GET for the resolver.
type Transport interface {
	TriggerPixel(url string)
	Ajax(ctx context.Context, url string) ([]byte, error)
}

// FireState is the per-page-load firing gate. It is owned by the host's
// invocation context and passed into the controller, so independent page
// loads never share hidden state. The transition is strictly one-way;
// Reset exists for test support only.
type FireState struct {
	fired atomic.Bool
}

func NewFireState() *FireState {
	return &FireState{}
}

func (s *FireState) Fired() bool {
	return s.fired.Load()
}

// Claim performs the one-way NOT_FIRED to FIRED transition. Exactly one
// caller gets true; concurrent invocations for the same session lose the
// race and see an already closed gate.
func (s *FireState) Claim() bool {
	return s.fired.CompareAndSwap(false, true)
}

func (s *FireState) MarkFired() {
	s.fired.Store(true)
}

// Reset reopens the gate. Test support only; never called in normal operation.
func (s *FireState) Reset() {
	s.fired.Store(false)
}

// PageContext describes where the page load happened.
type PageContext struct {
	URL      string
	Referrer string
	InFrame  bool
}

// Resolve picks the URL the beacon reports. Inside a nested browsing context
// the top-level location is not the page the user sees, so the referrer of
// that context is used instead.
func (p PageContext) Resolve() string {
	if p.InFrame {
		return p.Referrer
	}
	return p.URL
}

type Outcome int

const (
	OutcomeAlreadyFired Outcome = iota
	OutcomeConsentDenied
	OutcomeFired
)

// Result reports what a Fire call did, so the host layer can log and meter
// without the core depending on it.
type Result struct {
	Outcome   Outcome
	DUID      string
	Generated bool
	URL       string
}

// Controller owns the tracking-beacon lifecycle: consent gating, durable
// identifier resolution and the single beacon emission per page load.
type Controller struct {
	cfg       Config
	baseURL   string
	version   string
	predicate Predicate
	transport Transport
	logger    providers.Logger
}

func NewController(cfg Config, baseURL string, predicate Predicate, transport Transport, logger providers.Logger) *Controller {
	if predicate == nil {
		predicate = DefaultPredicate
	}
	return &Controller{
		cfg:       cfg,
		baseURL:   baseURL,
		version:   TrackerVersion,
		predicate: predicate,
		transport: transport,
		logger:    logger,
	}
}

// Fire runs the at-most-once beacon emission for one page load. The gate is
// claimed up front, so concurrent invocations for the same session resolve
// to exactly one emission; every loser reports already-fired.
//
// A denied consent check still closes the gate: consent is evaluated exactly
// once per page load, and a later flip within the same load is deliberately
// not retried.
func (c *Controller) Fire(state *FireState, acc *Accessor, page PageContext, consent *ConsentData) Result {
	if !state.Claim() {
		return Result{Outcome: OutcomeAlreadyFired}
	}

	if !c.predicate(consent) {
		c.logger.Debugf(providers.TypeTrack, "beacon suppressed: consent denied")
		return Result{Outcome: OutcomeConsentDenied}
	}

	duid, generated := c.resolveDurableID(acc)
	beacon := c.beaconURL(duid, acc, page)
	c.transport.TriggerPixel(beacon)

	return Result{
		Outcome:   OutcomeFired,
		DUID:      duid,
		Generated: generated,
		URL:       beacon,
	}
}

// resolveDurableID reads the identifier from the configured backend only,
// generating a fresh token when none is live. The write-back happens on
// every resolution so the expiry window rolls forward with each page load.
func (c *Controller) resolveDurableID(acc *Accessor) (string, bool) {
	st := c.cfg.Storage
	duid := acc.GetFrom(st.Type, st.Name)
	generated := false
	if duid == "" {
		duid = NewDUID()
		generated = true
	}
	expires := time.Now().Add(time.Duration(st.Expires) * 24 * time.Hour)
	acc.Put(st.Type, st.Name, duid, expires)
	return duid, generated
}

func (c *Controller) beaconURL(duid string, acc *Accessor, page PageContext) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("?" + durableParam + "=")
	b.WriteString(url.QueryEscape(duid))
	b.WriteString("&" + versionParam + "=")
	b.WriteString(url.QueryEscape(c.version))
	b.WriteString("&" + pageParam + "=")
	b.WriteString(url.QueryEscape(page.Resolve()))

	if name := c.cfg.ProvidedIdentifier; name != "" {
		if v := acc.Get(name); v != "" {
			b.WriteString("&" + providedParam + "=")
			b.WriteString(url.QueryEscape(v))
			b.WriteString("&" + providedNameParam + "=")
			b.WriteString(url.QueryEscape(name))
		}
	}

	for _, name := range c.cfg.Identifiers {
		v := acc.Get(name)
		if v == "" {
			continue
		}
		b.WriteString("&" + scrapedPrefix)
		b.WriteString(url.QueryEscape(name))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(v))
	}

	return b.String()
}
