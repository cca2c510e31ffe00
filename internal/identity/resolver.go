package identity

import (
	"context"
	"net/url"
	"pixeld/internal/providers"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	// DefaultResolverURL is used when the publisher config does not name an
	// identity-resolution endpoint.
	DefaultResolverURL = "https://idx.pixsync.net"

	resolverSourceTag = "pixeld"

	// duidStorageName is the built-in identifier every resolver call carries;
	// it is renamed to the public duid parameter on the wire.
	duidStorageName = "_px_duid"
	duidParamName   = "duid"

	resolvedIDField = "unifiedId"
	outputKey       = "liuid"
)

type ResolverConfig struct {
	PublisherID string
	URL         string
	Identifiers []string
}

// Resolver exchanges known first-party identifiers for a normalized durable
// identifier via the remote idex endpoint.
type Resolver struct {
	cfg       ResolverConfig
	acc       *Accessor
	transport Transport
	logger    providers.Logger
}

func NewResolver(cfg ResolverConfig, acc *Accessor, transport Transport, logger providers.Logger) *Resolver {
	if cfg.URL == "" {
		cfg.URL = DefaultResolverURL
	}
	return &Resolver{
		cfg:       cfg,
		acc:       acc,
		transport: transport,
		logger:    logger,
	}
}

// Resolve issues the identity-resolution GET and delivers exactly one value
// on the returned channel before closing it. Every failure mode — missing
// publisher ID, transport error, empty body, malformed JSON — resolves to a
// nil delivery, never an error. A missing publisher ID additionally skips
// the network call entirely.
func (r *Resolver) Resolve(ctx context.Context) <-chan map[string]any {
	out := make(chan map[string]any, 1)

	if r.cfg.PublisherID == "" {
		r.logger.Errorf(providers.TypeResolve, "identity resolution requires a publisher ID")
		close(out)
		return out
	}

	reqURL := r.RequestURL()
	go func() {
		defer close(out)

		body, err := r.transport.Ajax(ctx, reqURL)
		if err != nil {
			r.logger.Errorf(providers.TypeResolve, "resolution call failed: %s", err)
			out <- nil
			return
		}
		if len(body) == 0 {
			out <- nil
			return
		}

		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil {
			r.logger.Errorf(providers.TypeResolve, "malformed resolution response: %s", err)
			out <- nil
			return
		}
		out <- obj
	}()

	return out
}

// RequestURL builds the outbound resolver URL from the configured identifier
// names plus the built-in duid entry, each read from cookie-then-local-store.
// The URL doubles as the response cache key.
func (r *Resolver) RequestURL() string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(r.cfg.URL, "/"))
	b.WriteString("/idex/")
	b.WriteString(resolverSourceTag)
	b.WriteString("/")
	b.WriteString(url.PathEscape(r.cfg.PublisherID))

	first := true
	appendPair := func(name, value string) {
		if first {
			b.WriteString("?")
			first = false
		} else {
			b.WriteString("&")
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(value))
	}

	for _, name := range r.cfg.Identifiers {
		if v := r.acc.Get(name); v != "" {
			appendPair(name, v)
		}
	}
	if v := r.acc.Get(duidStorageName); v != "" {
		appendPair(duidParamName, v)
	}

	return b.String()
}

// DecodeResolved maps a resolved value object onto the public output shape.
// When the identifier field is missing or not a string there is no output,
// which callers treat as "nothing resolved" rather than an error.
func DecodeResolved(value map[string]any) map[string]string {
	if value == nil {
		return nil
	}
	s, ok := value[resolvedIDField].(string)
	if !ok {
		return nil
	}
	return map[string]string{outputKey: s}
}
