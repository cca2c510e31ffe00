package identity

import (
	"net"
	"net/http"
	"net/url"
	"pixeld/internal/providers"
	"strings"
	"time"
)

const (
	expirySuffix = "_exp"
	sameSiteLax  = "Lax"
)

// CookieJar is the cookie half of the storage substrate. Implementations sit
// on top of whatever the deployment offers (HTTP request/response headers,
// an in-memory jar in tests).
type CookieJar interface {
	Get(name string) (string, error)
	Set(name, value string, expires time.Time, sameSite, domain string) error
	Enabled() bool
}

// LocalStore is the local-storage half: a flat string key/value store.
// Expiry is layered on top by the accessor via <key>_exp sibling entries.
type LocalStore interface {
	GetItem(name string) (string, error)
	SetItem(name, value string) error
	RemoveItem(name string) error
}

// Accessor implements the stored-entry semantics shared by the beacon
// controller and the resolver: cookie-then-local-store lookup, expiry
// sidecar handling, and the domain-walking cookie write. Storage faults are
// logged and degrade to "value absent" / "write skipped"; they never
// propagate to the caller.
type Accessor struct {
	jar      CookieJar
	store    LocalStore
	hostname string
	logger   providers.Logger

	// OnError, when set, is invoked with the failed operation name for each
	// swallowed storage error.
	OnError func(op string)

	now func() time.Time
}

func NewAccessor(jar CookieJar, store LocalStore, hostname string, logger providers.Logger) *Accessor {
	return &Accessor{
		jar:      jar,
		store:    store,
		hostname: hostname,
		logger:   logger,
		now:      time.Now,
	}
}

// Get performs the generic identifier lookup: the cookie store first, the
// local store when the cookie is empty or absent.
func (a *Accessor) Get(name string) string {
	if v := a.cookie(name); v != "" {
		return v
	}
	return a.localItem(name)
}

// GetFrom reads from a single configured backend. The durable identifier is
// bound to one storage type and must never leak in from the other.
func (a *Accessor) GetFrom(storageType, name string) string {
	if storageType == StorageHTML5 {
		return a.localItem(name)
	}
	return a.cookie(name)
}

// Put writes the value into the configured backend with the given expiry.
// Every write refreshes the expiry window, whether the value is new or a
// re-read of an existing one.
func (a *Accessor) Put(storageType, name, value string, expires time.Time) {
	if storageType == StorageHTML5 {
		a.putLocal(name, value, expires)
		return
	}
	a.putCookie(name, value, expires)
}

func (a *Accessor) cookie(name string) string {
	v, err := a.jar.Get(name)
	if err != nil {
		a.fail("cookie_read", err)
		return ""
	}
	return v
}

func (a *Accessor) localItem(name string) string {
	exp, err := a.store.GetItem(name + expirySuffix)
	if err != nil {
		a.fail("local_read", err)
		return ""
	}
	// An empty expiry marker means the entry never expires. A past expiry
	// makes the value absent without deleting it. An unparseable expiry is
	// ignored, matching a NaN date comparison.
	if exp != "" {
		if t, perr := time.Parse(http.TimeFormat, exp); perr == nil && t.Before(a.now()) {
			return ""
		}
	}

	v, err := a.store.GetItem(name)
	if err != nil {
		a.fail("local_read", err)
		return ""
	}
	if dec, derr := url.QueryUnescape(v); derr == nil {
		return dec
	}
	return v
}

func (a *Accessor) putLocal(name, value string, expires time.Time) {
	if err := a.store.SetItem(name+expirySuffix, expires.UTC().Format(http.TimeFormat)); err != nil {
		a.fail("local_write", err)
		return
	}
	if err := a.store.SetItem(name, url.QueryEscape(value)); err != nil {
		a.fail("local_write", err)
	}
}

// putCookie attempts the write at the apex domain first and walks down the
// label combinations until a read-back returns the written value. A cookie
// accepted on too broad a domain is silently dropped by the jar, so only the
// read-back counts as success.
func (a *Accessor) putCookie(name, value string, expires time.Time) {
	if !a.jar.Enabled() {
		return
	}
	for _, domain := range domainCandidates(a.hostname) {
		if err := a.jar.Set(name, value, expires, sameSiteLax, domain); err != nil {
			a.fail("cookie_write", err)
			continue
		}
		if got, err := a.jar.Get(name); err == nil && got == value {
			return
		}
	}
}

func (a *Accessor) fail(op string, err error) {
	a.logger.Errorf(providers.TypeStorage, "storage %s failed: %s", op, err)
	if a.OnError != nil {
		a.OnError(op)
	}
}

// domainCandidates lists cookie domains from the apex down to the full
// hostname. Bare hosts and IP literals get a single candidate.
func domainCandidates(hostname string) []string {
	if hostname == "" || net.ParseIP(hostname) != nil {
		return []string{hostname}
	}
	labels := strings.Split(hostname, ".")
	if len(labels) <= 2 {
		return []string{hostname}
	}
	out := make([]string, 0, len(labels)-1)
	for i := len(labels) - 2; i >= 0; i-- {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}
