package identity

import (
	"net/http"
	"net/url"
	"pixeld/internal/testutil"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBeaconURL = "https://px.pixsync.net/p"

type trackerFixture struct {
	jar       *testutil.MemoryJar
	store     *testutil.MemoryStore
	transport *testutil.MockTransport
	acc       *Accessor
	state     *FireState
}

func newTrackerFixture() *trackerFixture {
	jar := testutil.NewMemoryJar()
	store := testutil.NewMemoryStore()
	return &trackerFixture{
		jar:       jar,
		store:     store,
		transport: &testutil.MockTransport{},
		acc:       NewAccessor(jar, store, "example.com", &testutil.MockLogger{}),
		state:     NewFireState(),
	}
}

func (f *trackerFixture) controller(cfg Config, predicate Predicate) *Controller {
	return NewController(cfg, testBeaconURL, predicate, f.transport, &testutil.MockLogger{})
}

func TestFire_EmitsOnce(t *testing.T) {
	f := newTrackerFixture()
	c := f.controller(DefaultConfig(), nil)
	page := PageContext{URL: "https://pub.example.com/article"}

	res := c.Fire(f.state, f.acc, page, nil)

	assert.Equal(t, OutcomeFired, res.Outcome)
	assert.True(t, res.Generated)
	assert.Len(t, res.DUID, 26)
	require.Len(t, f.transport.Pixels, 1)
	assert.Equal(t, res.URL, f.transport.Pixels[0])
	assert.True(t, f.state.Fired())
}

func TestFire_SecondCallIsNoOp(t *testing.T) {
	f := newTrackerFixture()
	c := f.controller(DefaultConfig(), nil)
	page := PageContext{URL: "https://pub.example.com/article"}

	c.Fire(f.state, f.acc, page, nil)
	writesAfterFirst := len(f.jar.SetCalls)

	res := c.Fire(f.state, f.acc, page, nil)

	assert.Equal(t, OutcomeAlreadyFired, res.Outcome)
	assert.Len(t, f.transport.Pixels, 1)
	assert.Len(t, f.jar.SetCalls, writesAfterFirst)
}

func TestFire_ConcurrentCallsEmitOnce(t *testing.T) {
	f := newTrackerFixture()
	c := f.controller(DefaultConfig(), nil)
	page := PageContext{URL: "https://pub.example.com/article"}

	const callers = 16
	start := make(chan struct{})
	outcomes := make(chan Outcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			outcomes <- c.Fire(f.state, f.acc, page, nil).Outcome
		}()
	}
	close(start)
	wg.Wait()
	close(outcomes)

	fired := 0
	for o := range outcomes {
		if o == OutcomeFired {
			fired++
		}
	}
	assert.Equal(t, 1, fired, "exactly one caller may win the gate")
	assert.Equal(t, 1, f.transport.PixelCount())
	assert.True(t, f.state.Fired())
}

func TestFireState_ClaimIsOneWay(t *testing.T) {
	s := NewFireState()

	assert.True(t, s.Claim())
	assert.False(t, s.Claim())
	assert.True(t, s.Fired())

	s.Reset()
	assert.True(t, s.Claim())
}

func TestFire_ConsentDeniedClosesGate(t *testing.T) {
	f := newTrackerFixture()
	c := f.controller(DefaultConfig(), nil)
	page := PageContext{URL: "https://pub.example.com/article"}
	denied := &ConsentData{GDPRApplies: true, Purposes: map[int]bool{1: false}}

	res := c.Fire(f.state, f.acc, page, denied)

	assert.Equal(t, OutcomeConsentDenied, res.Outcome)
	assert.Empty(t, f.transport.Pixels)
	assert.Empty(t, f.jar.SetCalls)
	assert.Equal(t, 0, f.store.SetCalls)
	assert.True(t, f.state.Fired())

	// A later flip within the same page load is not retried.
	granted := &ConsentData{GDPRApplies: true, Purposes: map[int]bool{1: true}}
	res = c.Fire(f.state, f.acc, page, granted)
	assert.Equal(t, OutcomeAlreadyFired, res.Outcome)
	assert.Empty(t, f.transport.Pixels)
}

func TestFire_ReusesExistingDurableID(t *testing.T) {
	f := newTrackerFixture()
	f.jar.Cookies[DefaultStorageName] = "existing-id"
	c := f.controller(DefaultConfig(), nil)

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)

	assert.Equal(t, "existing-id", res.DUID)
	assert.False(t, res.Generated)
	// The expiry window rolls forward on every fire.
	require.NotEmpty(t, f.jar.SetCalls)
	assert.Equal(t, "existing-id", f.jar.Cookies[DefaultStorageName])
}

func TestFire_HTML5StorageNeverTouchesCookies(t *testing.T) {
	f := newTrackerFixture()
	cfg := DefaultConfig()
	cfg.Storage.Type = StorageHTML5
	c := f.controller(cfg, nil)

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)

	assert.Equal(t, OutcomeFired, res.Outcome)
	assert.Equal(t, 2, f.store.SetCalls)
	assert.Empty(t, f.jar.SetCalls)
	assert.Equal(t, res.DUID, f.store.Data[DefaultStorageName])
	assert.NotEmpty(t, f.store.Data[DefaultStorageName+"_exp"])
}

func TestFire_DurableIDIsBackendBound(t *testing.T) {
	f := newTrackerFixture()
	// An identifier living in the cookie jar must not satisfy an html5-bound
	// configuration.
	f.jar.Cookies[DefaultStorageName] = "cookie-resident"
	cfg := DefaultConfig()
	cfg.Storage.Type = StorageHTML5
	c := f.controller(cfg, nil)

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)

	assert.True(t, res.Generated)
	assert.NotEqual(t, "cookie-resident", res.DUID)
}

func TestFire_BeaconURLShape(t *testing.T) {
	f := newTrackerFixture()
	f.jar.Cookies[DefaultStorageName] = "duid-1"
	f.jar.Cookies["pubcid"] = "pub-7"
	f.jar.Cookies["_ga"] = "GA1.2.3"
	f.store.Data["tluid"] = "t9"

	cfg := DefaultConfig()
	cfg.ProvidedIdentifier = "pubcid"
	cfg.Identifiers = []string{"_ga", "tluid", "missing"}
	c := f.controller(cfg, nil)

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/a?x=1"}, nil)

	expected := testBeaconURL +
		"?duid=duid-1" +
		"&tna=" + url.QueryEscape(TrackerVersion) +
		"&pu=" + url.QueryEscape("https://pub.example.com/a?x=1") +
		"&pfpi=pub-7&fpn=pubcid" +
		"&ext__ga=" + url.QueryEscape("GA1.2.3") +
		"&ext_tluid=t9"
	assert.Equal(t, expected, res.URL)
}

func TestFire_OmitsAbsentOptionalParams(t *testing.T) {
	f := newTrackerFixture()
	cfg := DefaultConfig()
	cfg.ProvidedIdentifier = "pubcid" // configured but not present in storage
	c := f.controller(cfg, nil)

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)

	assert.NotContains(t, res.URL, "pfpi=")
	assert.NotContains(t, res.URL, "fpn=")
	assert.NotContains(t, res.URL, "ext_")
}

func TestFire_FrameUsesReferrer(t *testing.T) {
	f := newTrackerFixture()
	c := f.controller(DefaultConfig(), nil)
	page := PageContext{
		URL:      "https://ad-frame.example.net/slot",
		Referrer: "https://pub.example.com/article",
		InFrame:  true,
	}

	res := c.Fire(f.state, f.acc, page, nil)

	assert.Contains(t, res.URL, "pu="+url.QueryEscape("https://pub.example.com/article"))
}

func TestFire_CustomPredicate(t *testing.T) {
	f := newTrackerFixture()
	called := false
	c := f.controller(DefaultConfig(), func(c *ConsentData) bool {
		called = true
		return false
	})

	res := c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)

	assert.True(t, called)
	assert.Equal(t, OutcomeConsentDenied, res.Outcome)
}

func TestFire_ExpiryWindowFromConfig(t *testing.T) {
	f := newTrackerFixture()
	cfg := DefaultConfig()
	cfg.Storage.Type = StorageHTML5
	cfg.Storage.Expires = 10
	c := f.controller(cfg, nil)

	before := time.Now().Add(10 * 24 * time.Hour).Add(-time.Minute)
	c.Fire(f.state, f.acc, PageContext{URL: "https://pub.example.com/"}, nil)
	after := time.Now().Add(10 * 24 * time.Hour).Add(time.Minute)

	raw := f.store.Data[DefaultStorageName+"_exp"]
	exp, err := time.Parse(http.TimeFormat, raw)
	require.NoError(t, err)
	assert.True(t, exp.After(before) && exp.Before(after), "expiry %s outside 10-day window", exp)
}

func TestDefaultPredicate(t *testing.T) {
	assert.True(t, DefaultPredicate(nil))
	assert.True(t, DefaultPredicate(&ConsentData{GDPRApplies: false}))
	assert.True(t, DefaultPredicate(&ConsentData{GDPRApplies: true, Purposes: map[int]bool{1: true}}))
	assert.False(t, DefaultPredicate(&ConsentData{GDPRApplies: true, Purposes: map[int]bool{1: false}}))
	assert.False(t, DefaultPredicate(&ConsentData{GDPRApplies: true}))
}

func TestNewDUID_Shape(t *testing.T) {
	a := NewDUID()
	b := NewDUID()

	assert.Len(t, a, 26)
	assert.Len(t, b, 26)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToUpper(a), a)
}
