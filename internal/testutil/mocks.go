package testutil

import (
	"context"
	"pixeld/internal/providers"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Errors returns the number of error-level entries recorded.
func (m *MockLogger) Errors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == "error" {
			n++
		}
	}
	return n
}

// MemoryJar implements identity.CookieJar with injectable browser behavior:
// domains that silently reject writes, disabled cookies, plain failures.
type MemoryJar struct {
	mu            sync.Mutex
	Cookies       map[string]string
	Domains       map[string]string // name → domain the cookie stuck at
	SetCalls      []string          // domains attempted, in order
	RejectDomains map[string]bool
	Disabled      bool
	GetErr        error
	SetErr        error
}

func NewMemoryJar() *MemoryJar {
	return &MemoryJar{
		Cookies:       make(map[string]string),
		Domains:       make(map[string]string),
		RejectDomains: make(map[string]bool),
	}
}

func (j *MemoryJar) Get(name string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.GetErr != nil {
		return "", j.GetErr
	}
	return j.Cookies[name], nil
}

func (j *MemoryJar) Set(name, value string, _ time.Time, _, domain string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.SetCalls = append(j.SetCalls, domain)
	if j.SetErr != nil {
		return j.SetErr
	}
	if j.RejectDomains[domain] {
		// The browser analog: the write is accepted but never lands.
		return nil
	}
	j.Cookies[name] = value
	j.Domains[name] = domain
	return nil
}

func (j *MemoryJar) Enabled() bool {
	return !j.Disabled
}

// MemoryStore implements identity.LocalStore with failure injection.
type MemoryStore struct {
	mu       sync.Mutex
	Data     map[string]string
	SetCalls int
	GetErr   error
	SetErr   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Data: make(map[string]string)}
}

func (s *MemoryStore) GetItem(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return "", s.GetErr
	}
	return s.Data[name], nil
}

func (s *MemoryStore) SetItem(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetCalls++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.Data[name] = value
	return nil
}

func (s *MemoryStore) RemoveItem(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Data, name)
	return nil
}

// MockTransport implements identity.Transport and records emissions.
type MockTransport struct {
	mu           sync.Mutex
	Pixels       []string
	AjaxCalls    []string
	AjaxResponse []byte
	AjaxErr      error
}

func (t *MockTransport) TriggerPixel(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Pixels = append(t.Pixels, url)
}

func (t *MockTransport) Ajax(_ context.Context, url string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.AjaxCalls = append(t.AjaxCalls, url)
	if t.AjaxErr != nil {
		return nil, t.AjaxErr
	}
	return t.AjaxResponse, nil
}

// PixelCount is a race-safe accessor for tests polling the fire-and-forget path.
func (t *MockTransport) PixelCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Pixels)
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu               sync.Mutex
	Requests         int
	CacheHits        int
	CacheMisses      int
	PixelsFired      int
	ConsentDenied    int
	DuidsGenerated   int
	StorageErrors    map[string]int
	ResolverRequests map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		StorageErrors:    make(map[string]int),
		ResolverRequests: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncPixelsFired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PixelsFired++
}
func (m *MockMetrics) IncConsentDenied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConsentDenied++
}
func (m *MockMetrics) IncDuidsGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuidsGenerated++
}
func (m *MockMetrics) IncStorageErrors(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StorageErrors[op]++
}
func (m *MockMetrics) IncResolverRequests(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolverRequests[outcome]++
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {}
func (m *MockMetrics) RegisterSessionsGauge(_ func() float64)     {}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}
