package identity

import "github.com/spf13/cast"

const (
	StorageCookie = "cookie"
	StorageHTML5  = "html5"

	// DefaultStorageName is where the tracking beacon keeps its durable
	// identifier when the publisher config does not override it.
	DefaultStorageName = "_px_fpi"
	DefaultExpiresDays = 730
)

type StorageConfig struct {
	Type    string
	Name    string
	Expires int // days
}

// Config is the fully-defaulted form of an untrusted per-publisher module
// configuration.
type Config struct {
	// Identifiers are names of values scraped from existing storage and
	// forwarded on the beacon with the ext_ prefix.
	Identifiers []string
	// ProvidedIdentifier is the publisher-supplied first-party identifier
	// name; empty means none configured.
	ProvidedIdentifier string
	Storage            StorageConfig
}

func DefaultConfig() Config {
	return Config{
		Identifiers: []string{},
		Storage: StorageConfig{
			Type:    StorageCookie,
			Name:    DefaultStorageName,
			Expires: DefaultExpiresDays,
		},
	}
}

// ValidateConfig normalizes raw publisher configuration. It never fails:
// every field is checked independently and silently replaced with its default
// when absent or malformed. A non-map config is equivalent to an empty one.
func ValidateConfig(raw any) Config {
	cfg := DefaultConfig()

	m, ok := raw.(map[string]any)
	if !ok {
		return cfg
	}

	if ids, ok := stringList(m["identifiers"]); ok {
		cfg.Identifiers = ids
	}
	if name, ok := m["providedIdentifierName"].(string); ok && name != "" {
		cfg.ProvidedIdentifier = name
	}

	// The storage sub-object is only inspected when it is itself a plain
	// key-value object; each of its fields defaults independently.
	if st, ok := m["storage"].(map[string]any); ok {
		if t, ok := st["type"].(string); ok && (t == StorageCookie || t == StorageHTML5) {
			cfg.Storage.Type = t
		}
		if n, ok := st["name"].(string); ok && n != "" {
			cfg.Storage.Name = n
		}
		if st["expires"] != nil {
			if days, err := cast.ToIntE(st["expires"]); err == nil && days > 0 {
				cfg.Storage.Expires = days
			}
		}
	}

	return cfg
}

func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
