package identity

// ConsentData is a snapshot of the consent state supplied by the host at
// invocation time. It is evaluated once per beacon attempt and never stored.
type ConsentData struct {
	GDPRApplies   bool
	ConsentString string
	Purposes      map[int]bool
}

// Predicate decides whether data processing is permitted for the tracking
// purpose. The outcome is strictly binary; there is no "unknown" branch.
type Predicate func(*ConsentData) bool

const purposeStorageAccess = 1

// DefaultPredicate permits processing when GDPR does not apply, or when the
// storage-access purpose has been granted. A nil snapshot means no consent
// framework is in play.
func DefaultPredicate(c *ConsentData) bool {
	if c == nil || !c.GDPRApplies {
		return true
	}
	return c.Purposes[purposeStorageAccess]
}
