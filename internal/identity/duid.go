package identity

import "github.com/oklog/ulid/v2"

// NewDUID generates a fresh durable identifier: a 26-character,
// lexicographically sortable, time-ordered token. Generation only happens
// when no live identifier is found in storage; callers persist the result so
// the same token is reused until its entry expires.
func NewDUID() string {
	return ulid.Make().String()
}
