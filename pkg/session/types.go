package session

// Profile is the client-side read model of the authenticated user. It mirrors
// the server's response shape and is never authoritative: the server decides
// every authorization, the profile only informs the UI.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// State is the derived session lifecycle position.
type State int

const (
	// StateUnauthenticated means no credential is stored.
	StateUnauthenticated State = iota
	// StateCachedFresh means a credential exists and the profile cache is
	// inside its TTL; requests skip revalidation.
	StateCachedFresh
	// StateCachedStale means a credential exists but the cached profile has
	// aged out: unknown, not invalid, and revalidated on next use.
	StateCachedStale
	// StateRevalidating means a recovery or revalidation call is in flight.
	StateRevalidating
	// StateInvalid means recovery failed; the credential has been discarded.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCachedFresh:
		return "cached-fresh"
	case StateCachedStale:
		return "cached-stale"
	case StateRevalidating:
		return "revalidating"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
