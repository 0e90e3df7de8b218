package kv

// Store is a minimal key-value persistence surface for client state.
// Two instances back the session manager: a session-scoped store whose
// contents die with the process, and a longer-lived store that survives
// restarts.
type Store interface {
	// Get returns the value for key; the second return is false when the
	// key is absent.
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}
