package session

// Store hands out sessions keyed by user id, creating them on first use.
//
// Acquire returns the session together with a release func and holds that
// session's own lock until release is called: one user's events are processed
// strictly one at a time, while unrelated users never wait on each other.
type Store interface {
	Acquire(userID int64) (*Session, func())
	Len() int
}
