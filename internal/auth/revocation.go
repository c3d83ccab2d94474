package auth

import (
	"sync"
	"time"
)

// RevocationList tracks the jti of tokens invalidated by logout, each with the
// token's original expiry. Entries are pruned lazily once the token would have
// been rejected by expiry anyway. The list is process-local and lost on
// restart, which only shortens the blacklist window for tokens that were about
// to expire.
type RevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewRevocationList() *RevocationList {
	return &RevocationList{entries: make(map[string]time.Time)}
}

// Revoke records tokenID as invalidated until expiresAt. A missing id or zero
// expiry is ignored, logout stays best-effort.
func (l *RevocationList) Revoke(tokenID string, expiresAt time.Time) {
	if tokenID == "" || expiresAt.IsZero() {
		return
	}
	l.mu.Lock()
	l.entries[tokenID] = expiresAt
	l.mu.Unlock()
}

// IsRevoked reports whether tokenID was invalidated and has not yet expired.
// An entry whose expiry passed is deleted and treated as not revoked; token
// verification rejects such tokens on its own.
func (l *RevocationList) IsRevoked(tokenID string) bool {
	if tokenID == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, ok := l.entries[tokenID]
	if !ok {
		return false
	}
	if !expiresAt.After(time.Now()) {
		delete(l.entries, tokenID)
		return false
	}
	return true
}

// Len reports the number of tracked entries, expired or not.
func (l *RevocationList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
