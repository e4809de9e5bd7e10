package stats

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const defaultSessionTTL = 15 * time.Minute

// SessionStore tracks currently-active visitor sessions. Entries expire
// after the configured TTL without a Touch; expired entries are swept
// on every read so no background goroutine is needed.
type SessionStore struct {
	cache *ttlcache.Cache[string, time.Time]
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		cache: ttlcache.New[string, time.Time](
			ttlcache.WithTTL[string, time.Time](ttl),
		),
	}
}

// Touch marks a session as active now, resetting its expiry.
func (s *SessionStore) Touch(id string) {
	if id == "" {
		return
	}
	s.cache.Set(id, time.Now().UTC(), ttlcache.DefaultTTL)
}

// ActiveCount sweeps expired sessions and returns how many remain.
func (s *SessionStore) ActiveCount() int {
	s.cache.DeleteExpired()
	return s.cache.Len()
}
