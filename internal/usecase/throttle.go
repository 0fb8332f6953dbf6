package usecase

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const throttlePruneSize = 1024

// keyThrottle limits events per key, such as codes mailed per email
// address or code attempts per username. Keys are case-insensitive.
type keyThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// newKeyThrottle allows perHour events per key; perHour <= 0 disables it.
func newKeyThrottle(perHour int) *keyThrottle {
	if perHour <= 0 {
		return nil
	}
	return &keyThrottle{
		limit:    rate.Every(time.Hour / time.Duration(perHour)),
		burst:    perHour,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *keyThrottle) Allow(key string) bool {
	if t == nil {
		return true
	}

	key = strings.ToLower(key)
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limiters[key]
	if !ok {
		if len(t.limiters) >= throttlePruneSize {
			t.prune(now)
		}
		lim = rate.NewLimiter(t.limit, t.burst)
		t.limiters[key] = lim
	}

	return lim.AllowN(now, 1)
}

// prune drops limiters that have refilled, they carry no state.
func (t *keyThrottle) prune(now time.Time) {
	for key, lim := range t.limiters {
		if lim.TokensAt(now) >= float64(t.burst) {
			delete(t.limiters, key)
		}
	}
}
